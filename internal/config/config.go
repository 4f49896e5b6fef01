// Package config loads the node's TOML configuration, mirroring the
// original implementation's toml::from_str(...) startup step.
package config

import (
	"net"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// NetServerConfig is satisfied by every actor-facing server config block
// (networker, rpc): the generic network server in pkg/p2p/server only
// ever needs these getters, never a concrete struct.
type NetServerConfig interface {
	BindAddr() (*net.TCPAddr, error)
	KeyPath() string
	MaxConnections() int
	EventBufferSize() int
	IdlePollTimeoutMS() int
	IdleTimeoutSeconds() int
	BuffersCap() int
	MaxBufferSize() int
	ConnQCap() int
}

// Node carries ambient process-glue settings: logging and nothing else
// (signal handling and the shutdown flag are code, not configuration).
type Node struct {
	LogLevel      string `toml:"log_level"`
	LogPath       string `toml:"log_path"`
	LogMaxSizeMB  int    `toml:"log_max_size_mb"`
	LogMaxBackups int    `toml:"log_max_backups"`
}

// Networker configures the peer-facing transport.
type Networker struct {
	BindAddrStr     string `toml:"bind_addr"`
	KeyPathStr      string `toml:"key_path"`
	MaxConns        int    `toml:"max_connections"`
	EventBufferSz   int    `toml:"event_buffer_size"`
	IdlePollTimeout int    `toml:"idle_polltimeout"`
	IdleTimeout     int    `toml:"idle_timeout"`
	BufferCap       int    `toml:"buffers_cap"`
	MaxBufferSz     int    `toml:"max_buffer_size"`
	ConnQCap        int    `toml:"conn_q_cap"`
	PeerDBPath      string `toml:"peer_db_path"`
	BanThreshold    int    `toml:"ban_threshold"`
}

func (n Networker) BindAddr() (*net.TCPAddr, error) { return net.ResolveTCPAddr("tcp", n.BindAddrStr) }
func (n Networker) KeyPath() string                 { return n.KeyPathStr }
func (n Networker) MaxConnections() int             { return n.MaxConns }
func (n Networker) EventBufferSize() int            { return n.EventBufferSz }
func (n Networker) IdlePollTimeoutMS() int          { return n.IdlePollTimeout }
func (n Networker) IdleTimeoutSeconds() int         { return n.IdleTimeout }
func (n Networker) BuffersCap() int                 { return n.BufferCap }
func (n Networker) MaxBufferSize() int              { return n.MaxBufferSz }
func (n Networker) ConnQCap() int                   { return n.ConnQCap }

// Blockchain configures the mempool, ledger, and block-size parameters.
type Blockchain struct {
	PoolCap         int    `toml:"pool_cap"`
	BulletCount     int    `toml:"bullet_count"`
	BlockSize       int    `toml:"block_size"`
	EpochInterval   int64  `toml:"epoch_interval"`
	LedgerPath      string `toml:"ledger_path"`
	LedgerCacheSize int    `toml:"ledger_cache_size"`
	LedgerMapSize   int64  `toml:"ledger_map_size"`
	LedgerTag       string `toml:"ledger_tag"`
}

// Consensus configures the checkpoint/justification actor.
type Consensus struct {
	RosterPath string `toml:"roster_path"`
}

// RPC configures the admin control-plane transport.
type RPC struct {
	BindAddrStr     string `toml:"bind_addr"`
	KeyPathStr      string `toml:"key_path"`
	MaxConns        int    `toml:"max_connections"`
	EventBufferSz   int    `toml:"event_buffer_size"`
	IdlePollTimeout int    `toml:"idle_polltimeout"`
	IdleTimeout     int    `toml:"idle_timeout"`
	BufferCap       int    `toml:"buffers_cap"`
	MaxBufferSz     int    `toml:"max_buffer_size"`
	ConnQCap        int    `toml:"conn_q_cap"`
}

func (r RPC) BindAddr() (*net.TCPAddr, error) { return net.ResolveTCPAddr("tcp", r.BindAddrStr) }
func (r RPC) KeyPath() string                 { return r.KeyPathStr }
func (r RPC) MaxConnections() int             { return r.MaxConns }
func (r RPC) EventBufferSize() int            { return r.EventBufferSz }
func (r RPC) IdlePollTimeoutMS() int          { return r.IdlePollTimeout }
func (r RPC) IdleTimeoutSeconds() int         { return r.IdleTimeout }
func (r RPC) BuffersCap() int                 { return r.BufferCap }
func (r RPC) MaxBufferSize() int              { return r.MaxBufferSz }
func (r RPC) ConnQCap() int                   { return r.ConnQCap }

// Social configures the reserved social-graph actor.
type Social struct {
	EventBufferSz int `toml:"event_buffer_size"`
}

// Config is the fully parsed TOML document.
type Config struct {
	Node       Node       `toml:"node"`
	Networker  Networker  `toml:"networker"`
	Blockchain Blockchain `toml:"blockchain"`
	Consensus  Consensus  `toml:"consensus"`
	RPC        RPC        `toml:"rpc"`
	Social     Social     `toml:"social"`
}

// Load reads and parses the TOML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config file")
	}

	return &cfg, nil
}

// RosterEntry is one validator line of the companion roster TOML file
// referenced by Consensus.RosterPath (see SPEC_FULL.md §4.6-FULL).
type RosterEntry struct {
	IDHex     string `toml:"id"`
	PublicKey string `toml:"public_key"`
	Weight    uint64 `toml:"weight"`
}

// Roster is the top-level shape of the roster TOML file.
type Roster struct {
	Validators []RosterEntry `toml:"validator"`
}

// LoadRoster reads the companion validator roster file.
func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read roster file")
	}

	var r Roster
	if _, err := toml.Decode(string(data), &r); err != nil {
		return nil, errors.Wrap(err, "parse roster file")
	}

	return &r, nil
}
