// Command bulletledger runs one node: the networker, blockchain and rpc
// actors of SPEC_FULL.md §5, each its own dedicated goroutine pinned to
// an OS thread (the social handlers run inline on the networker's loop),
// coordinated by a shared atomic shutdown flag and torn down on
// SIGINT/SIGTERM.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"

	logrus "github.com/sirupsen/logrus"

	"github.com/bullet-ledger/node/internal/config"
	"github.com/bullet-ledger/node/internal/logging"
	"github.com/bullet-ledger/node/internal/spsc"
	"github.com/bullet-ledger/node/pkg/actors"
	"github.com/bullet-ledger/node/pkg/consensus"
	"github.com/bullet-ledger/node/pkg/crypto"
	"github.com/bullet-ledger/node/pkg/crypto/pedersen"
	"github.com/bullet-ledger/node/pkg/internalmsg"
	"github.com/bullet-ledger/node/pkg/social"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: bulletledger <config.toml>")
		return 1
	}

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}

	if err := logging.Setup(cfg.Node.LogLevel, cfg.Node.LogPath, cfg.Node.LogMaxSizeMB, cfg.Node.LogMaxBackups); err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		return 1
	}
	logging.Banner(version)
	log := logging.For("main")

	netPriv, netPub, err := loadKeypair(cfg.Networker.KeyPathStr)
	if err != nil {
		log.WithError(err).Error("load networker keyfile")
		return 2
	}

	roster, err := consensus.LoadRoster(cfg.Consensus.RosterPath)
	if err != nil {
		log.WithError(err).Error("load validator roster")
		return 2
	}

	gens := pedersen.NewGenerators([]byte(cfg.Blockchain.LedgerTag))

	bcEventProd, bcEventCons, err := spsc.New(cfg.Networker.EventBufferSize(), 256, func(cap int) *internalmsg.BlockchainEvent {
		return &internalmsg.BlockchainEvent{Body: make([]byte, 0, cap)}
	})
	if err != nil {
		log.WithError(err).Error("blockchain event queue")
		return 1
	}

	peerListProd, peerListCons, err := spsc.New(cfg.RPC.EventBufferSize(), 4, func(cap int) *internalmsg.PeerListMsg {
		return &internalmsg.PeerListMsg{}
	})
	if err != nil {
		log.WithError(err).Error("peer list queue")
		return 1
	}

	var genesisHash consensus.Hash
	blockchain, err := actors.NewBlockchain(cfg.Blockchain.LedgerPath, cfg.Blockchain.PoolCap, gens, roster, 0, genesisHash, bcEventCons)
	if err != nil {
		log.WithError(err).Error("open ledger")
		return 3
	}

	networker, err := actors.NewNetworker(cfg.Networker, bcEventProd, peerListCons, social.AlwaysAllow{}, netPriv, netPub)
	if err != nil {
		log.WithError(err).Error("start networker")
		return 3
	}

	rpcActor, err := actors.NewRPC(cfg.RPC, peerListProd)
	if err != nil {
		log.WithError(err).Error("start rpc")
		return 3
	}

	var shutdown atomic.Bool
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		shutdown.Store(true)
	}()

	var wg sync.WaitGroup
	wg.Add(3)

	go runPinned(&wg, "networker", func() error {
		return networker.Run(&shutdown, cfg.Networker.IdlePollTimeoutMS())
	}, log)
	go runPinned(&wg, "rpc", func() error {
		return rpcActor.Run(&shutdown, cfg.RPC.IdlePollTimeoutMS())
	}, log)
	go runPinned(&wg, "blockchain", func() error {
		return blockchain.Run(&shutdown)
	}, log)

	wg.Wait()

	if err := networker.Close(); err != nil {
		log.WithError(err).Warn("close networker")
	}
	if err := rpcActor.Close(); err != nil {
		log.WithError(err).Warn("close rpc")
	}
	if err := blockchain.Close(); err != nil {
		log.WithError(err).Warn("close ledger")
	}

	log.Info("clean shutdown")
	return 0
}

// runPinned runs fn on a dedicated locked OS thread, per §5's "each
// actor is a dedicated OS thread," logging and swallowing its error so
// one actor's failure doesn't take down the others' shutdown sequence.
func runPinned(wg *sync.WaitGroup, name string, fn func() error, log *logrus.Entry) {
	defer wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := fn(); err != nil {
		log.WithError(err).WithField("actor", name).Error("actor loop exited")
	}
}

// loadKeypair reads the fixed 64-byte key file format: 32-byte X25519
// public key followed by 32-byte private key (§6-FULL).
func loadKeypair(path string) (priv, pub [32]byte, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return priv, pub, err
	}
	if len(data) != 64 {
		return priv, pub, fmt.Errorf("keyfile %q: want 64 bytes, got %d", path, len(data))
	}
	copy(pub[:], data[:32])
	copy(priv[:], data[32:])

	derived, err := crypto.X25519Shared(priv, [32]byte{9})
	if err != nil {
		return priv, pub, err
	}
	if derived != pub {
		return priv, pub, fmt.Errorf("keyfile %q: public key does not match private key", path)
	}
	return priv, pub, nil
}
