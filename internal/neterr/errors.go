// Package neterr defines the per-connection error taxonomy shared by the
// peer transport and the RPC transport, along with the reputation score
// bump each kind carries.
package neterr

import "github.com/pkg/errors"

// Kind identifies one of the fixed connection-error categories.
type Kind int

const (
	// ConnectionAborted means the peer closed or the socket errored.
	ConnectionAborted Kind = iota
	// MalformedPrefix means the 36-byte frame prefix failed to parse.
	MalformedPrefix
	// Unauthorized means a non-negotiation frame arrived pre-handshake,
	// or the handshake ACK failed to verify.
	Unauthorized
	// Decryption means AEAD tag verification failed.
	Decryption
	// Encryption means a local seal operation failed.
	Encryption
	// NegotiationFailed means the handshake SYN/ACK could not be queued.
	NegotiationFailed
	// SocketFailed means the poller reported an OS-level socket error.
	SocketFailed
	// PeerDbQuery means a reputation-store query failed.
	PeerDbQuery
	// PeerDbExec means a reputation-store write failed.
	PeerDbExec
	// Ledger wraps a return code from the authenticated KV.
	Ledger
)

// scoreTable mirrors the taxonomy in the error-handling design: the
// reputation bump applied to the offending peer's address, 0 meaning no
// bump (or not a peer-scoped error at all).
var scoreTable = map[Kind]int{
	ConnectionAborted: 0,
	MalformedPrefix:   20,
	Unauthorized:      30,
	Decryption:        10,
	Encryption:        0,
	NegotiationFailed: 0,
	SocketFailed:      0,
	PeerDbQuery:       0,
	PeerDbExec:        0,
	Ledger:            0,
}

// Error is a taxonomy-tagged error. Drop indicates the owning connection
// must be torn down; most kinds do, PeerDbQuery/PeerDbExec/Ledger do not.
type Error struct {
	Kind Kind
	Drop bool
	Code int32
	err  error
}

func (e *Error) Error() string {
	if e.err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.err.Error()
}

func (e *Error) Unwrap() error { return e.err }

// Score reports the reputation bump this error kind carries.
func (e *Error) Score() int { return scoreTable[e.Kind] }

// New wraps cause (which may be nil) under kind, annotated with msg.
func New(kind Kind, drop bool, msg string, cause error) *Error {
	var err error
	if cause != nil {
		err = errors.Wrap(cause, msg)
	} else if msg != "" {
		err = errors.New(msg)
	}
	return &Error{Kind: kind, Drop: drop, err: err}
}

// LedgerErr wraps an external KV return code as described in §7.
func LedgerErr(code int32, cause error) *Error {
	return &Error{Kind: Ledger, Drop: false, Code: code, err: cause}
}

func (k Kind) String() string {
	switch k {
	case ConnectionAborted:
		return "connection_aborted"
	case MalformedPrefix:
		return "malformed_prefix"
	case Unauthorized:
		return "unauthorized"
	case Decryption:
		return "decryption"
	case Encryption:
		return "encryption"
	case NegotiationFailed:
		return "negotiation_failed"
	case SocketFailed:
		return "socket_failed"
	case PeerDbQuery:
		return "peer_db_query"
	case PeerDbExec:
		return "peer_db_exec"
	case Ledger:
		return "ledger"
	default:
		return "unknown"
	}
}
