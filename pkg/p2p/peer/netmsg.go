// Package peer implements the per-connection read/write/handshake state
// machines of §4.2: a framed, optionally-encrypted codec driven entirely
// by readiness edges from the poller, with no blocking socket or channel
// operation anywhere in the hot path.
package peer

import "github.com/bullet-ledger/node/pkg/wire"

// NetMsg is the pooled unit of work the server and the connection FSMs
// pass around: either a wire-bound frame or an internal message destined
// for another actor's SPSC inbox. A single free-list pool covers both
// cases, matching §5's "every large object has a single owner pool."
type NetMsg struct {
	Internal bool
	Dest     [4]byte

	Code  wire.Code
	MsgID uint16
	Body  []byte

	// ResponseHandler, when set on an outbound message, is moved into the
	// destination connection's inbound-handler map under MsgID once the
	// write completes (§4.2 Correlation).
	ResponseHandler Handler
}

// NewNetMsg constructs a message with a body buffer pre-sized to cap,
// the pool's fallback factory when the free-list is empty.
func NewNetMsg(cap int) *NetMsg {
	return &NetMsg{Body: make([]byte, 0, cap)}
}

// Reset clears a recycled message so a stale handler or body can't leak
// into its next use.
func (m *NetMsg) Reset() {
	m.Internal = false
	m.Dest = [4]byte{}
	m.Code = wire.CodeNone
	m.MsgID = 0
	m.Body = m.Body[:0]
	m.ResponseHandler = nil
}

// Handler processes an inbound NetMsg on behalf of a connection and
// optionally returns a reply to enqueue. Registering a continuation for
// a correlated response is done by returning (nil, nil) and calling
// conn.AwaitResponse directly from the handler body.
type Handler func(conn *Connection, msg *NetMsg) (*NetMsg, error)
