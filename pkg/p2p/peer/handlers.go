package peer

import "github.com/bullet-ledger/node/pkg/wire"

// PingHandler answers a Ping frame with an empty Ping in reply, the
// liveness probe every connection accepts regardless of what actor owns
// it.
func PingHandler(conn *Connection, msg *NetMsg) (*NetMsg, error) {
	return &NetMsg{Code: wire.CodePing, MsgID: msg.MsgID}, nil
}

// Router is a small by-code handler table satisfying Dispatcher, used by
// the networker (the social bridge registers its handler on the same
// table): codes without a handler fall through to the zero-value
// default (dropped silently).
type Router struct {
	byCode map[wire.Code]Handler
}

// NewRouter builds a Router pre-wired with the one handler every
// connection answers regardless of owning actor: Ping.
func NewRouter() *Router {
	r := &Router{byCode: make(map[wire.Code]Handler)}
	r.On(wire.CodePing, PingHandler)
	return r
}

// On registers h for code, overwriting any previous registration.
func (r *Router) On(code wire.Code, h Handler) {
	r.byCode[code] = h
}

// HandlerFor implements Dispatcher.
func (r *Router) HandlerFor(code wire.Code, _ uint16) Handler {
	return r.byCode[code]
}
