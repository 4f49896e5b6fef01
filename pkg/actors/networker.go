// Package actors wires the component packages into the three
// single-threaded event loops of §5: networker, blockchain, and rpc.
// The social actor has no loop of its own; SocialBridge registers it on
// the networker's router. Each Run* function is the body of its own OS
// thread, polling an atomic shutdown flag at the top of every
// iteration per §5's cancellation model.
package actors

import (
	"sync/atomic"

	"github.com/bullet-ledger/node/internal/config"
	"github.com/bullet-ledger/node/internal/spsc"
	"github.com/bullet-ledger/node/pkg/internalmsg"
	"github.com/bullet-ledger/node/pkg/p2p/peer"
	"github.com/bullet-ledger/node/pkg/p2p/server"
	"github.com/bullet-ledger/node/pkg/reputation"
	"github.com/bullet-ledger/node/pkg/social"
	"github.com/bullet-ledger/node/pkg/wire"
)

// peerPort is the fixed port every dialed peer is assumed to listen on,
// since the wire-level AddPeer body (§4.7) carries only a 4-byte IPv4
// address with no port.
const peerPort = 7000

// Networker owns the peer-facing transport: the generic server, the
// reputation store, and the routing table that decides which frames go
// to the blockchain actor versus are answered locally (Ping,
// negotiation — handled inside pkg/p2p/peer already).
type Networker struct {
	srv     *server.Server
	rep     *reputation.Store
	toBC    *spsc.Producer[*internalmsg.BlockchainEvent]
	fromRPC *spsc.Consumer[*internalmsg.PeerListMsg]

	// pendingBC holds BlockchainEvents that arrived while toBC's ring
	// was full. flushPendingBC retries them in order on every RunOnce,
	// so a momentarily-full ring delays delivery rather than dropping it.
	pendingBC []*internalmsg.BlockchainEvent
}

// NewNetworker builds the networker's server and router, wiring
// Blockchain-coded frames onward to the blockchain actor's inbox. The
// RPC actor's peer-list commands are drained directly every loop
// iteration rather than through the generic server's poller, since
// they don't carry a destination connection of their own.
func NewNetworker(cfg config.Networker, toBC *spsc.Producer[*internalmsg.BlockchainEvent], fromRPC *spsc.Consumer[*internalmsg.PeerListMsg], authz social.Authorizer, ourPriv, ourPub [32]byte) (*Networker, error) {
	rep, err := reputation.Open(cfg.PeerDBPath, cfg.BanThreshold)
	if err != nil {
		return nil, err
	}

	router := peer.NewRouter()
	n := &Networker{rep: rep, toBC: toBC, fromRPC: fromRPC}
	router.On(wire.CodeBlockchain, n.handleBlockchainFrame)
	router.On(wire.CodeSocial, NewSocialBridge(authz).Handle)

	srv, err := server.New(cfg, router, rep, server.Callbacks{}, nil, ourPriv, ourPub)
	if err != nil {
		rep.Close()
		return nil, err
	}
	n.srv = srv
	return n, nil
}

func (n *Networker) handleBlockchainFrame(conn *peer.Connection, msg *peer.NetMsg) (*peer.NetMsg, error) {
	if len(msg.Body) < 1 {
		return nil, nil
	}
	sub := wire.BlockchainSubCode(msg.Body[0])
	body := append([]byte{}, msg.Body[1:]...)

	var kind internalmsg.BlockchainEventKind
	switch sub {
	case wire.SubCodeNewBlock:
		kind = internalmsg.EventNewBlock
	case wire.SubCodeNewTrx:
		kind = internalmsg.EventNewTrx
	case wire.SubCodeVote:
		kind = internalmsg.EventVote
	default:
		return nil, nil
	}

	if n.toBC != nil {
		n.pendingBC = append(n.pendingBC, &internalmsg.BlockchainEvent{Kind: kind, Body: body})
		n.flushPendingBC()
	}
	return nil, nil
}

// flushPendingBC retries queued BlockchainEvents against toBC in order,
// stopping at the first one that still won't fit: pushing a later event
// ahead of an earlier one would reorder the blockchain actor's inbox, so
// a stuck head blocks the whole queue rather than being skipped.
func (n *Networker) flushPendingBC() {
	for len(n.pendingBC) > 0 {
		if !n.toBC.TryPush(n.pendingBC[0]) {
			return
		}
		n.pendingBC = n.pendingBC[1:]
	}
}

// drainPeerList applies every queued AddPeer/RemovePeer command from
// the RPC actor, per §4.7's "the networker then mutates its peer
// store."
func (n *Networker) drainPeerList() {
	if n.fromRPC == nil {
		return
	}
	for {
		msg, ok := n.fromRPC.Pop()
		if !ok {
			return
		}
		for _, addr := range msg.Addrs {
			switch msg.Code {
			case internalmsg.AddPeer:
				n.srv.Dial(addr, peerPort)
			case internalmsg.RemovePeer:
				n.srv.Disconnect(addr)
			}
		}
	}
}

// RunOnce drains the RPC bridge and one poll iteration of the
// underlying server.
func (n *Networker) RunOnce(idlePollTimeoutMS int) error {
	n.drainPeerList()
	if n.toBC != nil {
		n.flushPendingBC()
	}
	return n.srv.RunOnce(idlePollTimeoutMS)
}

// Run loops RunOnce until shutdown is set, the top-of-loop cancellation
// point of §5.
func (n *Networker) Run(shutdown *atomic.Bool, idlePollTimeoutMS int) error {
	for !shutdown.Load() {
		if err := n.RunOnce(idlePollTimeoutMS); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the server and reputation store.
func (n *Networker) Close() error {
	n.rep.Close()
	return n.srv.Close()
}
