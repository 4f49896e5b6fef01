package actors

import (
	"sync/atomic"

	"github.com/bullet-ledger/node/internal/config"
	"github.com/bullet-ledger/node/internal/spsc"
	"github.com/bullet-ledger/node/pkg/internalmsg"
	"github.com/bullet-ledger/node/pkg/rpc"
)

// RPC wraps the control-plane actor in the same Run/RunOnce shape as
// the other two actors, so the process entrypoint spawns all three
// identically.
type RPC struct {
	actor *rpc.Actor
}

// NewRPC binds the RPC listener and wires its outbound peer-list
// channel to the networker.
func NewRPC(cfg config.NetServerConfig, toNetworker *spsc.Producer[*internalmsg.PeerListMsg]) (*RPC, error) {
	a, err := rpc.New(cfg, toNetworker)
	if err != nil {
		return nil, err
	}
	return &RPC{actor: a}, nil
}

// RunOnce services one poll iteration of the RPC listener.
func (r *RPC) RunOnce(idlePollTimeoutMS int) error {
	return r.actor.RunOnce(idlePollTimeoutMS)
}

// Run loops RunOnce until shutdown is set.
func (r *RPC) Run(shutdown *atomic.Bool, idlePollTimeoutMS int) error {
	for !shutdown.Load() {
		if err := r.RunOnce(idlePollTimeoutMS); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the listener and its connections.
func (r *RPC) Close() error {
	return r.actor.Close()
}
