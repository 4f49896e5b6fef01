package peer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"

	"github.com/bullet-ledger/node/pkg/crypto"
	"github.com/bullet-ledger/node/pkg/wire"
)

func socketPair(t *testing.T) (int, int) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	assert.NoError(t, err)
	assert.NoError(t, unix.SetNonblock(fds[0], true))
	assert.NoError(t, unix.SetNonblock(fds[1], true))
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

// pumpUntilEstablished alternates OnReadable/OnWritable on both ends
// until the handshake completes or the deadline trips, simulating the
// poller handing readiness edges to each side in turn.
func pumpUntilEstablished(t *testing.T, dialerConn, acceptorConn *Connection) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if dialerConn.IsEstablished() && acceptorConn.IsEstablished() {
			return
		}
		nerr := dialerConn.OnWritable(nil)
		assert.Nil(t, nerr)
		nerr = acceptorConn.OnReadable(nil, nil)
		assert.Nil(t, nerr)
		nerr = acceptorConn.OnWritable(nil)
		assert.Nil(t, nerr)
		nerr = dialerConn.OnReadable(nil, nil)
		assert.Nil(t, nerr)
	}
	t.Fatal("handshake did not complete")
}

func TestHandshakeEstablishesSharedKey(t *testing.T) {
	dialerFd, acceptorFd := socketPair(t)

	dialerPub, dialerPriv := mustX25519Pair(t)
	acceptorPub, acceptorPriv := mustX25519Pair(t)

	dialerConn := NewConnection(dialerFd, [4]byte{127, 0, 0, 1}, 0, true, dialerPriv, dialerPub)
	acceptorConn := NewConnection(acceptorFd, [4]byte{127, 0, 0, 1}, 0, false, acceptorPriv, acceptorPub)

	assert.NoError(t, dialerConn.StartHandshake())
	pumpUntilEstablished(t, dialerConn, acceptorConn)

	assert.Equal(t, dialerConn.key, acceptorConn.key)
}

func TestPingRoundTripAfterHandshake(t *testing.T) {
	dialerFd, acceptorFd := socketPair(t)

	dialerPub, dialerPriv := mustX25519Pair(t)
	acceptorPub, acceptorPriv := mustX25519Pair(t)

	dialerConn := NewConnection(dialerFd, [4]byte{127, 0, 0, 1}, 0, true, dialerPriv, dialerPub)
	acceptorConn := NewConnection(acceptorFd, [4]byte{127, 0, 0, 1}, 0, false, acceptorPriv, acceptorPub)

	assert.NoError(t, dialerConn.StartHandshake())
	pumpUntilEstablished(t, dialerConn, acceptorConn)

	router := NewRouter()
	dialerConn.Enqueue(&NetMsg{Code: wire.CodePing, MsgID: 42})

	assert.Nil(t, dialerConn.OnWritable(nil))
	assert.Nil(t, acceptorConn.OnReadable(router, nil))
	assert.Nil(t, acceptorConn.OnWritable(nil))
	assert.Nil(t, dialerConn.OnReadable(router, nil))
}

// TestCorrelatedResponseBypassesRouter exercises §4.2's correlation
// path: a reply arriving under the msg_id of a request that registered
// AwaitResponse is routed to that continuation, never to the router's
// by-code table, even when a by-code handler for the same code also
// exists.
func TestCorrelatedResponseBypassesRouter(t *testing.T) {
	dialerFd, acceptorFd := socketPair(t)

	dialerPub, dialerPriv := mustX25519Pair(t)
	acceptorPub, acceptorPriv := mustX25519Pair(t)

	dialerConn := NewConnection(dialerFd, [4]byte{127, 0, 0, 1}, 0, true, dialerPriv, dialerPub)
	acceptorConn := NewConnection(acceptorFd, [4]byte{127, 0, 0, 1}, 0, false, acceptorPriv, acceptorPub)

	assert.NoError(t, dialerConn.StartHandshake())
	pumpUntilEstablished(t, dialerConn, acceptorConn)

	// A by-code handler for the same code is registered on both sides'
	// shared router, so the acceptor's receipt of the initial request
	// (uncorrelated) dispatches through it exactly once; the dialer's
	// later receipt of the reply must NOT dispatch through it again.
	router := NewRouter()
	var routerHits int
	router.On(wire.CodeBlockchain, func(conn *Connection, msg *NetMsg) (*NetMsg, error) {
		routerHits++
		return nil, nil
	})

	var correlatedHit bool
	var correlatedBody []byte
	req := &NetMsg{
		Code: wire.CodeBlockchain,
		Body: []byte{0xAA},
		ResponseHandler: func(conn *Connection, msg *NetMsg) (*NetMsg, error) {
			correlatedHit = true
			correlatedBody = msg.Body
			return nil, nil
		},
	}
	dialerConn.Enqueue(req)

	assert.Nil(t, dialerConn.OnWritable(nil))
	assert.Nil(t, acceptorConn.OnReadable(router, nil))
	assert.Equal(t, 1, routerHits)

	acceptorConn.Enqueue(&NetMsg{Code: wire.CodeBlockchain, MsgID: dialerConn.curMsgID, Body: []byte{0xBB}})
	assert.Nil(t, acceptorConn.OnWritable(nil))
	assert.Nil(t, dialerConn.OnReadable(router, nil))

	assert.True(t, correlatedHit)
	assert.Equal(t, []byte{0xBB}, correlatedBody)
	assert.Equal(t, 1, routerHits)
}

func mustX25519Pair(t *testing.T) (pub, priv [32]byte) {
	p, err := crypto.RandBytes32()
	assert.NoError(t, err)
	pub, err = crypto.X25519Shared(p, [32]byte{9})
	assert.NoError(t, err)
	return pub, p
}
