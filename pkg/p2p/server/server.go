// Package server implements the generic, actor-owned network server of
// §4.3: a listener, a readiness poller, a fd→Connection map, an
// address→fd index, a lazy-invalidated timeout heap, and an internal
// outbox bridging SPSC traffic to peer connections. The networker actor
// embeds one, parameterized only by its config, dispatcher, and
// callbacks; the rpc actor runs its own loop in pkg/rpc.
package server

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/bullet-ledger/node/internal/config"
	"github.com/bullet-ledger/node/internal/neterr"
	"github.com/bullet-ledger/node/internal/poller"
	"github.com/bullet-ledger/node/internal/spsc"
	"github.com/bullet-ledger/node/pkg/p2p/peer"
)

// Gatekeeper is the reputation hook §4.3 calls "peer gating." The
// networker satisfies it with *reputation.Store; a nil Gatekeeper
// disables gating.
type Gatekeeper interface {
	AllowConnection(addr [4]byte) (bool, error)
	BumpForError(addr [4]byte, err *neterr.Error) error
}

// Callbacks bundles the actor-supplied hooks the event loop invokes.
type Callbacks struct {
	// HandleErrored is called after a connection is torn down and its
	// pool objects returned, so the actor can react (e.g. nothing extra
	// beyond the Gatekeeper bump, which the server already applied).
	HandleErrored func(addr [4]byte, err *neterr.Error)
	// HandleFromInternal processes one message drained from the
	// inbound SPSC, returning true if it fully consumed it (nothing
	// further to dispatch to a connection).
	HandleFromInternal func(msg *peer.NetMsg) bool
}

type internalEnvelope struct {
	destFd int
	msg    *peer.NetMsg
}

// Server is the shared event-loop machinery described in §4.3.
type Server struct {
	cfg      config.NetServerConfig
	listenFd int
	poll     *poller.Poller

	conns   map[int]*peer.Connection
	addrIdx map[[4]byte]int

	timeouts  timeoutHeap
	stamps    map[int]int64
	clockTick int64

	ourPriv, ourPub [32]byte
	dispatch        peer.Dispatcher
	gate            Gatekeeper
	callbacks       Callbacks

	inbound        *spsc.Consumer[*peer.NetMsg]
	internalOutbox []internalEnvelope
}

// New binds cfg's listen address and constructs a Server ready for Run.
// ourPriv/ourPub is the static X25519 keypair every accepted or dialed
// connection authenticates under.
func New(cfg config.NetServerConfig, dispatch peer.Dispatcher, gate Gatekeeper, cb Callbacks, inbound *spsc.Consumer[*peer.NetMsg], ourPriv, ourPub [32]byte) (*Server, error) {
	addr, err := cfg.BindAddr()
	if err != nil {
		return nil, errors.Wrap(err, "server: resolve bind addr")
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, errors.Wrap(err, "server: socket")
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "server: reuseaddr")
	}

	var sockAddr unix.SockaddrInet4
	copy(sockAddr.Addr[:], addr.IP.To4())
	sockAddr.Port = addr.Port

	if err := unix.Bind(fd, &sockAddr); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "server: bind")
	}
	if err := unix.Listen(fd, cfg.MaxConnections()); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "server: listen")
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "server: nonblock")
	}

	p, err := poller.New()
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := p.Add(fd, poller.Readable); err != nil {
		unix.Close(fd)
		return nil, err
	}
	if inbound != nil {
		if err := p.Add(inbound.Fd(), poller.Readable); err != nil {
			unix.Close(fd)
			return nil, err
		}
	}

	return &Server{
		cfg:      cfg,
		listenFd: fd,
		poll:     p,
		conns:    make(map[int]*peer.Connection),
		addrIdx:  make(map[[4]byte]int),
		stamps:   make(map[int]int64),
		ourPriv:  ourPriv,
		ourPub:   ourPub,
		dispatch: dispatch,
		gate:     gate,
		callbacks: cb,
		inbound:  inbound,
	}, nil
}

// EnqueueInternal appends an internal-outbox entry the next RunOnce call
// will attempt to deliver to destFd's connection.
func (s *Server) EnqueueInternal(destFd int, msg *peer.NetMsg) {
	s.internalOutbox = append(s.internalOutbox, internalEnvelope{destFd: destFd, msg: msg})
}

// ConnectionFor returns the connection registered under addr, if any.
func (s *Server) ConnectionFor(addr [4]byte) (*peer.Connection, bool) {
	fd, ok := s.addrIdx[addr]
	if !ok {
		return nil, false
	}
	c, ok := s.conns[fd]
	return c, ok
}

// Disconnect tears down the connection registered under addr, if any.
// The networker actor's RemovePeer handler calls this in response to an
// RPC-driven peer-list mutation (§4.7).
func (s *Server) Disconnect(addr [4]byte) {
	fd, ok := s.addrIdx[addr]
	if !ok {
		return
	}
	s.teardown(fd, nil)
}

// Dial opens a non-blocking outbound connection to addr:port and
// registers it, queueing the handshake SYN for the first writable edge.
func (s *Server) Dial(addr [4]byte, port uint16) (*peer.Connection, error) {
	if s.gate != nil {
		allowed, err := s.gate.AllowConnection(addr)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, errors.New("server: peer is banned")
		}
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, errors.Wrap(err, "server: dial socket")
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, err
	}

	var sockAddr unix.SockaddrInet4
	sockAddr.Addr = addr
	sockAddr.Port = int(port)

	if err := unix.Connect(fd, &sockAddr); err != nil && err != unix.EINPROGRESS {
		unix.Close(fd)
		return nil, errors.Wrap(err, "server: connect")
	}

	conn := peer.NewConnection(fd, addr, port, true, s.ourPriv, s.ourPub)
	if err := s.register(conn); err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := conn.StartHandshake(); err != nil {
		s.teardown(fd, neterr.New(neterr.NegotiationFailed, true, "server: start handshake", err))
		return nil, err
	}
	return conn, nil
}

func (s *Server) register(conn *peer.Connection) error {
	if err := s.poll.Add(conn.Fd(), poller.Readable|poller.Writable); err != nil {
		return err
	}
	s.conns[conn.Fd()] = conn
	s.addrIdx[conn.Addr()] = conn.Fd()
	s.refreshDeadline(conn.Fd())
	return nil
}

func (s *Server) refreshDeadline(fd int) {
	s.clockTick++
	s.stamps[fd] = s.clockTick
	deadline := time.Now().Unix() + int64(s.cfg.IdleTimeoutSeconds())
	s.timeouts.push(fd, deadline, s.clockTick)
}

func (s *Server) teardown(fd int, nerr *neterr.Error) {
	conn, ok := s.conns[fd]
	if !ok {
		return
	}
	addr := conn.Addr()
	delete(s.conns, fd)
	delete(s.addrIdx, addr)
	delete(s.stamps, fd)
	s.poll.Remove(fd)
	conn.Close()

	if s.gate != nil && nerr != nil {
		s.gate.BumpForError(addr, nerr)
	}
	if s.callbacks.HandleErrored != nil {
		s.callbacks.HandleErrored(addr, nerr)
	}
}

// RunOnce performs one iteration of the event loop (§4.3 steps 1-5):
// poll for up to the caller's interval, flush the internal outbox,
// service ready fds, and expire stale connections.
func (s *Server) RunOnce(idlePollTimeoutMS int) error {
	// Heap deadlines are wall-clock Unix seconds, but the poll timeout
	// is simply the caller's configured idle interval rather than the
	// time to the next deadline; expireStale reviews the heap every
	// iteration regardless of what woke the poll.
	events, err := s.poll.Wait(nil, idlePollTimeoutMS)
	if err != nil {
		return errors.Wrap(err, "server: poll")
	}

	s.flushInternalOutbox()

	for _, ev := range events {
		switch {
		case ev.Fd == s.listenFd:
			s.acceptAll()
		case s.inbound != nil && ev.Fd == s.inbound.Fd():
			s.drainInbound()
		default:
			s.serviceConn(ev)
		}
	}

	s.expireStale()
	return nil
}

func (s *Server) acceptAll() {
	for {
		nfd, sa, err := unix.Accept(s.listenFd)
		if err != nil {
			return
		}
		unix.SetNonblock(nfd, true)

		var addr [4]byte
		if in4, ok := sa.(*unix.SockaddrInet4); ok {
			addr = in4.Addr
		}

		if s.gate != nil {
			allowed, err := s.gate.AllowConnection(addr)
			if err != nil || !allowed {
				unix.Close(nfd)
				continue
			}
		}
		if len(s.conns) >= s.cfg.MaxConnections() {
			unix.Close(nfd)
			continue
		}

		conn := peer.NewConnection(nfd, addr, 0, false, s.ourPriv, s.ourPub)
		if err := s.register(conn); err != nil {
			unix.Close(nfd)
		}
	}
}

func (s *Server) drainInbound() {
	if err := s.inbound.ReadEvent(); err != nil {
		return
	}
	for {
		msg, ok := s.inbound.Pop()
		if !ok {
			return
		}
		if s.callbacks.HandleFromInternal != nil && s.callbacks.HandleFromInternal(msg) {
			continue
		}
		fd, ok := s.addrIdx[msg.Dest]
		if !ok {
			if _, err := s.Dial(msg.Dest, 0); err != nil {
				continue
			}
			fd = s.addrIdx[msg.Dest]
		}
		s.EnqueueInternal(fd, msg)
	}
}

func (s *Server) flushInternalOutbox() {
	if len(s.internalOutbox) == 0 {
		return
	}
	firstStuck := -1
	for len(s.internalOutbox) > 0 {
		env := s.internalOutbox[0]
		if firstStuck == env.destFd {
			break
		}
		s.internalOutbox = s.internalOutbox[1:]

		conn, ok := s.conns[env.destFd]
		if !ok {
			continue
		}
		conn.Enqueue(env.msg)
		s.refreshDeadline(env.destFd)
	}
}

func (s *Server) serviceConn(ev poller.Event) {
	conn, ok := s.conns[ev.Fd]
	if !ok {
		return
	}

	if ev.Err || ev.Hup {
		s.teardown(ev.Fd, neterr.New(neterr.SocketFailed, true, "server: socket error", nil))
		return
	}

	if ev.Writable {
		if nerr := conn.OnWritable(func(msg *peer.NetMsg) {
			// An internal message reaching the front of a connection's
			// outbound queue is returned to the originating SPSC's
			// recycle chute.
			if s.inbound != nil {
				s.inbound.Recycle(msg)
			}
		}); nerr != nil {
			s.teardown(ev.Fd, nerr)
			return
		}
	}
	if ev.Readable {
		if nerr := conn.OnReadable(s.dispatch, func(msg *peer.NetMsg) {
			if s.callbacks.HandleFromInternal != nil {
				s.callbacks.HandleFromInternal(msg)
			}
		}); nerr != nil {
			s.teardown(ev.Fd, nerr)
			return
		}
	}
	s.refreshDeadline(ev.Fd)
}

func (s *Server) expireStale() {
	expired := s.timeouts.popExpired(time.Now().Unix(), func(fd int) (int64, bool) {
		stamp, ok := s.stamps[fd]
		return stamp, ok
	})
	for _, fd := range expired {
		s.teardown(fd, neterr.New(neterr.ConnectionAborted, true, "server: idle timeout", nil))
	}
}

// Close tears down every connection and releases the listener/poller.
func (s *Server) Close() error {
	for fd := range s.conns {
		s.teardown(fd, nil)
	}
	s.poll.Close()
	return unix.Close(s.listenFd)
}
