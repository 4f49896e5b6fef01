package rpc

import (
	"golang.org/x/sys/unix"

	"github.com/pkg/errors"

	"github.com/bullet-ledger/node/internal/config"
	"github.com/bullet-ledger/node/internal/poller"
	"github.com/bullet-ledger/node/internal/spsc"
	"github.com/bullet-ledger/node/pkg/internalmsg"
)

type connState int

const (
	readingHeader connState = iota
	readingBody
)

type conn struct {
	fd    int
	state connState

	headerBuf    [HeaderSize]byte
	headerFilled int
	header       Header

	bodyBuf    []byte
	bodyFilled int
}

// Actor is the RPC control-plane event loop: its own tiny epoll
// instance over unauthenticated, unencrypted admin connections, since
// §4.7 intentionally skips the peer handshake.
type Actor struct {
	listenFd int
	poll     *poller.Poller
	conns    map[int]*conn

	toNetworker *spsc.Producer[*internalmsg.PeerListMsg]

	// pending holds PeerListMsgs that arrived while toNetworker's ring
	// was full. flushPending retries them in order on every RunOnce, so
	// a momentarily-full ring delays delivery rather than dropping it.
	pending []*internalmsg.PeerListMsg
}

// New binds cfg's listen address and wires the outbound channel that
// carries parsed AddPeer/RemovePeer commands to the networker actor.
func New(cfg config.NetServerConfig, toNetworker *spsc.Producer[*internalmsg.PeerListMsg]) (*Actor, error) {
	addr, err := cfg.BindAddr()
	if err != nil {
		return nil, errors.Wrap(err, "rpc: resolve bind addr")
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, errors.Wrap(err, "rpc: socket")
	}
	unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)

	var sa unix.SockaddrInet4
	copy(sa.Addr[:], addr.IP.To4())
	sa.Port = addr.Port
	if err := unix.Bind(fd, &sa); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "rpc: bind")
	}
	if err := unix.Listen(fd, cfg.MaxConnections()); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "rpc: listen")
	}
	unix.SetNonblock(fd, true)

	p, err := poller.New()
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := p.Add(fd, poller.Readable); err != nil {
		unix.Close(fd)
		return nil, err
	}

	return &Actor{listenFd: fd, poll: p, conns: make(map[int]*conn), toNetworker: toNetworker}, nil
}

// RunOnce polls once and services every ready fd, mirroring the
// networker's event loop shape at a much smaller scale.
func (a *Actor) RunOnce(timeoutMS int) error {
	a.flushPending()

	events, err := a.poll.Wait(nil, timeoutMS)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if ev.Fd == a.listenFd {
			a.acceptAll()
			continue
		}
		if ev.Err || ev.Hup {
			a.drop(ev.Fd)
			continue
		}
		if ev.Readable {
			a.service(ev.Fd)
		}
	}
	return nil
}

func (a *Actor) acceptAll() {
	for {
		fd, _, err := unix.Accept(a.listenFd)
		if err != nil {
			return
		}
		unix.SetNonblock(fd, true)
		a.poll.Add(fd, poller.Readable)
		a.conns[fd] = &conn{fd: fd}
	}
}

func (a *Actor) drop(fd int) {
	if _, ok := a.conns[fd]; !ok {
		return
	}
	delete(a.conns, fd)
	a.poll.Remove(fd)
	unix.Close(fd)
}

func (a *Actor) service(fd int) {
	c, ok := a.conns[fd]
	if !ok {
		return
	}
	for {
		switch c.state {
		case readingHeader:
			n, err := unix.Read(fd, c.headerBuf[c.headerFilled:])
			if a.ioDone(fd, n, err) {
				return
			}
			c.headerFilled += n
			if c.headerFilled < HeaderSize {
				return
			}
			hdr, err := UnmarshalHeader(c.headerBuf[:])
			if err != nil {
				a.drop(fd)
				return
			}
			c.header = hdr
			c.bodyBuf = make([]byte, hdr.Length)
			c.bodyFilled = 0
			c.state = readingBody

		case readingBody:
			if len(c.bodyBuf) == 0 {
				a.dispatch(c)
				c.headerFilled = 0
				c.state = readingHeader
				continue
			}
			n, err := unix.Read(fd, c.bodyBuf[c.bodyFilled:])
			if a.ioDone(fd, n, err) {
				return
			}
			c.bodyFilled += n
			if c.bodyFilled < len(c.bodyBuf) {
				return
			}
			a.dispatch(c)
			c.headerFilled = 0
			c.state = readingHeader
		}
	}
}

func (a *Actor) ioDone(fd int, n int, err error) bool {
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return true
		}
		a.drop(fd)
		return true
	}
	if n == 0 {
		a.drop(fd)
		return true
	}
	return false
}

func (a *Actor) dispatch(c *conn) {
	msg := &internalmsg.PeerListMsg{Addrs: internalmsg.DecodeAddrs(c.bodyBuf)}
	switch c.header.Code {
	case CodeAddPeer:
		msg.Code = internalmsg.AddPeer
	case CodeRemovePeer:
		msg.Code = internalmsg.RemovePeer
	default:
		return
	}
	a.pending = append(a.pending, msg)
	a.flushPending()
}

// flushPending retries queued PeerListMsgs against toNetworker in
// order, stopping at the first one that still won't fit: pushing a
// later command ahead of an earlier one would reorder the networker's
// peer-list mutations, so a stuck head blocks the whole queue rather
// than being skipped.
func (a *Actor) flushPending() {
	for len(a.pending) > 0 {
		if !a.toNetworker.TryPush(a.pending[0]) {
			return
		}
		a.pending = a.pending[1:]
	}
}

// Close releases the listener and poller.
func (a *Actor) Close() error {
	for fd := range a.conns {
		a.drop(fd)
	}
	a.poll.Close()
	return unix.Close(a.listenFd)
}
