// Package poller wraps Linux epoll so the networker, blockchain, social
// and RPC actors can each drive a single readiness loop over a mix of
// TCP connection file descriptors and SPSC queue eventfds, treating
// both as first-class pollable sources. This is the Go counterpart of
// the original's mio::Poll usage in spsc.rs/connection.rs, built
// directly on golang.org/x/sys/unix since the teacher's own networking
// stack (gitlab.dusk.network/dusk-core/dusk-go/pkg/p2p) is goroutine
// and net.Conn based rather than readiness-poll based.
package poller

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Interest describes which readiness edges a registration cares about.
type Interest uint32

const (
	Readable Interest = unix.EPOLLIN
	Writable Interest = unix.EPOLLOUT
	EdgeTrig Interest = unix.EPOLLET
)

// Event is one readiness notification: Fd identifies which registered
// descriptor fired and Readable/Writable/Err report which edges.
type Event struct {
	Fd       int
	Readable bool
	Writable bool
	Err      bool
	Hup      bool
}

// Poller is a thin wrapper around a single epoll instance.
type Poller struct {
	epfd int
}

// New creates an epoll instance for the calling actor.
func New() (*Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errors.Wrap(err, "poller: epoll_create1")
	}
	return &Poller{epfd: fd}, nil
}

// Add registers fd for the given interests.
func (p *Poller) Add(fd int, interest Interest) error {
	return p.ctl(unix.EPOLL_CTL_ADD, fd, interest)
}

// Modify changes the interest set for an already-registered fd.
func (p *Poller) Modify(fd int, interest Interest) error {
	return p.ctl(unix.EPOLL_CTL_MOD, fd, interest)
}

// Remove deregisters fd from the epoll instance.
func (p *Poller) Remove(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return errors.Wrap(err, "poller: epoll_ctl del")
	}
	return nil
}

func (p *Poller) ctl(op int, fd int, interest Interest) error {
	ev := &unix.EpollEvent{Events: uint32(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, op, fd, ev); err != nil {
		return errors.Wrap(err, "poller: epoll_ctl")
	}
	return nil
}

// Wait blocks up to timeoutMS milliseconds (negative blocks forever,
// zero returns immediately) and appends ready events into out,
// returning the slice grown with this round's events.
func (p *Poller) Wait(out []Event, timeoutMS int) ([]Event, error) {
	var raw [128]unix.EpollEvent
	n, err := unix.EpollWait(p.epfd, raw[:], timeoutMS)
	if err != nil {
		if err == unix.EINTR {
			return out, nil
		}
		return out, errors.Wrap(err, "poller: epoll_wait")
	}
	for i := 0; i < n; i++ {
		e := raw[i]
		out = append(out, Event{
			Fd:       int(e.Fd),
			Readable: e.Events&unix.EPOLLIN != 0,
			Writable: e.Events&unix.EPOLLOUT != 0,
			Err:      e.Events&unix.EPOLLERR != 0,
			Hup:      e.Events&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0,
		})
	}
	return out, nil
}

// Close releases the underlying epoll fd.
func (p *Poller) Close() error {
	return unix.Close(p.epfd)
}
