package spsc

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Factory constructs a fresh zero-value message, optionally sized by
// defaultCap (e.g. a preallocated payload buffer), for Producer.Collect
// to hand back when the recycle chute is empty.
type Factory[T any] func(defaultCap int) T

// Producer is the write side of a queue: TryPush enqueues work for the
// consumer, Collect recovers a recycled buffer (or makes a fresh one)
// to fill in before pushing.
type Producer[T any] struct {
	queue      *ring[T]
	chute      *ring[T]
	factory    Factory[T]
	defaultCap int
	eventFd    int
}

// Consumer is the read side of a queue: Pop drains pushed work, Recycle
// returns an exhausted buffer to the chute for the producer to reuse,
// and Fd exposes the eventfd so a poller can wait on arrivals.
type Consumer[T any] struct {
	queue   *ring[T]
	chute   *ring[T]
	eventFd int
}

// New creates a producer/consumer pair backed by a capacity-sized ring
// and a recycle chute of half that capacity (at least one slot).
func New[T any](capacity int, defaultCap int, factory Factory[T]) (*Producer[T], *Consumer[T], error) {
	if capacity <= 0 {
		capacity = 1
	}
	efd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, nil, errors.Wrap(err, "spsc: eventfd")
	}

	queue := newRing[T](capacity)
	chuteCap := capacity / 2
	if chuteCap < 1 {
		chuteCap = 1
	}
	chute := newRing[T](chuteCap)

	p := &Producer[T]{queue: queue, chute: chute, factory: factory, defaultCap: defaultCap, eventFd: efd}
	c := &Consumer[T]{queue: queue, chute: chute, eventFd: efd}
	return p, c, nil
}

// TryPush enqueues value for the consumer and signals the eventfd so a
// blocked poller wakes. Returns false if the ring is full.
func (p *Producer[T]) TryPush(value T) bool {
	ok := p.queue.push(value)
	if ok {
		var buf [8]byte
		buf[0] = 1
		_, _ = unix.Write(p.eventFd, buf[:])
	}
	return ok
}

// Collect returns a recycled message from the chute, or a freshly
// constructed one if the chute is currently empty.
func (p *Producer[T]) Collect() T {
	if v, ok := p.chute.pop(); ok {
		return v
	}
	return p.factory(p.defaultCap)
}

// Fd returns the producer's eventfd, for registration with a poller.
func (p *Producer[T]) Fd() int { return p.eventFd }

// Pop removes the next queued message, if any.
func (c *Consumer[T]) Pop() (T, bool) {
	return c.queue.pop()
}

// Recycle returns value to the chute for the producer to reclaim via
// Collect. Returns false if the chute is full, in which case the
// caller should simply drop value.
func (c *Consumer[T]) Recycle(value T) bool {
	return c.chute.push(value)
}

// Fd returns the consumer's eventfd, for registration with a poller.
func (c *Consumer[T]) Fd() int { return c.eventFd }

// ReadEvent drains the eventfd counter after a poller reports it
// readable, matching the original's read_event.
func (c *Consumer[T]) ReadEvent() error {
	var buf [8]byte
	_, err := unix.Read(c.eventFd, buf[:])
	if err != nil && err != unix.EAGAIN {
		return errors.Wrap(err, "spsc: read eventfd")
	}
	return nil
}
