// Package spsc implements the wait-free bounded single-producer/
// single-consumer ring the actor fabric passes messages over, plus a
// secondary "chute" ring used to recycle message buffers back to the
// producer without allocating. Ported from the original's spsc.rs
// (UnsafeCell-backed ring over AtomicUsize head/tail), generalized
// with Go generics and atomic.Uint64 in place of Rust's AtomicUsize,
// and an eventfd notification descriptor per-queue so the poller can
// treat a queue exactly like a socket readiness source.
package spsc

import "sync/atomic"

// ring is a bounded wait-free single-producer/single-consumer buffer.
// Only one goroutine may call push, and only one (possibly different)
// goroutine may call pop, concurrently.
type ring[T any] struct {
	buffer []T
	valid  []atomic.Bool
	cap    uint64
	head   atomic.Uint64
	tail   atomic.Uint64
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{
		buffer: make([]T, capacity),
		valid:  make([]atomic.Bool, capacity),
		cap:    uint64(capacity),
	}
}

// push stores value at the tail slot, returning false if the ring is
// full (mirrors the original's push returning Err(value) on overflow).
func (r *ring[T]) push(value T) bool {
	tail := r.tail.Load()
	head := r.head.Load()

	if tail-head == r.cap {
		return false
	}

	idx := tail % r.cap
	r.buffer[idx] = value
	r.valid[idx].Store(true)
	r.tail.Store(tail + 1)
	return true
}

// pop removes and returns the head slot, or the zero value and false
// if the ring is empty.
func (r *ring[T]) pop() (T, bool) {
	var zero T
	head := r.head.Load()
	tail := r.tail.Load()

	if head == tail {
		return zero, false
	}

	idx := head % r.cap
	value := r.buffer[idx]
	r.buffer[idx] = zero
	r.valid[idx].Store(false)
	r.head.Store(head + 1)
	return value, true
}
