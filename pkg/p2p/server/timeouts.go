package server

import "container/heap"

// timeoutEntry is one connection's next-expiry slot in the min-heap.
// stamp is compared against the server's current stamp for fd at pop
// time so a connection that has since been active isn't torn down on a
// stale entry (lazy invalidation, §4.3).
type timeoutEntry struct {
	fd       int
	deadline int64
	stamp    int64
}

type timeoutHeap []timeoutEntry

func (h timeoutHeap) Len() int            { return len(h) }
func (h timeoutHeap) Less(i, j int) bool  { return h[i].deadline < h[j].deadline }
func (h timeoutHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timeoutHeap) Push(x any)         { *h = append(*h, x.(timeoutEntry)) }
func (h *timeoutHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

func (h *timeoutHeap) push(fd int, deadline, stamp int64) {
	heap.Push(h, timeoutEntry{fd: fd, deadline: deadline, stamp: stamp})
}

// nextDeadline returns the earliest deadline in the heap, or ok=false
// if the heap is empty.
func (h timeoutHeap) nextDeadline() (int64, bool) {
	if len(h) == 0 {
		return 0, false
	}
	return h[0].deadline, true
}

// popExpired pops every entry whose deadline is <= now, returning the
// fds whose stamp still matches the heap entry's stamp (i.e. weren't
// refreshed since they were scheduled).
func (h *timeoutHeap) popExpired(now int64, currentStamp func(fd int) (int64, bool)) []int {
	var expired []int
	for h.Len() > 0 && (*h)[0].deadline <= now {
		e := heap.Pop(h).(timeoutEntry)
		stamp, ok := currentStamp(e.fd)
		if ok && stamp == e.stamp {
			expired = append(expired, e.fd)
		}
	}
	return expired
}
