// Package mempool implements the bounded priority pool transactions
// wait in before block inclusion: a map keyed by fingerprint paired
// with a max-heap ordered by (fee, fingerprint) so the highest-fee
// entry is always available in O(log n), plus typed free-lists so
// eviction and removal never allocate. Ported from the original's
// src/core/priority.rs PriorityPool<K,V>, replaced Rust's
// BinaryHeap+HashMap with container/heap over a Go slice and a plain
// map, since the teacher's own mempool package uses an entirely
// different channel-actor architecture this component doesn't share.
package mempool

import (
	"bytes"
	"container/heap"

	"github.com/bullet-ledger/node/pkg/txs"
	"github.com/bullet-ledger/node/pkg/wire"
)

// Fingerprint is the mempool's key type.
type Fingerprint = [32]byte

type entry struct {
	fingerprint Fingerprint
	priority    uint64
}

// heapSlice is a max-heap on (priority, fingerprint) with lexicographic
// tiebreak, matching §4.4's deterministic ordering requirement.
type heapSlice []entry

func (h heapSlice) Len() int { return len(h) }
func (h heapSlice) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return bytes.Compare(h[i].fingerprint[:], h[j].fingerprint[:]) < 0
}
func (h heapSlice) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *heapSlice) Push(x any)        { *h = append(*h, x.(entry)) }
func (h *heapSlice) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

type binding struct {
	trx      txs.Trx
	priority uint64
}

// Pool is a bounded priority mempool keyed by transaction fingerprint.
type Pool struct {
	capacity int
	bindings map[Fingerprint]binding
	heap     heapSlice

	freeTrxs map[wire.TrxKind][]txs.Trx
}

// New creates a pool bounded at capacity entries.
func New(capacity int) *Pool {
	return &Pool{
		capacity: capacity,
		bindings: make(map[Fingerprint]binding, capacity),
		heap:     make(heapSlice, 0, capacity),
		freeTrxs: make(map[wire.TrxKind][]txs.Trx),
	}
}

// Len returns the current number of live entries.
func (p *Pool) Len() int { return len(p.bindings) }

// Contains reports whether fingerprint currently has a binding.
func (p *Pool) Contains(fingerprint Fingerprint) bool {
	_, ok := p.bindings[fingerprint]
	return ok
}

// Insert adds t under its own fingerprint. A duplicate fingerprint
// recycles t and leaves the existing binding untouched. Once over
// capacity, the lowest-priority entry is evicted and recycled.
func (p *Pool) Insert(t txs.Trx) {
	fp := t.Fingerprint()
	priority := t.FeeValue()

	if _, exists := p.bindings[fp]; exists {
		p.recycleTrx(t)
		return
	}

	p.bindings[fp] = binding{trx: t, priority: priority}
	heap.Push(&p.heap, entry{fingerprint: fp, priority: priority})

	for len(p.bindings) > p.capacity {
		p.evictLowest()
	}
}

// evictLowest drops and recycles the single lowest-priority binding.
// p.heap is ordered for the opposite query (highest priority first via
// Peek/Pop), so eviction can't reuse heap.Pop and instead scans the
// heap slice directly for the minimum, tiebroken the same way as
// heapSlice.Less, then removes that index from both the heap and the
// bindings map. Capacity is small and fixed, so this scan is cheap.
func (p *Pool) evictLowest() {
	p.clean()
	if p.heap.Len() == 0 {
		return
	}

	worst := 0
	for i := 1; i < p.heap.Len(); i++ {
		if p.heap.Less(worst, i) {
			worst = i
		}
	}

	victim := p.heap[worst]
	heap.Remove(&p.heap, worst)
	if b, ok := p.bindings[victim.fingerprint]; ok {
		delete(p.bindings, victim.fingerprint)
		p.recycleTrx(b.trx)
	}
}

// clean discards stale heap tops whose binding was already removed.
func (p *Pool) clean() {
	for p.heap.Len() > 0 {
		top := p.heap[0]
		if _, ok := p.bindings[top.fingerprint]; ok {
			return
		}
		heap.Pop(&p.heap)
	}
}

// Peek returns the fingerprint and transaction currently at the top
// of the priority order, without removing it.
func (p *Pool) Peek() (Fingerprint, txs.Trx, bool) {
	p.clean()
	if p.heap.Len() == 0 {
		return Fingerprint{}, nil, false
	}
	top := p.heap[0]
	return top.fingerprint, p.bindings[top.fingerprint].trx, true
}

// Pop removes and returns the highest-priority transaction.
func (p *Pool) Pop() (Fingerprint, txs.Trx, bool) {
	for p.heap.Len() > 0 {
		top := heap.Pop(&p.heap).(entry)
		if b, ok := p.bindings[top.fingerprint]; ok {
			delete(p.bindings, top.fingerprint)
			return top.fingerprint, b.trx, true
		}
	}
	return Fingerprint{}, nil, false
}

// RemoveOne drops fingerprint's binding if present; the heap retains
// a stale entry that Peek/Pop later discard lazily.
func (p *Pool) RemoveOne(fingerprint Fingerprint) (txs.Trx, bool) {
	b, ok := p.bindings[fingerprint]
	if !ok {
		return nil, false
	}
	delete(p.bindings, fingerprint)
	return b.trx, true
}

func (p *Pool) recycleTrx(t txs.Trx) {
	kind := t.Kind()
	if len(p.freeTrxs[kind]) < p.capacity {
		p.freeTrxs[kind] = append(p.freeTrxs[kind], t)
	}
}

// GetValue returns a recycled transaction of the given kind, or nil
// if the free-list for that kind is currently empty (the caller
// constructs one via the variant's New*Trx).
func (p *Pool) GetValue(kind wire.TrxKind) txs.Trx {
	list := p.freeTrxs[kind]
	if len(list) == 0 {
		return nil
	}
	v := list[len(list)-1]
	p.freeTrxs[kind] = list[:len(list)-1]
	return v
}
