// Package tq is the single timer queue: a min-heap of future task
// activations keyed by Instant, driven by SysTick (spec.md §4.6). No
// library in the retrieval pack implements a binary heap (the closest hit,
// sclevine-xsum's pqueue.go, is a mutex-per-slot ordering buffer, not a
// priority queue), so this is built directly on the standard library's
// container/heap, which exists exactly to back a type like this one.
package tq

import (
	"container/heap"

	"github.com/go-rtfm/rtfm"
)

// Entry is one pending activation: the instant it becomes due, the
// timer-queue tag identifying which scheduled task it resumes, and the slot
// in that task's input array holding its payload.
type Entry struct {
	When rtfm.Instant
	Task uint8
	Slot uint8

	seq uint64 // insertion order, for stable tie-breaking
}

// Heap is the timer queue's storage. Capacity is fixed at construction to
// the sum of capacities of every schedule-able task (spec.md §3); mutations
// only ever happen under the timer-queue ceiling lock, so Heap itself does
// no locking of its own.
type Heap struct {
	entries  []Entry
	capacity int
	nextSeq  uint64
}

// New returns an empty heap with room for capacity entries.
func New(capacity int) *Heap {
	return &Heap{entries: make([]Entry, 0, capacity), capacity: capacity}
}

// Len implements container/heap's Len (also a convenience for callers).
func (h *Heap) Len() int { return len(h.entries) }

// Less implements container/heap.Interface: instants are ordered wrap-safe;
// ties break by insertion order (spec.md §5: "ties broken by insertion
// order").
func (h *Heap) Less(i, j int) bool {
	c := h.entries[i].When.Compare(h.entries[j].When)
	if c != 0 {
		return c < 0
	}
	return h.entries[i].seq < h.entries[j].seq
}

// Swap implements container/heap.Interface.
func (h *Heap) Swap(i, j int) { h.entries[i], h.entries[j] = h.entries[j], h.entries[i] }

// Push implements container/heap.Interface. Callers should use Enqueue.
func (h *Heap) Push(x any) {
	h.entries = append(h.entries, x.(Entry))
}

// Pop implements container/heap.Interface. Callers should use Dequeue.
func (h *Heap) Pop() any {
	old := h.entries
	n := len(old)
	e := old[n-1]
	h.entries = old[:n-1]
	return e
}

// Enqueue pushes e and sifts it up. It reports false if the heap is already
// at capacity — unreachable on analysis-admitted call sites (spec.md §7),
// present only as a defensive bound.
func (h *Heap) Enqueue(e Entry) bool {
	if len(h.entries) >= h.capacity {
		return false
	}
	e.seq = h.nextSeq
	h.nextSeq++
	heap.Push(h, e)
	return true
}

// Peek returns the root entry (the next one due) without removing it.
func (h *Heap) Peek() (Entry, bool) {
	if len(h.entries) == 0 {
		return Entry{}, false
	}
	return h.entries[0], true
}

// Dequeue pops the root entry and sifts down.
func (h *Heap) Dequeue() (Entry, bool) {
	if len(h.entries) == 0 {
		return Entry{}, false
	}
	return heap.Pop(h).(Entry), true
}

// PopDue removes and returns, in due order, every entry whose When is not
// after now. Used by the SysTick body to drain everything that has come
// due since the last tick.
func (h *Heap) PopDue(now rtfm.Instant) []Entry {
	var due []Entry
	for {
		e, ok := h.Peek()
		if !ok || e.When.After(now) {
			break
		}
		h.Dequeue()
		due = append(due, e)
	}
	return due
}
