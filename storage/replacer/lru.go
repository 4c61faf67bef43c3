// Package replacer implements the buffer pool's victim-selection policy:
// an LRU list of unpinned frames with O(1) pin/unpin/victim, grounded on
// _examples/original_source/src/buffer/lru_replacer.cpp and the teacher's
// container/list-based buffer_pool.LRUCacheImpl.
package replacer

import (
	"container/list"
	"sync"
)

// LRU tracks unpinned frames, oldest-unpinned first, and selects the
// eviction victim. A frame is tracked iff its pin count is zero and it
// holds a valid page (spec.md §4.1 invariant). Internally serialized by a
// single mutex, per spec.md §4.1.
type LRU struct {
	mu       sync.Mutex
	order    *list.List
	position map[int32]*list.Element
}

// NewLRU returns an empty replacer. capacityHint sizes the backing map but
// does not otherwise bound the replacer (the buffer pool enforces the
// actual frame-count limit).
func NewLRU(capacityHint int) *LRU {
	return &LRU{
		order:    list.New(),
		position: make(map[int32]*list.Element, capacityHint),
	}
}

// Victim evicts and returns the least-recently-unpinned frame id. Returns
// false if no frame is tracked.
func (r *LRU) Victim() (int32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	front := r.order.Front()
	if front == nil {
		return 0, false
	}
	id := front.Value.(int32)
	r.removeLocked(id)
	return id, true
}

// Pin removes a frame from tracking, making it ineligible for eviction. A
// no-op if the frame isn't tracked (spec.md §4.1).
func (r *LRU) Pin(frameID int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(frameID)
}

// Unpin adds a frame to the tail of the tracking list if absent. If the
// frame is already tracked this is a no-op: its position is NOT refreshed.
// This preserves the reference semantics called out in spec.md §9 (Open
// Question: "least-recently-became-evictable", not true LRU recency).
func (r *LRU) Unpin(frameID int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.position[frameID]; ok {
		return
	}
	elem := r.order.PushBack(frameID)
	r.position[frameID] = elem
}

// Size returns the number of frames currently tracked (eligible for
// eviction).
func (r *LRU) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.order.Len()
}

func (r *LRU) removeLocked(frameID int32) {
	elem, ok := r.position[frameID]
	if !ok {
		return
	}
	r.order.Remove(elem)
	delete(r.position, frameID)
}
