package buffer

import (
	"sync"
)

// Ring is a thread-safe bounded history buffer. Push evicts the oldest entry
// once the capacity is reached; eviction follows insertion order, not any
// timestamp carried by the entries.
type Ring[T any] struct {
	mu       sync.Mutex
	data     []T
	capacity int
}

// NewRing creates a Ring with the specified capacity.
func NewRing[T any](capacity int) *Ring[T] {
	return &Ring[T]{
		data:     make([]T, 0, capacity),
		capacity: capacity,
	}
}

// Push adds an item. If the ring is full, the oldest item is dropped.
func (r *Ring[T]) Push(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.data) >= r.capacity {
		// Drop oldest (shift left)
		r.data = r.data[1:]
	}
	r.data = append(r.data, item)
}

// Replace swaps the contents wholesale. Items are in insertion order; when
// there are more than capacity, only the most recent survive.
func (r *Ring[T]) Replace(items []T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n := len(items); n > r.capacity {
		items = items[n-r.capacity:]
	}
	r.data = append(r.data[:0], items...)
}

// Snapshot returns a copy of the contents, most recent first.
func (r *Ring[T]) Snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]T, len(r.data))
	for i, item := range r.data {
		out[len(r.data)-1-i] = item
	}
	return out
}

// Oldest returns a copy of the contents in insertion order.
func (r *Ring[T]) Oldest() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]T, len(r.data))
	copy(out, r.data)
	return out
}

// Len returns the current number of items.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}
