package cache

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// table is the entry table: the single source of truth for residency.
//
// Any number of callers read and insert concurrently. Only the maintenance
// worker removes entries, and only as part of an eviction.
type table[V any] struct {
	mu      sync.RWMutex
	entries map[string]V

	// flights coalesces concurrent misses on the same key into one fetch.
	flights singleflight.Group
}

func newTable[V any](capacity int) *table[V] {
	return &table[V]{entries: make(map[string]V, capacity)}
}

func (t *table[V]) load(key string) (V, bool) {
	t.mu.RLock()
	v, ok := t.entries[key]
	t.mu.RUnlock()
	return v, ok
}

func (t *table[V]) store(key string, v V) {
	t.mu.Lock()
	t.entries[key] = v
	t.mu.Unlock()
}

func (t *table[V]) remove(key string) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.entries[key]
	if ok {
		delete(t.entries, key)
	}
	return v, ok
}

func (t *table[V]) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
