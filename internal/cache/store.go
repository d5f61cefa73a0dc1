package cache

import "context"

// Store is the slow backing store the cache reads through on a miss.
//
// Fetch may fail; the error is handed back to the caller of Get unchanged.
// Retry policy, if any, belongs to the Store implementation.
type Store[V any] interface {
	Fetch(ctx context.Context, key string) (V, error)
}

// StoreFunc adapts a plain function to the Store interface.
type StoreFunc[V any] func(ctx context.Context, key string) (V, error)

// Fetch calls f(ctx, key).
func (f StoreFunc[V]) Fetch(ctx context.Context, key string) (V, error) {
	return f(ctx, key)
}
