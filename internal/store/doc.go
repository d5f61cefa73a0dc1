// Package store provides backing stores for the cache and decorators that
// shape how they are called.
//
// Backends: Redis (go-redis), Postgres (pgx) and ParseInt, an in-process
// demo store. Decorators: Slow adds fixed latency, RateLimited caps fetch
// rate, Retrying retries transient failures, Map converts value types.
//
// Every backend reports an absent key as ErrNotFound so callers can tell it
// apart from an outage with errors.Is.
package store
