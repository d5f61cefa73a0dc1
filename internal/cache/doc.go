// Package cache implements a single-process, read-through LRU cache whose
// recency bookkeeping runs off the read path.
//
// Goals for this package:
//   - Serve Get from a concurrent entry table without locking the recency list
//   - Coalesce concurrent misses on one key into a single backing store fetch
//   - Keep LRU order with one maintenance goroutine applying queued commands
//     in FIFO order, so a sequential trace converges to exact LRU state
//   - Own and cleanly stop the maintenance goroutine (no leaks on shutdown)
//
// Recency lags the table by however long the queue takes to drain. Drain
// waits for that point; Snapshot reads the list without ever observing a
// half-applied command.
package cache
