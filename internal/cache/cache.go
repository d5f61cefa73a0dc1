package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Config controls cache capacity and maintenance behavior.
//
//   - Capacity must be positive; it is fixed for the cache's lifetime.
//   - QueueSize <= 0 means an unbounded command queue: Get never waits on
//     bookkeeping. QueueSize > 0 bounds the queue and Get blocks while it is
//     full.
//   - FetchTimeout, if positive, bounds each backing-store fetch. Fetches
//     do not inherit cancellation from the Get that started them.
//   - Logger and Metrics default to discarding implementations.
//   - OnEvict, if set, runs on the maintenance goroutine after each eviction.
type Config[V any] struct {
	Capacity     int
	QueueSize    int
	FetchTimeout time.Duration
	Logger       *slog.Logger
	Metrics      MetricsCollector
	OnEvict      func(key string, value V)
}

// Cache is a read-through LRU cache in front of a Store.
//
// The entry table answers Get concurrently. Recency ordering is kept by a
// separate list that only the maintenance goroutine mutates: every Get
// enqueues exactly one command and returns without waiting for it.
//
// Ownership model:
// Cache owns its maintenance goroutine. Start spawns it, Stop ends it.
type Cache[V any] struct {
	capacity     int
	fetchTimeout time.Duration
	store        Store[V]
	table        *table[V]

	// mu guards recency. The worker holds it while applying a command and
	// Snapshot holds it while copying.
	mu      sync.Mutex
	recency *recencyList

	queue   commandQueue
	onEvict func(key string, value V)
	logger  *slog.Logger
	metrics MetricsCollector

	// Goroutine ownership.
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	life    sync.Mutex
	started bool
	closed  atomic.Bool

	hits              atomic.Int64
	misses            atomic.Int64
	fetches           atomic.Int64
	fetchErrors       atomic.Int64
	evictions         atomic.Int64
	bookkeepingErrors atomic.Int64
}

// entry is an evicted (key, value) pair handed to the OnEvict hook.
type entry[V any] struct {
	key   string
	value V
}

// Stats is a point-in-time view of cache counters.
type Stats struct {
	Hits              int64
	Misses            int64
	Fetches           int64
	FetchErrors       int64
	Evictions         int64
	BookkeepingErrors int64
	// Pending is the number of commands waiting for the worker.
	Pending int
	// Resident is the entry table size.
	Resident int
}

// New constructs a cache over store. The maintenance worker is not running
// until Start is called; commands issued before that wait in the queue.
func New[V any](cfg Config[V], store Store[V]) (*Cache[V], error) {
	if cfg.Capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if store == nil {
		return nil, ErrNilStore
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Cache[V]{
		capacity:     cfg.Capacity,
		fetchTimeout: cfg.FetchTimeout,
		store:        store,
		table:        newTable[V](cfg.Capacity),
		recency:      newRecencyList(cfg.Capacity),
		queue:        newCommandQueue(cfg.QueueSize),
		onEvict:      cfg.OnEvict,
		logger:       logger.With("component", "lrucache"),
		metrics:      metrics,
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}, nil
}

// Start spawns the maintenance goroutine.
func (c *Cache[V]) Start() error {
	c.life.Lock()
	defer c.life.Unlock()

	if c.closed.Load() {
		return ErrClosed
	}
	if c.started {
		return ErrAlreadyStarted
	}
	c.started = true

	go c.maintenanceLoop()
	c.logger.Info("maintenance worker started", "capacity", c.capacity, "pending", c.queue.len())
	return nil
}

// Stop signals the maintenance goroutine to exit and returns immediately.
//
// Queued commands are discarded, so the recency order is frozen at whatever
// point the worker had reached. Get fails with ErrClosed afterwards.
// Stop is safe to call multiple times; use Done to wait for the worker.
func (c *Cache[V]) Stop() {
	c.life.Lock()
	if c.closed.Load() {
		c.life.Unlock()
		return
	}
	c.closed.Store(true)
	started := c.started
	c.life.Unlock()

	c.cancel()
	dropped := c.queue.close()
	if !started {
		close(c.done)
	}
	c.logger.Info("maintenance worker stopping", "discarded", dropped)
}

// Done returns a channel that is closed once the maintenance goroutine has
// exited after Stop.
func (c *Cache[V]) Done() <-chan struct{} {
	return c.done
}

// Get returns the value for key, fetching it from the backing store on a
// miss.
//
// Concurrent misses on the same key share one fetch: the caller that ran it
// records the insert, the others observe a hit. A failed fetch leaves no
// entry and enqueues nothing; its error is returned unchanged.
//
// ctx bounds only this caller's wait. The shared fetch keeps running when
// the caller that started it gives up, limited by Config.FetchTimeout.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, error) {
	var zero V
	if c.closed.Load() {
		return zero, ErrClosed
	}

	if v, ok := c.table.load(key); ok {
		c.hit(key)
		return v, nil
	}

	// The flight outlives any single caller: its fetch is detached from ctx
	// and each caller waits on its own ctx. inserted is written by the flight
	// and read only after its result has been received.
	inserted := false
	flight := c.table.flights.DoChan(key, func() (any, error) {
		// Another flight may have completed between the load above and now.
		if v, ok := c.table.load(key); ok {
			return v, nil
		}

		fetchCtx := context.WithoutCancel(ctx)
		if c.fetchTimeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(fetchCtx, c.fetchTimeout)
			defer cancel()
		}

		start := time.Now()
		v, err := c.store.Fetch(fetchCtx, key)
		c.fetched(time.Since(start), err)
		if err != nil {
			return nil, err
		}

		// Insert before enqueueing: an insert command must never reach the
		// worker for a key the table does not hold. Enqueueing inside the
		// flight orders it ahead of the followers' touches.
		c.table.store(key, v)
		c.misses.Add(1)
		c.metrics.RecordMiss()
		c.enqueue(command{op: opInsertEvictIfFull, key: key})
		inserted = true
		return v, nil
	})

	var res singleflight.Result
	select {
	case res = <-flight:
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	if res.Err != nil {
		return zero, res.Err
	}

	if !inserted {
		c.hit(key)
	}

	v, _ := res.Val.(V)
	return v, nil
}

// Snapshot returns the recency order, MRU -> LRU.
//
// It is a debug helper. The worker may lag behind Get, so the result can
// transiently disagree with the entry table; call Drain first for a settled
// view of a quiescent cache.
func (c *Cache[V]) Snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recency.keys()
}

// Drain blocks until every command enqueued before the call has been
// applied. It returns ErrClosed if the cache stops first.
func (c *Cache[V]) Drain(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}

	barrier := make(chan struct{})
	if err := c.queue.put(command{op: opBarrier, barrier: barrier}); err != nil {
		return err
	}

	select {
	case <-barrier:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of resident entries.
func (c *Cache[V]) Len() int {
	return c.table.len()
}

// Contains reports whether key is resident without touching its recency.
func (c *Cache[V]) Contains(key string) bool {
	_, ok := c.table.load(key)
	return ok
}

// Capacity returns the configured capacity.
func (c *Cache[V]) Capacity() int {
	return c.capacity
}

// Stats returns current counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Hits:              c.hits.Load(),
		Misses:            c.misses.Load(),
		Fetches:           c.fetches.Load(),
		FetchErrors:       c.fetchErrors.Load(),
		Evictions:         c.evictions.Load(),
		BookkeepingErrors: c.bookkeepingErrors.Load(),
		Pending:           c.queue.len(),
		Resident:          c.table.len(),
	}
}

func (c *Cache[V]) hit(key string) {
	c.hits.Add(1)
	c.metrics.RecordHit()
	c.enqueue(command{op: opMoveToFront, key: key})
}

func (c *Cache[V]) fetched(d time.Duration, err error) {
	c.fetches.Add(1)
	if err != nil {
		c.fetchErrors.Add(1)
	}
	c.metrics.RecordFetch(d, err)
}

// enqueue is fire-and-forget. The only failure is a concurrent Stop, after
// which the command would be discarded anyway.
func (c *Cache[V]) enqueue(cmd command) {
	if err := c.queue.put(cmd); err != nil {
		c.logger.Debug("command dropped", "op", cmd.op.String(), "key", cmd.key, "error", err)
	}
}
