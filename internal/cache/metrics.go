package cache

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives operational signals from a Cache.
// Implementations must be safe for concurrent use; RecordEviction and
// RecordBookkeepingError are called from the maintenance goroutine.
type MetricsCollector interface {
	// RecordHit is called for every Get served from the entry table,
	// including callers that waited on another caller's fetch.
	RecordHit()
	// RecordMiss is called once per fetch that populated the table.
	RecordMiss()
	// RecordFetch is called after every backing store fetch.
	RecordFetch(duration time.Duration, err error)
	RecordEviction()
	RecordBookkeepingError()
}

// NoopMetricsCollector discards everything.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordHit()                       {}
func (NoopMetricsCollector) RecordMiss()                      {}
func (NoopMetricsCollector) RecordFetch(time.Duration, error) {}
func (NoopMetricsCollector) RecordEviction()                  {}
func (NoopMetricsCollector) RecordBookkeepingError()          {}

// BasicMetricsCollector keeps in-memory counters.
type BasicMetricsCollector struct {
	Hits              atomic.Int64
	Misses            atomic.Int64
	Fetches           atomic.Int64
	FetchErrors       atomic.Int64
	FetchTotalNanos   atomic.Int64
	Evictions         atomic.Int64
	BookkeepingErrors atomic.Int64
}

func (b *BasicMetricsCollector) RecordHit()  { b.Hits.Add(1) }
func (b *BasicMetricsCollector) RecordMiss() { b.Misses.Add(1) }

func (b *BasicMetricsCollector) RecordFetch(duration time.Duration, err error) {
	b.Fetches.Add(1)
	b.FetchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FetchErrors.Add(1)
	}
}

func (b *BasicMetricsCollector) RecordEviction()         { b.Evictions.Add(1) }
func (b *BasicMetricsCollector) RecordBookkeepingError() { b.BookkeepingErrors.Add(1) }

// AvgFetch returns the mean fetch latency, or 0 before the first fetch.
func (b *BasicMetricsCollector) AvgFetch() time.Duration {
	n := b.Fetches.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(b.FetchTotalNanos.Load() / n)
}
