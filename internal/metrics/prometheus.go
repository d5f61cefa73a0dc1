// Package metrics exports cache signals to Prometheus.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"lrucache/internal/cache"
)

var _ cache.MetricsCollector = (*Prometheus)(nil)

// Prometheus implements cache.MetricsCollector with Prometheus collectors.
type Prometheus struct {
	hits              prometheus.Counter
	misses            prometheus.Counter
	fetches           *prometheus.CounterVec
	fetchDuration     prometheus.Histogram
	evictions         prometheus.Counter
	bookkeepingErrors prometheus.Counter
}

// NewPrometheus creates the collectors and registers them on reg.
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	p := &Prometheus{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Gets served from the entry table.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Gets that populated the entry table from the backing store.",
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_fetches_total",
			Help:      "Backing store fetches by result.",
		}, []string{"result"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_fetch_duration_seconds",
			Help:      "Backing store fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Entries evicted by the maintenance worker.",
		}),
		bookkeepingErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_bookkeeping_errors_total",
			Help:      "Queued recency commands that failed.",
		}),
	}

	for _, c := range []prometheus.Collector{
		p.hits, p.misses, p.fetches, p.fetchDuration, p.evictions, p.bookkeepingErrors,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) RecordHit()  { p.hits.Inc() }
func (p *Prometheus) RecordMiss() { p.misses.Inc() }

func (p *Prometheus) RecordFetch(duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.fetches.WithLabelValues(result).Inc()
	p.fetchDuration.Observe(duration.Seconds())
}

func (p *Prometheus) RecordEviction()         { p.evictions.Inc() }
func (p *Prometheus) RecordBookkeepingError() { p.bookkeepingErrors.Inc() }

// RegisterGauges exports queue depth and resident size, read from stats on
// every scrape.
func RegisterGauges(reg prometheus.Registerer, namespace string, stats func() cache.Stats) error {
	pending := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cache_pending_commands",
		Help:      "Recency commands waiting for the maintenance worker.",
	}, func() float64 { return float64(stats().Pending) })

	resident := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cache_resident_entries",
		Help:      "Entries in the entry table.",
	}, func() float64 { return float64(stats().Resident) })

	return errors.Join(reg.Register(pending), reg.Register(resident))
}
