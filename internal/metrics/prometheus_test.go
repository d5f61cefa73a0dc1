package metrics

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lrucache/internal/cache"
)

func TestPrometheus_RecordsCacheSignals(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheus(reg, "test")
	require.NoError(t, err)

	c, err := cache.New(cache.Config[int64]{Capacity: 1, Metrics: p},
		cache.StoreFunc[int64](func(_ context.Context, key string) (int64, error) {
			return strconv.ParseInt(key, 10, 64)
		}))
	require.NoError(t, err)
	require.NoError(t, c.Start())
	t.Cleanup(c.Stop)
	require.NoError(t, RegisterGauges(reg, "test", c.Stats))

	ctx := context.Background()
	for _, k := range []string{"1", "1", "2", "bad"} {
		_, _ = c.Get(ctx, k)
	}
	drainCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, c.Drain(drainCtx))

	assert.Equal(t, 1.0, testutil.ToFloat64(p.hits))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.misses))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.fetches.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.fetches.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.evictions))
	assert.Equal(t, 0.0, testutil.ToFloat64(p.bookkeepingErrors))

	n, err := testutil.GatherAndCount(reg, "test_cache_resident_entries", "test_cache_pending_commands")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPrometheus_FetchDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheus(reg, "")
	require.NoError(t, err)

	p.RecordFetch(10*time.Millisecond, nil)
	p.RecordFetch(time.Second, errors.New("x"))

	n, err := testutil.GatherAndCount(reg, "store_fetch_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, testutil.CollectAndCount(p.fetchDuration))
}

func TestNewPrometheus_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheus(reg, "dup")
	require.NoError(t, err)

	_, err = NewPrometheus(reg, "dup")
	var already prometheus.AlreadyRegisteredError
	require.ErrorAs(t, err, &already)
}
