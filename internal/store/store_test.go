package store

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lrucache/internal/cache"
)

func TestParseInt(t *testing.T) {
	ctx := context.Background()

	v, err := ParseInt{}.Fetch(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	_, err = ParseInt{}.Fetch(ctx, "forty-two")
	require.ErrorIs(t, err, ErrInvalidKey)
	var numErr *strconv.NumError
	assert.ErrorAs(t, err, &numErr)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = ParseInt{}.Fetch(canceled, "1")
	require.ErrorIs(t, err, context.Canceled)
}

func TestSlow_DelaysFetch(t *testing.T) {
	s := Slow[int64]{Next: ParseInt{}, Latency: 30 * time.Millisecond}

	start := time.Now()
	v, err := s.Fetch(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestSlow_HonoursContext(t *testing.T) {
	s := Slow[int64]{Next: ParseInt{}, Latency: time.Hour}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.Fetch(ctx, "7")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimited_SpacesFetches(t *testing.T) {
	r := NewRateLimited[int64](ParseInt{}, 20, 1)
	ctx := context.Background()

	start := time.Now()
	for i := range 3 {
		v, err := r.Fetch(ctx, strconv.Itoa(i))
		require.NoError(t, err)
		assert.Equal(t, int64(i), v)
	}
	// First token is free, the next two cost 50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestRateLimited_ContextCanceled(t *testing.T) {
	r := NewRateLimited[int64](ParseInt{}, 0.001, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := r.Fetch(ctx, "1") // consumes the single burst token
	require.NoError(t, err)
	_, err = r.Fetch(ctx, "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func flaky(failures int64, calls *atomic.Int64, failWith error) cache.Store[string] {
	return cache.StoreFunc[string](func(_ context.Context, key string) (string, error) {
		if calls.Add(1) <= failures {
			return "", failWith
		}
		return "v:" + key, nil
	})
}

func TestRetrying_RecoversFromTransientErrors(t *testing.T) {
	var calls atomic.Int64
	r := Retrying[string]{
		Next:     flaky(2, &calls, errors.New("connection reset")),
		Attempts: 3,
		Interval: time.Millisecond,
	}

	v, err := r.Fetch(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v:k", v)
	assert.Equal(t, int64(3), calls.Load())
}

func TestRetrying_GivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int64
	errDown := errors.New("down")
	r := Retrying[string]{Next: flaky(10, &calls, errDown), Attempts: 2, Interval: time.Millisecond}

	_, err := r.Fetch(context.Background(), "k")
	require.ErrorIs(t, err, errDown)
	assert.Equal(t, int64(2), calls.Load())
}

func TestRetrying_NotFoundIsFinal(t *testing.T) {
	var calls atomic.Int64
	r := Retrying[string]{Next: flaky(10, &calls, ErrNotFound), Attempts: 5, Interval: time.Millisecond}

	_, err := r.Fetch(context.Background(), "k")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int64(1), calls.Load())
}

func TestRetrying_ZeroAttemptsStillFetchesOnce(t *testing.T) {
	var calls atomic.Int64
	r := Retrying[string]{Next: flaky(0, &calls, nil)}

	v, err := r.Fetch(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v:k", v)
	assert.Equal(t, int64(1), calls.Load())
}

func TestMap(t *testing.T) {
	s := Map[int64, string](ParseInt{}, func(n int64) (string, error) {
		return strconv.FormatInt(n*n, 10), nil
	})

	v, err := s.Fetch(context.Background(), "12")
	require.NoError(t, err)
	assert.Equal(t, "144", v)

	_, err = s.Fetch(context.Background(), "x")
	require.ErrorIs(t, err, ErrInvalidKey)
}
