package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"lrucache/internal/cache"
)

// Slow delays every fetch by Latency before delegating to Next.
type Slow[V any] struct {
	Next    cache.Store[V]
	Latency time.Duration
}

// Fetch waits Latency, or until ctx is done, then delegates to Next.
func (s Slow[V]) Fetch(ctx context.Context, key string) (V, error) {
	if s.Latency > 0 {
		timer := time.NewTimer(s.Latency)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return s.Next.Fetch(ctx, key)
}

// RateLimited waits on a token bucket before each fetch.
type RateLimited[V any] struct {
	next    cache.Store[V]
	limiter *rate.Limiter
}

// NewRateLimited allows perSecond fetches per second with the given burst.
// A burst below 1 is raised to 1.
func NewRateLimited[V any](next cache.Store[V], perSecond float64, burst int) *RateLimited[V] {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited[V]{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Fetch blocks until the limiter grants a token, then delegates.
func (r *RateLimited[V]) Fetch(ctx context.Context, key string) (V, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		var zero V
		return zero, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.Fetch(ctx, key)
}

// Retrying retries failed fetches up to Attempts times in total, sleeping
// Interval between attempts. ErrNotFound and context errors are final.
type Retrying[V any] struct {
	Next     cache.Store[V]
	Attempts int
	Interval time.Duration
}

// Fetch returns the first successful result or the last error.
func (r Retrying[V]) Fetch(ctx context.Context, key string) (V, error) {
	var zero V
	attempts := max(r.Attempts, 1)

	var err error
	for attempt := range attempts {
		var v V
		v, err = r.Next.Fetch(ctx, key)
		if err == nil {
			return v, nil
		}
		if !retryable(err) || attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, errors.Join(err, ctx.Err())
		case <-time.After(r.Interval):
		}
	}
	return zero, err
}

func retryable(err error) bool {
	return !errors.Is(err, ErrNotFound) &&
		!errors.Is(err, ErrInvalidKey) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// Map converts the values of next with fn.
func Map[From, To any](next cache.Store[From], fn func(From) (To, error)) cache.Store[To] {
	return cache.StoreFunc[To](func(ctx context.Context, key string) (To, error) {
		v, err := next.Fetch(ctx, key)
		if err != nil {
			var zero To
			return zero, err
		}
		return fn(v)
	})
}
