package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis reads string values stored under Prefix+key.
type Redis struct {
	client redis.Cmdable
	prefix string
}

// NewRedis reads through client. prefix is prepended to every key.
func NewRedis(client redis.Cmdable, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// Fetch returns the string stored under the prefixed key. A missing key is
// reported as ErrNotFound.
func (r *Redis) Fetch(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("redis get %q: %w", r.prefix+key, err)
	}
	return v, nil
}

// ConnectRedis parses url and pings the server until it answers, trying up
// to attempts times with interval between tries, all within timeout.
func ConnectRedis(ctx context.Context, url string, attempts int, interval, timeout time.Duration) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	attempts = max(attempts, 1)

	var lastErr error
	for attempt := range attempts {
		client := redis.NewClient(opts)
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
		_ = client.Close()

		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, lastErr, ctx.Err())
		case <-time.After(interval):
		}
	}
	return nil, errors.Join(ErrRedisNotReady, lastErr)
}
