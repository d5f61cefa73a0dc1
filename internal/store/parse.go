package store

import (
	"context"
	"fmt"
	"strconv"
)

// ParseInt is a demo store whose value for a key is the key parsed as a
// base-10 int64.
type ParseInt struct{}

// Fetch parses key. Keys that are not base-10 int64 values wrap ErrInvalidKey.
func (ParseInt) Fetch(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %w", ErrInvalidKey, key, err)
	}
	return n, nil
}
