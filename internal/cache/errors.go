package cache

import (
	"errors"
	"fmt"
)

var (
	ErrClosed          = errors.New("cache is closed")
	ErrAlreadyStarted  = errors.New("cache maintenance worker already started")
	ErrInvalidCapacity = errors.New("cache capacity must be positive")
	ErrNilStore        = errors.New("cache backing store is nil")

	errUnknownCommand = errors.New("unknown command")
)

// BookkeepingError reports a failure while the maintenance worker applied a
// queued command. It is logged and counted, never returned from Get.
type BookkeepingError struct {
	Op    string
	Key   string
	Cause error
}

func (e *BookkeepingError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("bookkeeping %s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("bookkeeping %s %q: %v", e.Op, e.Key, e.Cause)
}

func (e *BookkeepingError) Unwrap() error { return e.Cause }
