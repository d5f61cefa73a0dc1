package cache

import (
	"errors"
	"fmt"
)

// maintenanceLoop is the only writer of the recency list.
//
// It applies commands strictly in arrival order, one at a time, and exits as
// soon as the cache is stopped. Commands still queued at that point are
// discarded.
func (c *Cache[V]) maintenanceLoop() {
	defer close(c.done)

	for {
		cmd, err := c.queue.take()
		if err != nil {
			if errors.Is(err, ErrClosed) {
				return
			}
			c.bookkeepingFailed(&BookkeepingError{Op: "dequeue", Cause: err})
			continue
		}

		// Stop raced with the dequeue.
		if c.ctx.Err() != nil {
			return
		}

		c.execute(cmd)
	}
}

// execute applies one command. A failure, including a panic in the
// eviction hook, is reported and swallowed so the loop keeps running.
func (c *Cache[V]) execute(cmd command) {
	defer func() {
		if r := recover(); r != nil {
			c.bookkeepingFailed(&BookkeepingError{
				Op:    cmd.op.String(),
				Key:   cmd.key,
				Cause: fmt.Errorf("panic: %v", r),
			})
		}
	}()

	victim, evicted, err := c.apply(cmd)
	if err != nil {
		c.bookkeepingFailed(&BookkeepingError{Op: cmd.op.String(), Key: cmd.key, Cause: err})
		return
	}
	if evicted {
		c.evicted(victim)
	}
}

// apply mutates the recency list under c.mu so Snapshot never sees a
// half-applied command. The eviction hook runs later, outside the lock.
func (c *Cache[V]) apply(cmd command) (victim entry[V], evicted bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch cmd.op {
	case opMoveToFront:
		c.recency.moveToFront(cmd.key)

	case opInsertEvictIfFull:
		if c.recency.contains(cmd.key) {
			c.recency.moveToFront(cmd.key)
			return victim, false, nil
		}
		if c.recency.len() >= c.capacity {
			if tail, ok := c.recency.removeBack(); ok {
				victim.key = tail
				victim.value, evicted = c.table.remove(tail)
			}
		}
		c.recency.pushFront(cmd.key)

	case opBarrier:
		close(cmd.barrier)

	default:
		return victim, false, fmt.Errorf("%w: %s", errUnknownCommand, cmd.op)
	}
	return victim, evicted, nil
}

func (c *Cache[V]) evicted(victim entry[V]) {
	c.evictions.Add(1)
	c.metrics.RecordEviction()
	c.logger.Debug("evicted", "key", victim.key)

	if c.onEvict != nil {
		c.onEvict(victim.key, victim.value)
	}
}

func (c *Cache[V]) bookkeepingFailed(err *BookkeepingError) {
	c.bookkeepingErrors.Add(1)
	c.metrics.RecordBookkeepingError()
	c.logger.Error("bookkeeping command failed", "op", err.Op, "key", err.Key, "error", err)
}
