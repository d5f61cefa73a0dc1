package cache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Workiva/go-datastructures/queue"
)

type opKind uint8

const (
	opMoveToFront opKind = iota + 1
	opInsertEvictIfFull
	opBarrier
)

func (o opKind) String() string {
	switch o {
	case opMoveToFront:
		return "move_to_front"
	case opInsertEvictIfFull:
		return "insert_evict_if_full"
	case opBarrier:
		return "barrier"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// command is one pending recency mutation.
// barrier is only set for opBarrier and is closed once the worker reaches it.
type command struct {
	op      opKind
	key     string
	barrier chan struct{}
}

// commandQueue is a multi-producer, single-consumer FIFO of commands.
//
// put and take return ErrClosed once close has been called. close returns
// the number of commands that were discarded without being applied.
type commandQueue interface {
	put(cmd command) error
	take() (command, error)
	len() int
	close() int
}

func newCommandQueue(size int) commandQueue {
	if size > 0 {
		return newBoundedQueue(size)
	}
	return newUnboundedQueue()
}

// unboundedQueue never blocks producers. The consumer blocks while it is empty.
type unboundedQueue struct {
	q *queue.Queue
}

func newUnboundedQueue() *unboundedQueue {
	return &unboundedQueue{q: queue.New(64)}
}

func (u *unboundedQueue) put(cmd command) error {
	if err := u.q.Put(cmd); err != nil {
		if errors.Is(err, queue.ErrDisposed) {
			return ErrClosed
		}
		return err
	}
	return nil
}

func (u *unboundedQueue) take() (command, error) {
	items, err := u.q.Get(1)
	if err != nil {
		if errors.Is(err, queue.ErrDisposed) {
			return command{}, ErrClosed
		}
		return command{}, err
	}
	if len(items) == 0 {
		return command{}, errors.New("empty dequeue")
	}
	cmd, ok := items[0].(command)
	if !ok {
		return command{}, fmt.Errorf("unexpected queue item %T", items[0])
	}
	return cmd, nil
}

func (u *unboundedQueue) len() int { return int(u.q.Len()) }

func (u *unboundedQueue) close() int {
	return len(u.q.Dispose())
}

// boundedQueue applies backpressure: put blocks while the buffer is full and
// is released by close.
type boundedQueue struct {
	ch   chan command
	done chan struct{}
	once sync.Once
}

func newBoundedQueue(size int) *boundedQueue {
	return &boundedQueue{
		ch:   make(chan command, size),
		done: make(chan struct{}),
	}
}

func (b *boundedQueue) put(cmd command) error {
	select {
	case <-b.done:
		return ErrClosed
	default:
	}

	select {
	case b.ch <- cmd:
		return nil
	case <-b.done:
		return ErrClosed
	}
}

func (b *boundedQueue) take() (command, error) {
	select {
	case <-b.done:
		return command{}, ErrClosed
	default:
	}

	select {
	case cmd := <-b.ch:
		return cmd, nil
	case <-b.done:
		return command{}, ErrClosed
	}
}

func (b *boundedQueue) len() int { return len(b.ch) }

// close leaves b.ch open: producers may still be selecting on it.
func (b *boundedQueue) close() int {
	dropped := 0
	b.once.Do(func() {
		close(b.done)
		dropped = len(b.ch)
	})
	return dropped
}
