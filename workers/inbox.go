package workers

import (
	"context"
	"sync"
)

// inbox is a FIFO queue shared by the workers of a pool. With a limit of 0
// it grows without bound and push never blocks.
type inbox[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	items    []T
	limit    int
	closed   bool
	maxDepth int
}

func newInbox[T any](limit int) *inbox[T] {
	q := &inbox[T]{limit: limit}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// wake releases every waiter when ctx is done.
func (q *inbox[T]) wake(ctx context.Context) func() bool {
	return context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.notEmpty.Broadcast()
		q.notFull.Broadcast()
		q.mu.Unlock()
	})
}

func (q *inbox[T]) push(ctx context.Context, item T) error {
	stop := q.wake(ctx)
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.limit > 0 && len(q.items) >= q.limit && !q.closed {
		if err := ctx.Err(); err != nil {
			return err
		}
		q.notFull.Wait()
	}
	if q.closed {
		return ErrPoolClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	q.items = append(q.items, item)
	if len(q.items) > q.maxDepth {
		q.maxDepth = len(q.items)
	}
	q.notEmpty.Signal()
	return nil
}

// pop blocks until an item is available. It returns false once the inbox is
// closed and drained, or when ctx is done.
func (q *inbox[T]) pop(ctx context.Context) (T, bool) {
	stop := q.wake(ctx)
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	for len(q.items) == 0 {
		if q.closed || ctx.Err() != nil {
			return zero, false
		}
		q.notEmpty.Wait()
	}
	if ctx.Err() != nil {
		return zero, false
	}

	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	q.notFull.Signal()
	return item, true
}

func (q *inbox[T]) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

func (q *inbox[T]) depth() (current, max int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items), q.maxDepth
}
