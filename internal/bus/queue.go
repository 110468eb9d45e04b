package bus

import (
	"context"
	"sync"
)

// queue is a thread-safe unbounded FIFO queue owned by one subscription.
//
// The queue is unbounded so a burst of sends before the consumer drains never
// loses values. The signal channel (buffered, size 1) coalesces wakeups and is
// closed on close/abort so waiters never hang.
type queue[T any] struct {
	mu      sync.Mutex
	items   []T
	closed  bool // no more pushes; drain then end
	aborted bool // ended now; buffered items discarded
	signal  chan struct{}
}

func newQueue[T any]() *queue[T] {
	return &queue[T]{
		items:  make([]T, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// push appends v. Returns false if the queue no longer accepts values.
func (q *queue[T]) push(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || q.aborted {
		return false
	}

	q.items = append(q.items, v)

	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// tryPop removes and returns the front value without blocking.
// ended reports that the queue is empty and will never yield again.
func (q *queue[T]) tryPop() (v T, ok bool, ended bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.aborted {
		return v, false, true
	}
	if len(q.items) == 0 {
		return v, false, q.closed
	}

	v = q.items[0]

	// Zero the slot so the backing array does not pin the value.
	var zero T
	q.items[0] = zero

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return v, true, false
}

// pop blocks until a value is available, the queue ends, or ctx is done.
func (q *queue[T]) pop(ctx context.Context) (T, bool) {
	for {
		v, ok, ended := q.tryPop()
		if ok {
			return v, true
		}
		if ended {
			var zero T
			return zero, false
		}

		select {
		case <-ctx.Done():
			var zero T
			return zero, false
		case <-q.signal:
			// Value pushed or queue ended; loop back to tryPop.
		}
	}
}

func (q *queue[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.aborted {
		return 0
	}
	return len(q.items)
}

// close stops accepting values. Buffered values remain poppable.
func (q *queue[T]) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || q.aborted {
		return
	}

	q.closed = true
	close(q.signal) // Wakes the waiter
}

// abort ends the queue immediately and discards buffered values.
func (q *queue[T]) abort() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.aborted {
		return
	}

	signalled := q.closed
	q.aborted = true
	q.items = nil
	if !signalled {
		close(q.signal)
	}
}
