package bus

import (
	"context"
	"fmt"
	"sync"
)

// Bus is a multicast channel: every live subscription receives every value
// sent after it subscribed.
//
// Thread-safety model:
//   - Send, Subscribe, Close: safe from any goroutine
//   - Subscription.Next: one consumer per subscription
//
// INVARIANTS:
//   - Once closed, Send is a no-op and Subscribe returns an ended subscription
//   - Send never blocks on a consumer
type Bus[T any] struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription[T]
	nextID uint64
	closed bool
}

// New creates an open bus with no subscribers.
func New[T any]() *Bus[T] {
	return &Bus[T]{
		subs: make(map[uint64]*Subscription[T]),
	}
}

// Subscribe registers a new consumer.
//
// The returned subscription receives every value sent after Subscribe
// returns, in send order, until the bus closes or the subscription is
// cancelled. On a closed bus the subscription is already ended.
func (b *Bus[T]) Subscribe() *Subscription[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription[T]{
		bus: b,
		id:  b.nextID,
		q:   newQueue[T](),
	}

	if b.closed {
		sub.q.close()
		return sub
	}

	b.subs[sub.id] = sub
	return sub
}

// Send delivers v to all live subscribers.
// Returns false if the bus is closed; that is not an error.
func (b *Bus[T]) Send(v T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	for _, sub := range b.subs {
		sub.q.push(v)
	}

	return true
}

// Close marks the bus terminal. Live subscriptions drain already-buffered
// values and then observe end-of-stream. Idempotent.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for id, sub := range b.subs {
		sub.q.close()
		delete(b.subs, id)
	}
}

// Closed reports whether Close has been called.
func (b *Bus[T]) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Subscribers returns the number of live subscriptions.
func (b *Bus[T]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Bus[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Subscription is one consumer's attachment to a Bus.
// It owns its buffer and the capability to revoke itself.
type Subscription[T any] struct {
	bus  *Bus[T]
	id   uint64
	q    *queue[T]
	once sync.Once
}

// ID identifies the subscription within its bus (for logs).
func (s *Subscription[T]) ID() string {
	return fmt.Sprintf("sub-%d", s.id)
}

// Next blocks until the next value is available.
//
// Returns (zero, false) when the stream has ended (bus closed and drained, or
// subscription cancelled) or ctx is done. Callers distinguish the two with
// ctx.Err().
func (s *Subscription[T]) Next(ctx context.Context) (T, bool) {
	return s.q.pop(ctx)
}

// Len returns the number of buffered values.
func (s *Subscription[T]) Len() int {
	return s.q.len()
}

// Cancel detaches the subscription from the bus and discards buffered values.
// Idempotent; safe from any goroutine.
func (s *Subscription[T]) Cancel() {
	s.once.Do(func() {
		s.bus.remove(s.id)
		s.q.abort()
	})
}
