package flow

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DropWhileBusy gates up so that a value reaches the consumer only while the
// consumer is idle, waiting for its next value. Values arriving while the
// consumer is still processing the previous one are discarded and passed to
// onDrop (which may be nil). Nothing is queued: at most the value being
// processed is held.
//
// The gate protects a handler that must not be re-entered, such as a network
// call triggered by repeated button presses: one invocation is in flight, and
// later triggers before it completes are dropped rather than replayed.
//
// The gated stream has exactly one logical consumer. up runs on a helper
// goroutine owned by the gate and joined before the gated stream returns, so
// it never outlives the pipeline. onDrop runs on that goroutine.
func DropWhileBusy[T any](up Stream[T], onDrop func(T)) Stream[T] {
	return func(ctx context.Context, emit func(T) error) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		var (
			mu   sync.Mutex
			busy bool
		)
		// Capacity 1 with the busy flag means a send never blocks.
		handoff := make(chan T, 1)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			defer close(handoff)
			return guard(gctx, func() error {
				return up(gctx, func(v T) error {
					mu.Lock()
					if busy {
						mu.Unlock()
						if onDrop != nil {
							onDrop(v)
						}
						return nil
					}
					busy = true
					mu.Unlock()

					handoff <- v
					return nil
				})
			})
		})

		var emitErr error
		for v := range handoff {
			if emitErr = emit(v); emitErr != nil {
				// busy stays set, so the producer drops until it sees cancel.
				cancel()
				break
			}
			mu.Lock()
			busy = false
			mu.Unlock()
		}

		for range handoff {
		}
		err := g.Wait()
		if emitErr != nil {
			return emitErr
		}
		return err
	}
}
