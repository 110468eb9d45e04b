package flow

import (
	"context"
	"errors"

	"github.com/roach88/cardinal/internal/bus"
)

// Stream is a cold sequence of values.
//
// Calling a stream runs it: emit is called for every value, in order, on the
// calling goroutine, until the source ends (returns nil), emit returns an
// error (returned as-is), or ctx is done.
type Stream[T any] func(ctx context.Context, emit func(T) error) error

// FromSubscription streams the values of a bus subscription.
// The subscription is cancelled when the stream returns.
func FromSubscription[T any](sub *bus.Subscription[T]) Stream[T] {
	return func(ctx context.Context, emit func(T) error) error {
		defer sub.Cancel()
		for {
			v, ok := sub.Next(ctx)
			if !ok {
				return ctx.Err()
			}
			if err := emit(v); err != nil {
				return err
			}
		}
	}
}

// FromSlice streams the given values in order.
func FromSlice[T any](values ...T) Stream[T] {
	return func(ctx context.Context, emit func(T) error) error {
		for _, v := range values {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := emit(v); err != nil {
				return err
			}
		}
		return nil
	}
}

// FromCallback bridges a callback-based event source into a stream.
//
// register is called once when the stream runs; it installs the callback and
// returns the function that removes it. The unregister function runs when
// the stream's context is done. Values arriving faster than the stream is
// consumed are buffered.
//
//	clicks := flow.FromCallback(func(emit func(Click)) func() {
//	    button.OnClick(emit)
//	    return func() { button.OnClick(nil) }
//	})
func FromCallback[T any](register func(emit func(T)) (unregister func())) Stream[T] {
	return func(ctx context.Context, emit func(T) error) error {
		b := bus.New[T]()
		sub := b.Subscribe()
		unregister := register(func(v T) { b.Send(v) })
		defer func() {
			if unregister != nil {
				unregister()
			}
			b.Close()
		}()
		return FromSubscription(sub)(ctx, emit)
	}
}

func (s Stream[T]) filter(keep func(T) bool) Stream[T] {
	return func(ctx context.Context, emit func(T) error) error {
		return s(ctx, func(v T) error {
			if !keep(v) {
				return nil
			}
			return emit(v)
		})
	}
}

// limitReached stops upstream once a take has seen enough values.
// Each take uses its own instance so nested takes do not swallow each other.
type limitReached struct{}

func (*limitReached) Error() string { return "flow: limit reached" }

func (s Stream[T]) take(n int) Stream[T] {
	return func(ctx context.Context, emit func(T) error) error {
		stop := &limitReached{}
		seen := 0
		err := s(ctx, func(v T) error {
			seen++
			if err := emit(v); err != nil {
				return err
			}
			if seen >= n {
				return stop
			}
			return nil
		})
		if errors.Is(err, stop) {
			return nil
		}
		return err
	}
}

func (s Stream[T]) onEach(fn func(context.Context, T) error) Stream[T] {
	return func(ctx context.Context, emit func(T) error) error {
		return s(ctx, func(v T) error {
			if err := fn(ctx, v); err != nil {
				return err
			}
			return emit(v)
		})
	}
}

func mapStream[T, R any](s Stream[T], fn func(context.Context, T) (R, error)) Stream[R] {
	return func(ctx context.Context, emit func(R) error) error {
		return s(ctx, func(v T) error {
			r, err := fn(ctx, v)
			if err != nil {
				return err
			}
			return emit(r)
		})
	}
}

// DefaultFlowOnBuffer is the channel capacity between stages split by FlowOn.
const DefaultFlowOnBuffer = 64

// flowOn runs up as a task on sched and forwards its values, in order,
// through a buffered channel to the calling goroutine.
func flowOn[T any](up Stream[T], sched Scheduler, buffer int) Stream[T] {
	return func(ctx context.Context, emit func(T) error) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		ch := make(chan T, buffer)
		result := make(chan error, 1)

		sched.Go(func() error {
			err := guard(ctx, func() error {
				return up(ctx, func(v T) error {
					select {
					case ch <- v:
						return nil
					case <-ctx.Done():
						return ctx.Err()
					}
				})
			})
			close(ch)
			result <- err
			// The error travels downstream; the scheduler sees it through Start.
			return nil
		})

		for v := range ch {
			if err := emit(v); err != nil {
				cancel()
				<-result
				return err
			}
		}
		return <-result
	}
}

// guard runs fn, converting a panic into a HANDLER_PANIC error.
func guard(ctx context.Context, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPanicError(pipelineID(ctx), r)
		}
	}()
	return fn()
}
