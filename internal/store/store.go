package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/cardinal/internal/bus"
	"github.com/roach88/cardinal/internal/flow"
)

// Reducer maps the current state and an action to the next state.
// Reducers must be pure; they run under the store's state lock.
type Reducer[S any, A any] func(S, A) S

// Store owns one state value of type S, an action bus of A and a side-effect
// bus of E.
//
// Thread-safety model:
//   - Dispatch, State, Subscribe*, Actions, Dispose: safe from any goroutine
//   - Reduce callbacks: serialized by the state lock
//
// INVARIANTS:
//   - state is replaced only through update, never mutated in place
//   - a panicking reducer leaves state untouched
//   - after Dispose, Dispatch and effect publication are no-ops
type Store[S any, A flow.Action, E any] struct {
	mu    sync.Mutex // guards state and ordering of state bus sends
	state S
	clock *Clock

	actions *bus.Bus[A]
	effects *bus.Bus[E]
	states  *bus.Bus[S]

	disposed atomic.Bool

	runMu   sync.Mutex // guards closing and running
	closing bool
	running int           // pipelines started through Pipeline.Start
	drained chan struct{} // closed once closing and running reaches zero

	sched    flow.Scheduler
	group    *errgroup.Group // default scheduler, nil when one was supplied
	logger   *slog.Logger
	recorder Recorder
	ids      flow.IDGenerator
}

// New creates a store holding initial.
func New[S any, A flow.Action, E any](initial S, opts ...Option) *Store[S, A, E] {
	cfg := settings{}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Store[S, A, E]{
		state:    initial,
		clock:    NewClock(),
		actions:  bus.New[A](),
		effects:  bus.New[E](),
		states:   bus.New[S](),
		sched:    cfg.scheduler,
		logger:   cfg.logger,
		recorder: cfg.recorder,
		ids:      cfg.ids,
		drained:  make(chan struct{}),
	}

	if s.sched == nil {
		s.group = new(errgroup.Group)
		s.sched = s.group
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.ids == nil {
		s.ids = flow.UUIDv7Generator{}
	}

	return s
}

// Dispatch pushes a onto the action bus and returns without waiting for any
// pipeline. After disposal it does nothing.
//
// Returns ErrInvalidAction for a nil action or one with an invalid tag.
func (s *Store[S, A, E]) Dispatch(a A) error {
	if any(a) == nil {
		return fmt.Errorf("%w: nil action", ErrInvalidAction)
	}
	tag := a.Tag()
	if !tag.Valid() {
		return fmt.Errorf("%w: %T has tag %q", ErrInvalidAction, a, tag)
	}

	if !s.actions.Send(a) {
		s.logger.Debug("dispatch after dispose ignored", "tag", tag)
		return nil
	}

	s.recorder.ActionDispatched(tag)
	s.logger.Debug("action dispatched", "tag", tag)
	return nil
}

// State returns the most recently applied state. Never blocks on pipelines.
func (s *Store[S, A, E]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Version returns how many states have been applied since construction.
func (s *Store[S, A, E]) Version() int64 {
	return s.clock.Current()
}

// Disposed reports whether Dispose has been called.
func (s *Store[S, A, E]) Disposed() bool {
	return s.disposed.Load()
}

// Actions opens a subscription on the action bus and returns a builder over
// it. Actions dispatched from now on are buffered until the pipeline starts.
//
// The builder's source is single-use: start one flow built from it.
func (s *Store[S, A, E]) Actions() *flow.Builder[A] {
	return flow.NewBuilder(flow.FromSubscription(s.actions.Subscribe()))
}

// Pipe binds a flow of actions to this store so that store operators
// (Reduce, SideEffect, TriggerAction, TransformAction) can be composed on it.
func (s *Store[S, A, E]) Pipe(f *flow.ActionFlow[A]) *Pipeline[S, A, E] {
	return &Pipeline[S, A, E]{store: s, flow: f}
}

// SubscribeState registers fn for state changes until ctx is done or the
// store is disposed. fn is first called with the current state, then with
// every applied state in apply order, from a scheduler goroutine.
func (s *Store[S, A, E]) SubscribeState(ctx context.Context, fn func(S)) *flow.Handle {
	s.mu.Lock()
	sub := s.states.Subscribe()
	current := s.state
	s.mu.Unlock()

	replay := flow.Stream[S](func(ctx context.Context, emit func(S) error) error {
		if err := emit(current); err != nil {
			sub.Cancel()
			return err
		}
		return flow.FromSubscription(sub)(ctx, emit)
	})

	return observe(ctx, s, flow.Of(replay).OnEach(func(_ context.Context, v S) error {
		fn(v)
		return nil
	}))
}

// SubscribeEffects registers fn for side effects published after this call,
// until ctx is done or the store is disposed. There is no replay.
func (s *Store[S, A, E]) SubscribeEffects(ctx context.Context, fn func(E)) *flow.Handle {
	sub := s.effects.Subscribe()

	return observe(ctx, s, flow.Of(flow.FromSubscription(sub)).OnEach(func(_ context.Context, e E) error {
		fn(e)
		return nil
	}))
}

// BindActions dispatches every value of each stream, typically view events
// bridged with flow.FromCallback. The bindings live until ctx is done.
func (s *Store[S, A, E]) BindActions(ctx context.Context, streams ...flow.Stream[A]) []*flow.Handle {
	handles := make([]*flow.Handle, 0, len(streams))
	for _, src := range streams {
		handles = append(handles, observe(ctx, s, flow.Of(src).OnEach(func(_ context.Context, a A) error {
			return s.Dispatch(a)
		})))
	}
	return handles
}

// observe starts a store-owned flow on the store scheduler.
func observe[S any, A flow.Action, E any, T any](ctx context.Context, s *Store[S, A, E], f *flow.ActionFlow[T]) *flow.Handle {
	h, err := f.Start(ctx, s.sched, flow.WithIDGenerator(s.ids), flow.WithLogger(s.logger))
	if err != nil {
		// f is always built on a fresh source here.
		panic(err)
	}
	return h
}

// Dispose closes the action, effect and state buses. Started pipelines and
// observers see end-of-stream and stop normally. Idempotent.
func (s *Store[S, A, E]) Dispose() {
	if !s.disposed.CompareAndSwap(false, true) {
		return
	}
	s.markClosing()

	s.actions.Close()
	s.effects.Close()

	s.mu.Lock()
	s.states.Close()
	version := s.clock.Current()
	s.mu.Unlock()

	s.logger.Info("store disposed", "version", version)
}

// Shutdown closes the action bus, waits for pipelines started through
// Pipeline.Start to drain it, then disposes the store. If ctx ends first the
// store is disposed immediately and ctx.Err() is returned.
//
// Once Shutdown has begun, Pipeline.Start returns ErrStoreClosed.
func (s *Store[S, A, E]) Shutdown(ctx context.Context) error {
	s.markClosing()
	s.actions.Close()

	select {
	case <-s.drained:
		s.Dispose()
		return nil
	case <-ctx.Done():
		s.Dispose()
		return ctx.Err()
	}
}

// beginPipeline registers a pipeline start. It reports false once the store
// is closing.
func (s *Store[S, A, E]) beginPipeline() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.closing {
		return false
	}
	s.running++
	return true
}

func (s *Store[S, A, E]) endPipeline() {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.running--
	if s.closing && s.running == 0 {
		close(s.drained)
	}
}

func (s *Store[S, A, E]) markClosing() {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.closing {
		return
	}
	s.closing = true
	if s.running == 0 {
		close(s.drained)
	}
}

// Wait blocks until every task on the default scheduler has finished and
// returns the first fault. Returns nil at once when WithScheduler was used.
func (s *Store[S, A, E]) Wait() error {
	if s.group == nil {
		return nil
	}
	return s.group.Wait()
}

// update applies fn to the current state under the state lock and notifies
// state observers.
func (s *Store[S, A, E]) update(fn func(S) S) S {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := fn(s.state)
	s.state = next
	version := s.clock.Next()
	s.states.Send(next)

	s.recorder.StateApplied()
	s.logger.Debug("state applied", "version", version)
	return next
}

// publish sends e to effect observers. No-op after disposal.
func (s *Store[S, A, E]) publish(e E) {
	if !s.effects.Send(e) {
		s.logger.Debug("effect after dispose ignored")
		return
	}
	s.recorder.EffectPublished()
	s.logger.Debug("effect published", "effect", fmt.Sprintf("%T", e))
}

func (s *Store[S, A, E]) dropped(a A) {
	s.recorder.ActionDropped(a.Tag())
	s.logger.Debug("action dropped while busy", "tag", a.Tag())
}
