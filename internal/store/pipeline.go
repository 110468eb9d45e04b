package store

import (
	"context"

	"github.com/roach88/cardinal/internal/flow"
)

// Pipeline is an action flow bound to a Store. Store operators read and
// write the store; the remaining operators pass through to the flow.
//
// Like the flow it wraps, a Pipeline is single-use.
type Pipeline[S any, A flow.Action, E any] struct {
	store *Store[S, A, E]
	flow  *flow.ActionFlow[A]
}

func (p *Pipeline[S, A, E]) with(f *flow.ActionFlow[A]) *Pipeline[S, A, E] {
	return &Pipeline[S, A, E]{store: p.store, flow: f}
}

// Reduce applies reducer to the current state for every action and
// publishes the result as the new state before forwarding the action.
//
// All reduces on one store, across pipelines, are serialized.
func (p *Pipeline[S, A, E]) Reduce(reducer Reducer[S, A]) *Pipeline[S, A, E] {
	return p.with(p.flow.OnEach(func(_ context.Context, a A) error {
		p.store.update(func(s S) S {
			return reducer(s, a)
		})
		return nil
	}))
}

// TriggerAction dispatches derive(a) for every action a before forwarding a.
//
// A later stage that also observes the derived action's tag will see it
// again; feedback loops are not detected.
func (p *Pipeline[S, A, E]) TriggerAction(derive func(A) A) *Pipeline[S, A, E] {
	return p.with(p.flow.OnEach(func(_ context.Context, a A) error {
		return p.store.Dispatch(derive(a))
	}))
}

// TransformAction replaces every action with fn's result. An error from fn
// ends the pipeline with a HANDLER_FAILED fault.
func (p *Pipeline[S, A, E]) TransformAction(fn func(context.Context, A) (A, error)) *Pipeline[S, A, E] {
	return p.with(flow.Map(p.flow, fn))
}

// SideEffect publishes fn(a) to effect observers for every action a for
// which fn reports ok, then forwards a.
func (p *Pipeline[S, A, E]) SideEffect(fn func(A) (E, bool)) *Pipeline[S, A, E] {
	return p.with(p.flow.OnEach(func(_ context.Context, a A) error {
		if e, ok := fn(a); ok {
			p.store.publish(e)
		}
		return nil
	}))
}

// Transform applies an arbitrary stream rewrite.
func (p *Pipeline[S, A, E]) Transform(fn func(flow.Stream[A]) flow.Stream[A]) *Pipeline[S, A, E] {
	return p.with(p.flow.Transform(fn))
}

// FlowOn runs every stage before this point on sched.
func (p *Pipeline[S, A, E]) FlowOn(sched flow.Scheduler) *Pipeline[S, A, E] {
	return p.with(p.flow.FlowOn(sched))
}

// DropWhileBusy gates the pipeline so that actions arriving while a previous
// one is still being processed are dropped. Drops are logged and recorded.
func (p *Pipeline[S, A, E]) DropWhileBusy() *Pipeline[S, A, E] {
	return p.with(p.flow.DropWhileBusy(p.store.dropped))
}

// OnEach calls fn for every action before forwarding it.
func (p *Pipeline[S, A, E]) OnEach(fn func(context.Context, A) error) *Pipeline[S, A, E] {
	return p.with(p.flow.OnEach(fn))
}

// Flow returns the composed flow, detached from store tracking.
func (p *Pipeline[S, A, E]) Flow() *flow.ActionFlow[A] {
	return p.flow
}

// Start runs the pipeline on sched, or on the store scheduler when sched is
// nil. Store.Shutdown waits for pipelines started here. A fault is recorded
// and returned through the handle and the scheduler.
//
// Returns ErrStoreClosed once Shutdown or Dispose has begun.
func (p *Pipeline[S, A, E]) Start(ctx context.Context, sched flow.Scheduler, opts ...flow.StartOption) (*flow.Handle, error) {
	s := p.store
	if sched == nil {
		sched = s.sched
	}
	if !s.beginPipeline() {
		return nil, ErrStoreClosed
	}

	tracked := &trackingScheduler{
		inner:   sched,
		done:    s.endPipeline,
		onFault: s.recorder.PipelineFailed,
	}

	opts = append([]flow.StartOption{
		flow.WithIDGenerator(s.ids),
		flow.WithLogger(s.logger),
	}, opts...)

	h, err := p.flow.Start(ctx, tracked, opts...)
	if err != nil {
		s.endPipeline()
		return nil, err
	}
	return h, nil
}

// trackingScheduler reports the end of the pipeline task to the store.
// flow.Start submits exactly one task.
type trackingScheduler struct {
	inner   flow.Scheduler
	done    func()
	onFault func()
}

func (t *trackingScheduler) Go(task func() error) {
	t.inner.Go(func() error {
		defer t.done()
		err := task()
		if err != nil {
			t.onFault()
		}
		return err
	})
}
