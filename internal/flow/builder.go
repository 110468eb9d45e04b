package flow

import (
	"context"
	"fmt"
	"sync/atomic"
)

// claim guards the single use of a builder's source across every flow derived
// from it, including flows whose element type changed through Map.
type claim struct {
	used atomic.Bool
}

func (c *claim) take() bool {
	return c.used.CompareAndSwap(false, true)
}

// Builder is the entry point of a pipeline over one source.
type Builder[T any] struct {
	claim  *claim
	stream Stream[T]
	tagOf  func(T) Tag
}

// NewBuilder wraps a source of actions. Filtering uses each action's Tag.
func NewBuilder[T Action](source Stream[T]) *Builder[T] {
	return NewTaggedBuilder(source, func(v T) Tag { return v.Tag() })
}

// NewTaggedBuilder wraps a source of values that are tagged by tagOf.
func NewTaggedBuilder[T any](source Stream[T], tagOf func(T) Tag) *Builder[T] {
	return &Builder[T]{
		claim:  &claim{},
		stream: source,
		tagOf:  tagOf,
	}
}

// OfType keeps only values whose tag matches one of the given tags (or their
// descendants). Other values are dropped before any count bound applies.
func (b *Builder[T]) OfType(tags ...Tag) *CountBuilder[T] {
	groups := append([]Tag(nil), tags...)
	return b.Filter(func(v T) bool {
		return b.tagOf(v).matchAny(groups)
	})
}

// Any keeps every value.
func (b *Builder[T]) Any() *CountBuilder[T] {
	return &CountBuilder[T]{claim: b.claim, stream: b.stream}
}

// Filter keeps values for which keep returns true.
func (b *Builder[T]) Filter(keep func(T) bool) *CountBuilder[T] {
	return &CountBuilder[T]{claim: b.claim, stream: b.stream.filter(keep)}
}

// CountBuilder bounds how many values a pipeline consumes.
type CountBuilder[T any] struct {
	claim  *claim
	stream Stream[T]
}

// Single ends the pipeline after its first value.
func (c *CountBuilder[T]) Single() *ActionFlow[T] {
	return c.Count(1)
}

// Count ends the pipeline after n values. The n-th value is still processed
// by every downstream stage before the source is released.
//
// Panics if n < 1.
func (c *CountBuilder[T]) Count(n int) *ActionFlow[T] {
	if n < 1 {
		panic(fmt.Sprintf("flow: Count(%d): count must be positive", n))
	}
	return &ActionFlow[T]{claim: c.claim, stream: c.stream.take(n)}
}

// Unlimited consumes values until the source ends or the pipeline is
// cancelled.
func (c *CountBuilder[T]) Unlimited() *ActionFlow[T] {
	return &ActionFlow[T]{claim: c.claim, stream: c.stream}
}

// ActionFlow is a composed, not yet running pipeline.
// Operators return new flows sharing the same single-use source.
type ActionFlow[T any] struct {
	claim  *claim
	stream Stream[T]
}

// Of wraps a stream as an unlimited flow with its own single-use source.
func Of[T any](s Stream[T]) *ActionFlow[T] {
	return &ActionFlow[T]{claim: &claim{}, stream: s}
}

// Stream returns the composed stream. Running it directly bypasses the
// single-use check.
func (f *ActionFlow[T]) Stream() Stream[T] {
	return f.stream
}

// Transform applies an arbitrary stream rewrite.
func (f *ActionFlow[T]) Transform(fn func(Stream[T]) Stream[T]) *ActionFlow[T] {
	return &ActionFlow[T]{claim: f.claim, stream: fn(f.stream)}
}

// FlowOn runs every stage before this point as a task on sched. Values cross
// to the following stages through a buffered channel, in order.
//
// The task lives as long as the pipeline, so sched must not be size-limited:
// an errgroup.Group with SetLimit blocks the pipeline once every slot is held.
func (f *ActionFlow[T]) FlowOn(sched Scheduler) *ActionFlow[T] {
	return &ActionFlow[T]{claim: f.claim, stream: flowOn(f.stream, sched, DefaultFlowOnBuffer)}
}

// DropWhileBusy applies the busy gate to this flow. See DropWhileBusy.
func (f *ActionFlow[T]) DropWhileBusy(onDrop func(T)) *ActionFlow[T] {
	return &ActionFlow[T]{claim: f.claim, stream: DropWhileBusy(f.stream, onDrop)}
}

// OnEach calls fn for every value before forwarding it unchanged.
// An error from fn ends the pipeline with a HANDLER_FAILED fault.
func (f *ActionFlow[T]) OnEach(fn func(context.Context, T) error) *ActionFlow[T] {
	return &ActionFlow[T]{claim: f.claim, stream: f.stream.onEach(fn)}
}

// Map converts every value of f with fn, changing the element type.
func Map[T, R any](f *ActionFlow[T], fn func(context.Context, T) (R, error)) *ActionFlow[R] {
	return &ActionFlow[R]{claim: f.claim, stream: mapStream(f.stream, fn)}
}
