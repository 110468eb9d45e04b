// Package flow implements the action pipeline: a lazily composed, single-use
// stream of values with filtering, count bounding, scheduling and
// backpressure operators.
//
// Pipelines move through these construction states:
//
//	Unbound   NewBuilder(source)
//	Filtered  Builder.OfType / Builder.Any / Builder.Filter
//	Bounded   CountBuilder.Single / Count / Unlimited
//	Composed  ActionFlow.Transform / FlowOn / DropWhileBusy / OnEach, Map
//	Started   ActionFlow.Start / Collect / ToSlice (terminal)
//
// Every flow derived from one builder shares that builder's source. The
// source can be consumed once: the second terminal call on any derivative
// fails with an ALREADY_STARTED error.
//
// # Tags
//
// Actions form a closed set identified by Tag paths. A tag matches itself and
// every descendant, so "form" selects "form/email" and "form/password":
//
//	b.OfType("form").Unlimited()
//
// # Scheduling
//
// Nothing in this package runs detached work on its own. Start and FlowOn hand
// tasks to a caller-supplied Scheduler; *errgroup.Group satisfies it, which
// makes pipeline faults visible from Group.Wait. DropWhileBusy runs its
// producer under an errgroup joined before the stream returns.
package flow
