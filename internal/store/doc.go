// Package store implements the Model-View-Intent store: the single owner of a
// state value that receives actions, runs them through pipelines and exposes
// state and one-shot side effects to observers.
//
// ARCHITECTURE:
//
//	Dispatch(action) ──► action bus ──► pipelines (Actions/Pipe/Start)
//	                                      │ Reduce        ──► state cell ──► state bus
//	                                      │ SideEffect    ──► effect bus
//	                                      │ TriggerAction ──► action bus
//
// State writes:
// Every Reduce runs its read-modify-write under one store mutex, so reduces
// from independently started pipelines serialize instead of racing. Within a
// pipeline, elements are processed one at a time in delivery order.
//
// Observers:
// State observers get the current state immediately, then every applied state
// in apply order. Effect observers get only effects published after they
// subscribed.
//
// Disposal:
// Dispose closes the action, effect and state buses. Afterwards Dispatch and
// effect publication are silent no-ops and State still returns the last
// value. Shutdown is the graceful variant: it lets pipelines drain the action
// bus before disposing.
package store
