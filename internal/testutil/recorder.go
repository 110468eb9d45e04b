package testutil

import (
	"sync"

	"github.com/roach88/cardinal/internal/flow"
)

// Recorder is an in-memory store.Recorder for assertions.
//
// Thread-safety: all methods are safe for concurrent use.
type Recorder struct {
	mu         sync.Mutex
	dispatched []flow.Tag
	dropped    []flow.Tag
	states     int
	effects    int
	faults     int
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) ActionDispatched(tag flow.Tag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatched = append(r.dispatched, tag)
}

func (r *Recorder) ActionDropped(tag flow.Tag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped = append(r.dropped, tag)
}

func (r *Recorder) StateApplied() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states++
}

func (r *Recorder) EffectPublished() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.effects++
}

func (r *Recorder) PipelineFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faults++
}

// Dispatched returns the tags of dispatched actions in dispatch order.
func (r *Recorder) Dispatched() []flow.Tag {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]flow.Tag(nil), r.dispatched...)
}

// Dropped returns the tags of actions dropped by a busy gate.
func (r *Recorder) Dropped() []flow.Tag {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]flow.Tag(nil), r.dropped...)
}

// States returns the number of applied states.
func (r *Recorder) States() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states
}

// Effects returns the number of published effects.
func (r *Recorder) Effects() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.effects
}

// Faults returns the number of failed pipelines.
func (r *Recorder) Faults() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.faults
}
