package store

import "github.com/roach88/cardinal/internal/flow"

// Recorder receives store activity counts. internal/metrics provides a
// Prometheus implementation.
type Recorder interface {
	ActionDispatched(tag flow.Tag)
	ActionDropped(tag flow.Tag)
	StateApplied()
	EffectPublished()
	PipelineFailed()
}

type nopRecorder struct{}

func (nopRecorder) ActionDispatched(flow.Tag) {}
func (nopRecorder) ActionDropped(flow.Tag)    {}
func (nopRecorder) StateApplied()             {}
func (nopRecorder) EffectPublished()          {}
func (nopRecorder) PipelineFailed()           {}
