package store

import (
	"log/slog"

	"github.com/roach88/cardinal/internal/flow"
)

// Option configures a Store.
type Option func(*settings)

type settings struct {
	logger    *slog.Logger
	scheduler flow.Scheduler
	recorder  Recorder
	ids       flow.IDGenerator
}

// WithLogger sets the store logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithScheduler sets the scheduler used for observers, bound action sources
// and pipelines started without an explicit scheduler.
//
// Default: a store-owned errgroup.Group; Store.Wait returns its first fault.
func WithScheduler(sched flow.Scheduler) Option {
	return func(s *settings) {
		s.scheduler = sched
	}
}

// WithRecorder reports store activity to r.
func WithRecorder(r Recorder) Option {
	return func(s *settings) {
		s.recorder = r
	}
}

// WithIDGenerator sets the generator for pipeline and observer IDs.
// Default: flow.UUIDv7Generator.
func WithIDGenerator(ids flow.IDGenerator) Option {
	return func(s *settings) {
		s.ids = ids
	}
}
