package flow

import (
	"context"
	"errors"
	"log/slog"
)

// Scheduler runs pipeline tasks. It is the execution context supplied by the
// embedding program; *errgroup.Group satisfies it.
//
// A task's returned error is the pipeline's fault (nil on normal end).
type Scheduler interface {
	Go(task func() error)
}

// StartOption configures Start.
type StartOption func(*startSettings)

type startSettings struct {
	id     string
	ids    IDGenerator
	logger *slog.Logger
}

// WithID sets the pipeline ID reported by the handle and in errors.
func WithID(id string) StartOption {
	return func(s *startSettings) {
		s.id = id
	}
}

// WithIDGenerator sets the generator used when no explicit ID is given.
// Default: UUIDv7Generator.
func WithIDGenerator(ids IDGenerator) StartOption {
	return func(s *startSettings) {
		s.ids = ids
	}
}

// WithLogger logs pipeline start, end and faults to logger.
func WithLogger(logger *slog.Logger) StartOption {
	return func(s *startSettings) {
		s.logger = logger
	}
}

type pipelineIDKey struct{}

func withPipelineID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, pipelineIDKey{}, id)
}

func pipelineID(ctx context.Context) string {
	id, _ := ctx.Value(pipelineIDKey{}).(string)
	return id
}

// PipelineID returns the ID of the pipeline running under ctx, or "".
func PipelineID(ctx context.Context) string {
	return pipelineID(ctx)
}

// Handle controls a started pipeline.
type Handle struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// ID returns the pipeline ID.
func (h *Handle) ID() string {
	return h.id
}

// Cancel detaches the pipeline. A value already being processed runs to
// completion; no further values are delivered. Idempotent.
func (h *Handle) Cancel() {
	h.cancel()
}

// Done is closed when the pipeline has stopped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the pipeline fault once Done is closed, nil before that and
// nil for a normal end (source closed, count reached, cancelled).
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the pipeline stops and returns its fault.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Start attaches the pipeline to sched and begins delivery.
//
// ctx is the pipeline's lifetime: when it is done the pipeline stops as if
// cancelled. A flow's source can be started once; the second terminal call on
// any flow from the same builder returns an ALREADY_STARTED error.
func (f *ActionFlow[T]) Start(ctx context.Context, sched Scheduler, opts ...StartOption) (*Handle, error) {
	settings := startSettings{ids: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(&settings)
	}
	// A rejected start must not consume an ID.
	if !f.claim.take() {
		return nil, NewAlreadyStartedError(settings.id)
	}
	if settings.id == "" {
		settings.id = settings.ids.Generate()
	}

	ctx, cancel := context.WithCancel(withPipelineID(ctx, settings.id))
	h := &Handle{
		id:     settings.id,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	logger := settings.logger

	sched.Go(func() error {
		defer close(h.done)
		defer cancel()

		if logger != nil {
			logger.Debug("pipeline started", "pipeline", h.id)
		}

		err := f.run(ctx)
		h.err = err

		if logger != nil {
			if err != nil {
				logger.Error("pipeline failed", "pipeline", h.id, "error", err)
			} else {
				logger.Debug("pipeline stopped", "pipeline", h.id)
			}
		}
		return err
	})

	return h, nil
}

// run drives the stream to completion. Cancellation is a normal end.
func (f *ActionFlow[T]) run(ctx context.Context) error {
	err := guard(ctx, func() error {
		return f.stream(ctx, func(T) error { return nil })
	})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return NewHandlerError(pipelineID(ctx), err)
}

// Collect runs the pipeline on the calling goroutine, passing every value to
// fn. It returns when the source ends, fn or a stage fails, or ctx is done
// (returning ctx.Err()).
func (f *ActionFlow[T]) Collect(ctx context.Context, fn func(T) error) error {
	if !f.claim.take() {
		return NewAlreadyStartedError(pipelineID(ctx))
	}
	return guard(ctx, func() error {
		return f.stream(ctx, fn)
	})
}

// ToSlice collects every value into a slice.
func (f *ActionFlow[T]) ToSlice(ctx context.Context) ([]T, error) {
	var out []T
	err := f.Collect(ctx, func(v T) error {
		out = append(out, v)
		return nil
	})
	return out, err
}
