package flow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testAction is a small closed action set for tests.
type testAction struct {
	tag Tag
	n   int
}

func (a testAction) Tag() Tag { return a.tag }

func act(tag Tag, n int) testAction { return testAction{tag: tag, n: n} }

// inline runs tasks on a new goroutine and records their errors.
type inline struct {
	errs chan error
}

func newInline() *inline { return &inline{errs: make(chan error, 16)} }

func (s *inline) Go(task func() error) {
	go func() { s.errs <- task() }()
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func waitDone(t *testing.T, h *Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop")
	}
}

// chanSource streams values received from in until in is closed.
func chanSource[T any](in <-chan T) Stream[T] {
	return func(ctx context.Context, emit func(T) error) error {
		for {
			select {
			case v, ok := <-in:
				if !ok {
					return nil
				}
				if err := emit(v); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func requireEventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, time.Millisecond, msg)
}
