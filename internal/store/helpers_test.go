package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/cardinal/internal/flow"
	"github.com/roach88/cardinal/internal/testutil"
)

type testAction struct {
	tag flow.Tag
	n   int
}

func (a testAction) Tag() flow.Tag { return a.tag }

func act(tag flow.Tag, n int) testAction { return testAction{tag: tag, n: n} }

type counter struct {
	Sum  int
	Seen []int
}

// add appends without sharing the previous state's backing array.
func add(s counter, a testAction) counter {
	seen := make([]int, len(s.Seen), len(s.Seen)+1)
	copy(seen, s.Seen)
	return counter{Sum: s.Sum + a.n, Seen: append(seen, a.n)}
}

type testStore = Store[counter, testAction, string]

func newTestStore(t *testing.T, opts ...Option) (*testStore, *testutil.Recorder) {
	t.Helper()
	rec := testutil.NewRecorder()
	opts = append([]Option{
		WithRecorder(rec),
		WithIDGenerator(testutil.NewFixedIDGenerator("")),
	}, opts...)

	st := New[counter, testAction, string](counter{}, opts...)
	t.Cleanup(st.Dispose)
	return st, rec
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func waitDone(t *testing.T, h *flow.Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop")
	}
}

func requireEventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, time.Millisecond, msg)
}

// collector gathers values delivered on observer goroutines.
type collector[T any] struct {
	mu     sync.Mutex
	values []T
}

func (c *collector[T]) add(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = append(c.values, v)
}

func (c *collector[T]) snapshot() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.values...)
}
