package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	q := newQueue[string]()

	for _, v := range []string{"A", "B", "C"} {
		require.True(t, q.push(v))
	}

	for _, want := range []string{"A", "B", "C"} {
		got, ok, ended := q.tryPop()
		require.True(t, ok)
		assert.False(t, ended)
		assert.Equal(t, want, got)
	}

	_, ok, ended := q.tryPop()
	assert.False(t, ok, "pop from empty queue should fail")
	assert.False(t, ended, "open queue is not ended")
}

func TestQueue_Pop_BlocksUntilAvailable(t *testing.T) {
	q := newQueue[int]()
	done := make(chan int)

	go func() {
		v, ok := q.pop(context.Background())
		if ok {
			done <- v
		}
	}()

	// Give goroutine time to block
	time.Sleep(10 * time.Millisecond)
	q.push(42)

	select {
	case v := <-done:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("pop did not unblock")
	}
}

func TestQueue_Close_DrainsThenEnds(t *testing.T) {
	q := newQueue[int]()
	q.push(1)
	q.push(2)
	q.close()

	assert.False(t, q.push(3), "push after close should fail")

	ctx := context.Background()
	v, ok := q.pop(ctx)
	require.True(t, ok)
	assert.Equal(t, 1, v)
	v, ok = q.pop(ctx)
	require.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = q.pop(ctx)
	assert.False(t, ok, "drained closed queue should end")
}

func TestQueue_Abort_DiscardsBuffered(t *testing.T) {
	q := newQueue[int]()
	q.push(1)
	q.abort()

	assert.Equal(t, 0, q.len())
	_, ok := q.pop(context.Background())
	assert.False(t, ok)
	assert.False(t, q.push(2))
}

func TestQueue_CloseAndAbort_Idempotent(t *testing.T) {
	q := newQueue[int]()

	assert.NotPanics(t, func() {
		q.close()
		q.close()
		q.abort()
		q.abort()
		q.close()
	})
}

func TestQueue_Pop_ContextCancelled(t *testing.T) {
	q := newQueue[int]()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool)

	go func() {
		_, ok := q.pop(ctx)
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("pop did not observe cancellation")
	}
}
