package flow

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/cardinal/internal/bus"
)

func TestStart_RunsUntilBusCloses(t *testing.T) {
	b := bus.New[testAction]()
	var mu sync.Mutex
	var seen []int

	f := NewBuilder(FromSubscription(b.Subscribe())).Any().Unlimited().
		OnEach(func(_ context.Context, a testAction) error {
			mu.Lock()
			seen = append(seen, a.n)
			mu.Unlock()
			return nil
		})

	h, err := f.Start(testContext(t), newInline())
	require.NoError(t, err)
	assert.NotEmpty(t, h.ID())

	b.Send(act("x", 1))
	b.Send(act("x", 2))
	b.Close()

	waitDone(t, h)
	assert.NoError(t, h.Err(), "bus close is a normal end")
	assert.Equal(t, []int{1, 2}, seen)
}

func TestStart_SingleSelfUnsubscribes(t *testing.T) {
	b := bus.New[testAction]()
	var count atomic.Int32

	h, err := NewBuilder(FromSubscription(b.Subscribe())).Any().Single().
		OnEach(func(context.Context, testAction) error {
			count.Add(1)
			return nil
		}).
		Start(testContext(t), newInline())
	require.NoError(t, err)

	b.Send(act("x", 1))
	waitDone(t, h)

	b.Send(act("x", 2))
	assert.Equal(t, int32(1), count.Load())
	assert.Equal(t, 0, b.Subscribers(), "subscription released after first element")
}

func TestStart_CancelStopsDelivery(t *testing.T) {
	b := bus.New[testAction]()

	h, err := NewBuilder(FromSubscription(b.Subscribe())).Any().Unlimited().
		Start(testContext(t), newInline())
	require.NoError(t, err)

	h.Cancel()
	h.Cancel()
	waitDone(t, h)

	assert.NoError(t, h.Wait(), "cancellation is a normal end")
	assert.Equal(t, 0, b.Subscribers())
}

func TestStart_LifetimeContextRevocation(t *testing.T) {
	b := bus.New[testAction]()
	ctx, cancel := context.WithCancel(context.Background())

	h, err := NewBuilder(FromSubscription(b.Subscribe())).Any().Unlimited().Start(ctx, newInline())
	require.NoError(t, err)

	cancel()
	waitDone(t, h)
	assert.NoError(t, h.Err())
}

func TestStart_TwiceIsMisuse(t *testing.T) {
	gen := NewFixedGenerator("only")
	f := NewBuilder(FromSlice(act("x", 1))).Any().Unlimited()

	h, err := f.Start(testContext(t), newInline(), WithIDGenerator(gen))
	require.NoError(t, err)
	assert.Equal(t, "only", h.ID())
	waitDone(t, h)

	require.NotPanics(t, func() {
		_, err = f.Start(testContext(t), newInline(), WithIDGenerator(gen))
	})
	require.Error(t, err)
	assert.True(t, IsAlreadyStarted(err))
	assert.False(t, IsFault(err))

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Empty(t, fe.PipelineID)
}

func TestStart_TwiceKeepsExplicitID(t *testing.T) {
	f := Of(FromSlice(1))

	h, err := f.Start(testContext(t), newInline(), WithID("first"))
	require.NoError(t, err)
	waitDone(t, h)

	_, err = f.Start(testContext(t), newInline(), WithID("second"))
	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.True(t, IsAlreadyStarted(err))
	assert.Equal(t, "second", fe.PipelineID)
}

func TestStart_PanicIsFaultSurfacedToScheduler(t *testing.T) {
	var g errgroup.Group

	h, err := NewBuilder(FromSlice(act("x", 1))).Any().Unlimited().
		OnEach(func(context.Context, testAction) error { panic("reducer exploded") }).
		Start(testContext(t), &g, WithID("pipe-1"))
	require.NoError(t, err)

	groupErr := g.Wait()
	require.Error(t, groupErr)
	assert.True(t, IsHandlerPanic(groupErr))

	var fe *Error
	require.True(t, errors.As(h.Err(), &fe))
	assert.Equal(t, "pipe-1", fe.PipelineID)
	assert.Equal(t, "reducer exploded", fe.Panic)
}

func TestStart_HandlerErrorIsFault(t *testing.T) {
	boom := errors.New("boom")

	h, err := NewBuilder(FromSlice(act("x", 1))).Any().Unlimited().
		OnEach(func(context.Context, testAction) error { return boom }).
		Start(testContext(t), newInline())
	require.NoError(t, err)

	err = h.Wait()
	assert.True(t, IsFault(err))
	assert.ErrorIs(t, err, boom)
}

func TestStart_IDGenerator(t *testing.T) {
	gen := NewFixedGenerator("p-1", "p-2")

	h1, err := Of(FromSlice(1)).Start(testContext(t), newInline(), WithIDGenerator(gen))
	require.NoError(t, err)
	h2, err := Of(FromSlice(2)).Start(testContext(t), newInline(), WithIDGenerator(gen))
	require.NoError(t, err)

	assert.Equal(t, "p-1", h1.ID())
	assert.Equal(t, "p-2", h2.ID())
	assert.Panics(t, func() { gen.Generate() })
}

func TestUUIDv7Generator_Unique(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestPipelineID_VisibleToStages(t *testing.T) {
	var got string
	h, err := Of(FromSlice(1)).
		OnEach(func(ctx context.Context, _ int) error {
			got = PipelineID(ctx)
			return nil
		}).
		Start(testContext(t), newInline(), WithID("visible"))
	require.NoError(t, err)
	require.NoError(t, h.Wait())
	assert.Equal(t, "visible", got)
}

// countingScheduler records how many tasks it ran.
type countingScheduler struct {
	tasks atomic.Int32
	g     errgroup.Group
}

func (s *countingScheduler) Go(task func() error) {
	s.tasks.Add(1)
	s.g.Go(task)
}

func TestFlowOn_PreservesOrderAcrossSchedulers(t *testing.T) {
	io := &countingScheduler{}
	var values []int
	for i := 0; i < 500; i++ {
		values = append(values, i)
	}

	got, err := Of(FromSlice(values...)).FlowOn(io).ToSlice(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, values, got)
	assert.Equal(t, int32(1), io.tasks.Load(), "upstream runs as one task on the io scheduler")
	assert.NoError(t, io.g.Wait())
}

func TestFlowOn_DownstreamLimitStopsUpstream(t *testing.T) {
	io := &countingScheduler{}
	in := make(chan int)
	defer close(in)

	f := Of(chanSource(in)).FlowOn(io).
		Transform(func(s Stream[int]) Stream[int] { return s.take(2) })

	done := make(chan []int, 1)
	go func() {
		got, err := f.ToSlice(testContext(t))
		assert.NoError(t, err)
		done <- got
	}()

	in <- 1
	in <- 2

	select {
	case got := <-done:
		assert.Equal(t, []int{1, 2}, got)
	case <-time.After(time.Second):
		t.Fatal("flowOn did not stop after downstream limit")
	}
	assert.NoError(t, io.g.Wait())
}

func TestFlowOn_UpstreamPanicSurfaces(t *testing.T) {
	io := &countingScheduler{}

	h, err := Of(FromSlice(1)).
		OnEach(func(context.Context, int) error { panic("io exploded") }).
		FlowOn(io).
		Start(testContext(t), newInline())
	require.NoError(t, err)

	assert.True(t, IsHandlerPanic(h.Wait()))
}

func TestCollect_ContextCancelled(t *testing.T) {
	b := bus.New[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Of(FromSubscription(b.Subscribe())).Collect(ctx, func(int) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFromCallback_BridgesAndUnregisters(t *testing.T) {
	var (
		mu       sync.Mutex
		callback func(string)
	)
	unregistered := make(chan struct{})

	src := FromCallback(func(emit func(string)) func() {
		mu.Lock()
		callback = emit
		mu.Unlock()
		return func() { close(unregistered) }
	})

	ctx, cancel := context.WithCancel(testContext(t))
	got := make(chan string, 4)
	h, err := Of(src).OnEach(func(_ context.Context, v string) error {
		got <- v
		return nil
	}).Start(ctx, newInline())
	require.NoError(t, err)

	requireEventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return callback != nil
	}, "register not called")

	mu.Lock()
	callback("click")
	callback("click again")
	mu.Unlock()

	assert.Equal(t, "click", <-got)
	assert.Equal(t, "click again", <-got)

	cancel()
	waitDone(t, h)
	select {
	case <-unregistered:
	case <-time.After(time.Second):
		t.Fatal("unregister not called on cancellation")
	}
}
