package metrics

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cardinal/internal/flow"
	"github.com/roach88/cardinal/internal/store"
)

var _ store.Recorder = (*Recorder)(nil)

type ping struct{ tag flow.Tag }

func (p ping) Tag() flow.Tag { return p.tag }

func TestRecorder_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg, "login")
	require.NoError(t, err)

	r.ActionDispatched("form/email")
	r.ActionDispatched("form/email")
	r.ActionDispatched("clicked")
	r.ActionDropped("clicked")
	r.StateApplied()
	r.EffectPublished()
	r.PipelineFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.dispatched.WithLabelValues("form/email")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.dispatched.WithLabelValues("clicked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.dropped.WithLabelValues("clicked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.states))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.effects))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.faults))
}

func TestRecorder_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewRecorder(reg, "login")
	require.NoError(t, err)

	_, err = NewRecorder(reg, "login")
	assert.Error(t, err)

	_, err = NewRecorder(reg, "other")
	assert.NoError(t, err)
}

func TestRecorder_WiredIntoStore(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg, "test")
	require.NoError(t, err)

	ctx := context.Background()
	st := store.New[int, ping, string](0, store.WithRecorder(r))

	_, err = st.Pipe(st.Actions().Any().Unlimited()).
		Reduce(func(n int, _ ping) int { return n + 1 }).
		SideEffect(func(p ping) (string, bool) { return string(p.tag), true }).
		Start(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, st.Dispatch(ping{tag: "a"}))
	require.NoError(t, st.Dispatch(ping{tag: "a"}))
	require.NoError(t, st.Shutdown(ctx))

	expected := `
# HELP cardinal_actions_dispatched_total Actions accepted by Dispatch, by tag.
# TYPE cardinal_actions_dispatched_total counter
cardinal_actions_dispatched_total{store="test",tag="a"} 2
# HELP cardinal_states_applied_total States applied by reducers.
# TYPE cardinal_states_applied_total counter
cardinal_states_applied_total{store="test"} 2
# HELP cardinal_effects_published_total Side effects published to observers.
# TYPE cardinal_effects_published_total counter
cardinal_effects_published_total{store="test"} 2
`
	err = testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"cardinal_actions_dispatched_total",
		"cardinal_states_applied_total",
		"cardinal_effects_published_total",
	)
	assert.NoError(t, err)
}
