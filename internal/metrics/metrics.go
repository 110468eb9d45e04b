// Package metrics exports store activity as Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/cardinal/internal/flow"
)

const namespace = "cardinal"

// Recorder implements store.Recorder with Prometheus counters.
// All counters carry a constant "store" label naming the store instance.
type Recorder struct {
	dispatched *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	states     prometheus.Counter
	effects    prometheus.Counter
	faults     prometheus.Counter
}

// NewRecorder creates the counters for storeName and registers them with reg.
// Registering two recorders with the same storeName on one registry fails.
func NewRecorder(reg prometheus.Registerer, storeName string) (*Recorder, error) {
	labels := prometheus.Labels{"store": storeName}

	r := &Recorder{
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "actions_dispatched_total",
			Help:        "Actions accepted by Dispatch, by tag.",
			ConstLabels: labels,
		}, []string{"tag"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "actions_dropped_total",
			Help:        "Actions discarded by a busy gate, by tag.",
			ConstLabels: labels,
		}, []string{"tag"}),
		states: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "states_applied_total",
			Help:        "States applied by reducers.",
			ConstLabels: labels,
		}),
		effects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "effects_published_total",
			Help:        "Side effects published to observers.",
			ConstLabels: labels,
		}),
		faults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "pipeline_faults_total",
			Help:        "Pipelines that ended with an error or panic.",
			ConstLabels: labels,
		}),
	}

	for _, c := range []prometheus.Collector{r.dispatched, r.dropped, r.states, r.effects, r.faults} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) ActionDispatched(tag flow.Tag) {
	r.dispatched.WithLabelValues(string(tag)).Inc()
}

func (r *Recorder) ActionDropped(tag flow.Tag) {
	r.dropped.WithLabelValues(string(tag)).Inc()
}

func (r *Recorder) StateApplied() {
	r.states.Inc()
}

func (r *Recorder) EffectPublished() {
	r.effects.Inc()
}

func (r *Recorder) PipelineFailed() {
	r.faults.Inc()
}
