// Package metrics is a Prometheus-backed mssmt.Recorder, grounded on the
// promauto conventions used elsewhere in the ecosystem for per-operation
// counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mssmt"

// Recorder counts tree operations, labeled by operation name and outcome
// (ok or error). It implements mssmt.Recorder.
type Recorder struct {
	ops *prometheus.CounterVec
}

// New registers a Recorder's collectors with reg and returns it. Passing a
// dedicated registry (rather than prometheus.DefaultRegisterer) is
// preferable in tests that construct more than one Recorder.
func New(reg prometheus.Registerer) *Recorder {
	return &Recorder{
		ops: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Count of tree operations by kind and outcome.",
		}, []string{"op", "outcome"}),
	}
}

// Record implements mssmt.Recorder.
func (r *Recorder) Record(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.ops.WithLabelValues(op, outcome).Inc()
}
