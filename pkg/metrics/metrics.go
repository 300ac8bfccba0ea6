// Package metrics records ad format store operations as Prometheus series.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "adformats"

// Recorder holds the store operation collectors. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	ops     *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// New registers the collectors with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		ops: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Ad format store operations by operation and outcome status.",
		}, []string{"op", "status"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Ad format store operation latency including simulated transport delay.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, .75, 1, 2.5, 5},
		}, []string{"op"}),
	}
}

// Observe records one operation outcome.
func (r *Recorder) Observe(op string, success bool, d time.Duration) {
	if r == nil || op == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.ops.WithLabelValues(op, status).Inc()
	r.latency.WithLabelValues(op).Observe(d.Seconds())
}
