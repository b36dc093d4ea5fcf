package analytics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records backend fetch outcomes.
type Metrics struct {
	outcomes *prometheus.CounterVec
	latency  prometheus.Histogram
}

// NewMetrics registers the fetch metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scdash",
			Name:      "fetch_outcomes_total",
			Help:      "Search analytics fetches by resulting dashboard state.",
		}, []string{"state"}),
		latency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "scdash",
			Name:      "fetch_duration_seconds",
			Help:      "Latency of search analytics fetches against the backend.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) observe(state StateKind, seconds float64) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(state.String()).Inc()
	m.latency.Observe(seconds)
}

func (m *Metrics) discarded() {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues("discarded").Inc()
}
