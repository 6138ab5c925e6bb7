package sqllab

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	runs      *prometheus.CounterVec
	duration  prometheus.Histogram
	cacheHits prometheus.Counter
}

// NewMetrics registers the run metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sqllab",
			Name:      "query_runs_total",
			Help:      "Catalog query runs by outcome.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sqllab",
			Name:      "query_duration_seconds",
			Help:      "Time spent executing catalog queries.",
			Buckets:   prometheus.DefBuckets,
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sqllab",
			Name:      "query_cache_hits_total",
			Help:      "Runs answered from the result cache.",
		}),
	}
	reg.MustRegister(m.runs, m.duration, m.cacheHits)
	return m
}

func (m *Metrics) observeRun(status string, seconds float64) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
	if seconds > 0 {
		m.duration.Observe(seconds)
	}
}

func (m *Metrics) cacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}
