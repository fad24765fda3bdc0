package allocation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors for batch runs. A nil *Metrics
// records nothing.
type Metrics struct {
	runs       *prometheus.CounterVec
	candidates *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	occupancy  prometheus.Gauge
}

// NewMetrics registers the allocation collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.runs = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dorm_allocation_runs_total",
			Help: "allocation batch runs by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
	m.candidates = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dorm_allocation_candidates_total",
			Help: "candidates processed by committed runs, by kind and result",
		},
		[]string{"kind", "result"},
	)
	m.duration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dorm_allocation_run_duration_seconds",
			Help:    "wall time of allocation batch runs",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		[]string{"kind"},
	)
	m.occupancy = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "dorm_rooms_occupancy_percent",
			Help: "occupied beds over total capacity, as last reported by stats",
		},
	)
	return m
}

func (m *Metrics) observeRun(kind string, result *BatchResult, took time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(kind).Observe(took.Seconds())
	if result == nil {
		m.runs.WithLabelValues(kind, "aborted").Inc()
		return
	}
	m.runs.WithLabelValues(kind, "committed").Inc()
	m.candidates.WithLabelValues(kind, "allocated").Add(float64(result.AllocatedCount))
	m.candidates.WithLabelValues(kind, "failed").Add(float64(result.FailedCount))
}

func (m *Metrics) setOccupancy(rate float64) {
	if m == nil {
		return
	}
	m.occupancy.Set(rate)
}
