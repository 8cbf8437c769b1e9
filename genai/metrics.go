package genai

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics reports dispatch activity using Prometheus primitives. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	attempts *prometheus.CounterVec
	retries  *prometheus.CounterVec
	results  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates and registers the dispatch collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, fmt.Errorf("prometheus registerer is nil")
	}
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "genbridge",
			Subsystem: "dispatch",
			Name:      "attempts_total",
			Help:      "Total backend call attempts",
		}, []string{"adapter", "task"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "genbridge",
			Subsystem: "dispatch",
			Name:      "retries_total",
			Help:      "Total automatic retries after a failed first attempt",
		}, []string{"adapter"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "genbridge",
			Subsystem: "dispatch",
			Name:      "results_total",
			Help:      "Dispatch outcomes by adapter",
		}, []string{"adapter", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "genbridge",
			Subsystem: "dispatch",
			Name:      "duration_seconds",
			Help:      "Dispatch latency in seconds, retries included",
			Buckets:   prometheus.DefBuckets,
		}, []string{"adapter"}),
	}
	for _, c := range []prometheus.Collector{m.attempts, m.retries, m.results, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) attempt(adapter string, task Task) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(adapter, string(task)).Inc()
}

func (m *Metrics) retry(adapter string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(adapter).Inc()
}

func (m *Metrics) observe(adapter, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(adapter, outcome).Inc()
	m.duration.WithLabelValues(adapter).Observe(d.Seconds())
}
