package pool

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the Prometheus collectors a pool reports into.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	JobsSubmitted prometheus.Counter
	JobsCompleted prometheus.Counter
	JobsFailed    prometheus.Counter
	JobsCancelled prometheus.Counter
	JobsRunning   prometheus.Gauge
	QueueDepth    prometheus.Gauge
	JobDuration   prometheus.Histogram
}

// NewMetrics creates the pool collectors under namespace and registers them with reg.
// A nil reg skips registration.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		JobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "jobs_submitted_total",
			Help:      "Jobs accepted by the pool.",
		}),
		JobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "jobs_completed_total",
			Help:      "Jobs that produced a value.",
		}),
		JobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "jobs_failed_total",
			Help:      "Jobs whose computation failed or panicked.",
		}),
		JobsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "jobs_cancelled_total",
			Help:      "Jobs abandoned by a timed-out shutdown.",
		}),
		JobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "jobs_running",
			Help:      "Jobs currently executing on a worker.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "queue_depth",
			Help:      "Jobs waiting for a worker.",
		}),
		JobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "job_duration_seconds",
			Help:      "Time spent computing a job, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16),
		}),
	}

	if reg == nil {
		return m, nil
	}

	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.JobsSubmitted,
		m.JobsCompleted,
		m.JobsFailed,
		m.JobsCancelled,
		m.JobsRunning,
		m.QueueDepth,
		m.JobDuration,
	}
}

func (m *Metrics) submitted(n int) {
	if m == nil {
		return
	}
	m.JobsSubmitted.Add(float64(n))
	m.QueueDepth.Add(float64(n))
}

func (m *Metrics) started() {
	if m == nil {
		return
	}
	m.QueueDepth.Dec()
	m.JobsRunning.Inc()
}

func (m *Metrics) finished(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.JobsRunning.Dec()
	m.JobDuration.Observe(elapsed.Seconds())
}

// dropped accounts for queued jobs removed without ever starting.
func (m *Metrics) dropped(n int) {
	if m == nil || n == 0 {
		return
	}
	m.QueueDepth.Sub(float64(n))
}

func (m *Metrics) resolved(err error) {
	if m == nil {
		return
	}
	switch {
	case err == nil:
		m.JobsCompleted.Inc()
	case errors.Is(err, ErrCancelled):
		m.JobsCancelled.Inc()
	default:
		m.JobsFailed.Inc()
	}
}
