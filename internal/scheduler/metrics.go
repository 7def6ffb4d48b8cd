package scheduler

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the maintenance scheduler, labeled
// by job name.
type Metrics struct {
	JobsSucceeded *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec
	RowsAffected  *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec
}

// NewMetrics creates and registers scheduler metrics.
// Returns nil if reg is nil.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		JobsSucceeded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rewardhub",
			Subsystem: "scheduler",
			Name:      "jobs_succeeded_total",
			Help:      "Total maintenance job runs that completed.",
		}, []string{"job"}),
		JobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rewardhub",
			Subsystem: "scheduler",
			Name:      "jobs_failed_total",
			Help:      "Total maintenance job runs that failed.",
		}, []string{"job"}),
		RowsAffected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rewardhub",
			Subsystem: "scheduler",
			Name:      "rows_affected_total",
			Help:      "Total rows expired or purged by maintenance jobs.",
		}, []string{"job"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rewardhub",
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Duration of each maintenance job run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"job"}),
	}

	reg.MustRegister(
		m.JobsSucceeded,
		m.JobsFailed,
		m.RowsAffected,
		m.JobDuration,
	)

	return m
}
