package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector holds all Prometheus metrics for RewardHub.
// Uses a custom registry, no global state.
type MetricsCollector struct {
	Registry *prometheus.Registry

	// Authentication metrics.
	LoginsTotal        *prometheus.CounterVec
	MFAChallengesTotal *prometheus.CounterVec
	ActiveSessions     prometheus.Gauge

	// Rewards metrics.
	ReceiptsTotal     *prometheus.CounterVec
	RedemptionsTotal  *prometheus.CounterVec
	PointsAccrued     prometheus.Counter
	PointsRedeemed    prometheus.Counter

	// Storage metrics.
	EncryptFailures *prometheus.CounterVec

	// HTTP gateway metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ActiveRequests      prometheus.Gauge
}

// NewMetricsCollector creates a MetricsCollector with all metrics registered
// on a custom prometheus.Registry.
func NewMetricsCollector() *MetricsCollector {
	reg := prometheus.NewRegistry()

	m := &MetricsCollector{
		Registry: reg,

		LoginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rewardhub",
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Total login attempts.",
		}, []string{"result"}),

		MFAChallengesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rewardhub",
			Subsystem: "auth",
			Name:      "mfa_challenges_total",
			Help:      "Total MFA challenge verifications.",
		}, []string{"result"}),

		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rewardhub",
			Subsystem: "auth",
			Name:      "active_sessions",
			Help:      "Sessions created minus sessions ended since startup.",
		}),

		ReceiptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rewardhub",
			Subsystem: "rewards",
			Name:      "receipts_total",
			Help:      "Total receipt submissions.",
		}, []string{"result"}),

		RedemptionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rewardhub",
			Subsystem: "rewards",
			Name:      "redemptions_total",
			Help:      "Total voucher redemption attempts.",
		}, []string{"result"}),

		PointsAccrued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rewardhub",
			Subsystem: "rewards",
			Name:      "points_accrued_total",
			Help:      "Total points accrued across all tenants.",
		}),

		PointsRedeemed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rewardhub",
			Subsystem: "rewards",
			Name:      "points_redeemed_total",
			Help:      "Total points spent across all tenants.",
		}),

		EncryptFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rewardhub",
			Subsystem: "storage",
			Name:      "encrypt_failures_total",
			Help:      "Field encryption or decryption failures by direction.",
		}, []string{"direction"}),

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rewardhub",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		}, []string{"method", "path", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rewardhub",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rewardhub",
			Name:      "active_requests",
			Help:      "Number of currently active requests.",
		}),
	}

	reg.MustRegister(
		m.LoginsTotal,
		m.MFAChallengesTotal,
		m.ActiveSessions,
		m.ReceiptsTotal,
		m.RedemptionsTotal,
		m.PointsAccrued,
		m.PointsRedeemed,
		m.EncryptFailures,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ActiveRequests,
	)

	return m
}
