package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	dto "github.com/prometheus/client_model/go"

	"github.com/rewardhub/rewardhub/internal/config"
)

func counterValue(t *testing.T, m *MetricsCollector, name string) float64 {
	t.Helper()
	var families []*dto.MetricFamily
	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("gathering metrics: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		var total float64
		for _, metric := range fam.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				total += metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				total += metric.GetGauge().GetValue()
			}
		}
		return total
	}
	return 0
}

func TestMetricsRecordAndGather(t *testing.T) {
	m := NewMetricsCollector()

	m.LoginsTotal.WithLabelValues("success").Inc()
	m.LoginsTotal.WithLabelValues("failure").Inc()
	m.LoginsTotal.WithLabelValues("failure").Inc()
	m.PointsAccrued.Add(150)
	m.ActiveSessions.Inc()

	if got := counterValue(t, m, "rewardhub_auth_logins_total"); got != 3 {
		t.Fatalf("logins_total = %v, want 3", got)
	}
	if got := counterValue(t, m, "rewardhub_rewards_points_accrued_total"); got != 150 {
		t.Fatalf("points_accrued_total = %v, want 150", got)
	}
	if got := counterValue(t, m, "rewardhub_auth_active_sessions"); got != 1 {
		t.Fatalf("active_sessions = %v, want 1", got)
	}
}

func TestHealthCheckerAggregatesFailures(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHealthChecker(logger)
	h.AddCheck("store", func(context.Context) error { return nil })
	h.AddCheck("redis", func(context.Context) error { return errors.New("connection refused") })

	status := h.CheckReady(context.Background())
	if status.Status != "degraded" {
		t.Fatalf("status = %q, want degraded", status.Status)
	}
	if status.Checks["store"].Status != "ok" {
		t.Fatalf("store check = %+v, want ok", status.Checks["store"])
	}
	if status.Checks["redis"].Status != "fail" {
		t.Fatalf("redis check = %+v, want fail", status.Checks["redis"])
	}

	if live := h.CheckHealth(); live.Status != "ok" {
		t.Fatalf("liveness = %q, want ok", live.Status)
	}
}

func TestNewDisabledByNilConfig(t *testing.T) {
	obs, err := New(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if obs != nil {
		t.Fatalf("expected nil observability for nil config, got %+v", obs)
	}
	obs.Shutdown(context.Background())
	if obs.TracerOrNil() != nil || obs.MetricsOrNil() != nil {
		t.Fatal("nil facade accessors should return nil")
	}
}

func TestNewWithMetricsEnabled(t *testing.T) {
	cfg := &config.ObservabilityConfig{
		Metrics: &config.MetricsConfig{Enabled: true},
	}
	obs, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if obs.Metrics == nil {
		t.Fatal("expected metrics collector")
	}
	if obs.Health == nil {
		t.Fatal("expected health checker")
	}
	if obs.Tracer != nil {
		t.Fatal("tracing should stay disabled")
	}
}
