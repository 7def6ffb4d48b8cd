// Package scheduler runs periodic maintenance: expiring campaigns and
// vouchers whose end date passed, and purging expired sessions. Jobs run
// under a system super-admin scope because they sweep every tenant's rows
// in one statement.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rewardhub/rewardhub/internal/storage"
	"github.com/rewardhub/rewardhub/internal/tenant"
)

// Config holds cron expressions for the maintenance jobs. Standard five-field
// expressions. An empty expression disables that job.
type Config struct {
	CampaignExpiry string `json:"campaign_expiry"` // Default: every 10 minutes.
	VoucherExpiry  string `json:"voucher_expiry"`  // Default: every 10 minutes.
	SessionPurge   string `json:"session_purge"`   // Default: hourly.
}

func (c *Config) setDefaults() {
	if c.CampaignExpiry == "" {
		c.CampaignExpiry = "*/10 * * * *"
	}
	if c.VoucherExpiry == "" {
		c.VoucherExpiry = "*/10 * * * *"
	}
	if c.SessionPurge == "" {
		c.SessionPurge = "0 * * * *"
	}
}

// Scheduler owns the cron runner and the registered maintenance jobs.
type Scheduler struct {
	store   storage.Store
	cron    *cron.Cron
	metrics *Metrics
	logger  *slog.Logger
	config  Config

	mu      sync.Mutex
	started bool
}

// New creates a Scheduler. metrics may be nil.
func New(store storage.Store, metrics *Metrics, logger *slog.Logger, cfg Config) *Scheduler {
	cfg.setDefaults()
	return &Scheduler{
		store:   store,
		cron:    cron.New(),
		metrics: metrics,
		logger:  logger,
		config:  cfg,
	}
}

// Start registers the jobs and begins the cron loop. The returned function
// stops the runner and waits for in-flight jobs.
func (s *Scheduler) Start(ctx context.Context) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil, fmt.Errorf("scheduler already started")
	}

	jobs := []struct {
		name string
		expr string
		run  func(ctx context.Context, now time.Time) (int64, error)
	}{
		{"campaign_expiry", s.config.CampaignExpiry, s.store.Campaigns().ExpireEnded},
		{"voucher_expiry", s.config.VoucherExpiry, s.store.Vouchers().ExpireEnded},
		{"session_purge", s.config.SessionPurge, s.store.Sessions().DeleteExpired},
	}
	for _, j := range jobs {
		if j.expr == "" {
			continue
		}
		job := j
		if _, err := s.cron.AddFunc(job.expr, func() { s.runJob(ctx, job.name, job.run) }); err != nil {
			return nil, fmt.Errorf("registering job %s: %w", job.name, err)
		}
	}

	s.cron.Start()
	s.started = true
	s.logger.InfoContext(ctx, "maintenance scheduler started",
		slog.String("campaign_expiry", s.config.CampaignExpiry),
		slog.String("voucher_expiry", s.config.VoucherExpiry),
		slog.String("session_purge", s.config.SessionPurge),
	)

	return func() {
		<-s.cron.Stop().Done()
		s.logger.Info("maintenance scheduler stopped")
	}, nil
}

// runJob executes one maintenance sweep under a system scope and records
// the outcome.
func (s *Scheduler) runJob(ctx context.Context, name string, run func(ctx context.Context, now time.Time) (int64, error)) {
	start := time.Now()
	sysCtx := tenant.WithContext(ctx, tenant.SystemContext("scheduler"))

	affected, err := run(sysCtx, start.UTC())
	elapsed := time.Since(start)

	if s.metrics != nil {
		s.metrics.JobDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.JobsFailed.WithLabelValues(name).Inc()
		}
		s.logger.ErrorContext(ctx, "maintenance job failed",
			slog.String("job", name),
			slog.String("error", err.Error()),
		)
		return
	}
	if s.metrics != nil {
		s.metrics.JobsSucceeded.WithLabelValues(name).Inc()
		s.metrics.RowsAffected.WithLabelValues(name).Add(float64(affected))
	}
	if affected > 0 {
		s.logger.InfoContext(ctx, "maintenance job completed",
			slog.String("job", name),
			slog.Int64("rows", affected),
			slog.Duration("took", elapsed),
		)
	}
}

// RunOnce fires every job a single time, outside the cron cadence. Used by
// tests and by operators who want an immediate sweep.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.runJob(ctx, "campaign_expiry", s.store.Campaigns().ExpireEnded)
	s.runJob(ctx, "voucher_expiry", s.store.Vouchers().ExpireEnded)
	s.runJob(ctx, "session_purge", s.store.Sessions().DeleteExpired)
}
