package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	goutils "github.com/jkaninda/go-utils"
	"github.com/spf13/cobra"

	"github.com/rewardhub/rewardhub/internal/config"
	"github.com/rewardhub/rewardhub/internal/gateway/httpapi"
	"github.com/rewardhub/rewardhub/internal/gateway/ws"
	"github.com/rewardhub/rewardhub/internal/scheduler"
)

var (
	serveConfigPath string
	servePort       string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the RewardHub API server",
	RunE:  runServe,
}

func init() {
	// Register flags on both root and serve so that
	// `rewardhub --config path` and `rewardhub serve --config path` both work.
	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().StringVar(&serveConfigPath, "config", config.DefaultConfigPath(), "path to config file")
		cmd.Flags().StringVar(&servePort, "port", "", "override HTTP listen port (e.g. :8080)")
	}
}

// runServe starts the API server, the WebSocket dashboard stream, and the
// background maintenance scheduler.
func runServe(_ *cobra.Command, _ []string) error {
	logger := newLogger()

	cfg, err := config.Load(goutils.Env("REWARDHUB_CONFIG", serveConfigPath))
	if err != nil {
		return err
	}

	// Apply CLI overrides.
	if servePort != "" {
		cfg.Server.ListenAddr = servePort
	}

	logger.Info("starting rewardhub server", slog.String("config", serveConfigPath))

	// Signal-aware context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sc, err := initShared(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer sc.Cleanup()

	// Background maintenance jobs (campaign/voucher expiry, session purge).
	if cfg.Scheduler != nil && cfg.Scheduler.Enabled {
		var schedMetrics *scheduler.Metrics
		if sc.Obs != nil && sc.Obs.Metrics != nil {
			schedMetrics = scheduler.NewMetrics(sc.Obs.Metrics.Registry)
		}
		sched := scheduler.New(sc.Store, schedMetrics, logger, scheduler.Config{
			CampaignExpiry: cfg.Scheduler.CampaignCron(),
			VoucherExpiry:  cfg.Scheduler.VoucherCron(),
			SessionPurge:   cfg.Scheduler.SessionCron(),
		})
		stopSched, err := sched.Start(ctx)
		if err != nil {
			return err
		}
		defer stopSched()
		logger.Debug("maintenance scheduler started")
	}

	// HTTP gateway.
	httpCfg := httpapi.Config{
		ListenAddr:     cfg.Server.Addr(),
		EnableDocs:     cfg.Server.EnableDocs,
		MaxRequestSize: cfg.Server.MaxRequestSize,
		MFAIssuer:      cfg.Security.Issuer(),
	}
	if sc.Obs != nil {
		httpCfg.Metrics = sc.Obs.Metrics
		httpCfg.HealthChecker = sc.Obs.Health
		if sc.Obs.Metrics != nil {
			httpCfg.MetricsRegistry = sc.Obs.Metrics.Registry
		}
		if sc.Obs.Tracer != nil {
			httpCfg.Tracer = sc.Obs.Tracer.Tracer()
		}
		if cfg.Observability != nil && cfg.Observability.Metrics != nil {
			httpCfg.MetricsPath = cfg.Observability.Metrics.Path
		}
	}

	gw := httpapi.NewGateway(
		httpCfg,
		sc.Store,
		sc.Auth,
		sc.Setup,
		sc.Rewards,
		sc.Dashboard,
		sc.LoginPages,
		sc.RBAC,
		logger,
	)

	// Live dashboard stream.
	wsServer := ws.NewServer(sc.Auth, sc.Dashboard, 5*time.Second, logger)
	gw.WithHandler("/v1/dashboard/stream", wsServer.Handler())

	// Run until signal or server error.
	errs := make(chan error, 1)
	go func() {
		errs <- gw.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errs:
		if err != nil {
			logger.Error("http gateway exited with error", slog.String("error", err.Error()))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return gw.Stop(shutdownCtx)
}
