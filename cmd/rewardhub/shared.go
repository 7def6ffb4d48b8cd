package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rewardhub/rewardhub/internal/auth"
	"github.com/rewardhub/rewardhub/internal/cache"
	"github.com/rewardhub/rewardhub/internal/config"
	"github.com/rewardhub/rewardhub/internal/dashboard"
	"github.com/rewardhub/rewardhub/internal/fieldcrypt"
	"github.com/rewardhub/rewardhub/internal/notification"
	"github.com/rewardhub/rewardhub/internal/observability"
	"github.com/rewardhub/rewardhub/internal/rewards"
	"github.com/rewardhub/rewardhub/internal/secrets"
	"github.com/rewardhub/rewardhub/internal/security"
	"github.com/rewardhub/rewardhub/internal/setup"
	"github.com/rewardhub/rewardhub/internal/storage"
	pgstore "github.com/rewardhub/rewardhub/internal/storage/postgres"
	sqlitestore "github.com/rewardhub/rewardhub/internal/storage/sqlite"
)

// SharedComponents holds the initialized subsystems the serve and setup
// commands both need. Built once by initShared, torn down by Cleanup.
type SharedComponents struct {
	Config *config.Config
	Logger *slog.Logger
	Store  storage.Store

	Obs        *observability.Observability
	RBAC       *security.RBAC
	Auth       *auth.Service
	Setup      *setup.Service
	Rewards    *rewards.Service
	Dashboard  *dashboard.Service
	LoginPages *cache.LoginPages

	cleanups []func()
}

// Cleanup runs all deferred cleanup functions in reverse order.
func (sc *SharedComponents) Cleanup() {
	for i := len(sc.cleanups) - 1; i >= 0; i-- {
		sc.cleanups[i]()
	}
}

func (sc *SharedComponents) addCleanup(fn func()) {
	sc.cleanups = append(sc.cleanups, fn)
}

// initShared performs the common initialization for serve and setup modes.
// Callers must call sc.Cleanup() when done.
func initShared(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*SharedComponents, error) {
	sc := &SharedComponents{
		Config: cfg,
		Logger: logger,
	}

	secretProvider := secrets.Default()

	// Field encryption codec. The key never appears in the config file,
	// only a reference to where it lives.
	keyHex, err := secrets.ResolveValue(ctx, secretProvider, cfg.Encryption.KeyReference())
	if err != nil {
		return nil, fmt.Errorf("resolving encryption key: %w", err)
	}
	codec, err := fieldcrypt.New(keyHex)
	if err != nil {
		return nil, fmt.Errorf("initializing field encryption: %w", err)
	}

	// Observability.
	obs, err := observability.New(cfg.Observability, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing observability: %w", err)
	}
	sc.Obs = obs
	sc.addCleanup(func() {
		if obs != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			obs.Shutdown(shutdownCtx)
		}
	})

	// Storage (SQLite default, PostgreSQL optional).
	store, err := initStore(cfg, codec, logger)
	if err != nil {
		sc.Cleanup()
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	sc.Store = store
	sc.addCleanup(func() {
		if err := store.Close(); err != nil {
			logger.Error("closing store", slog.String("error", err.Error()))
		}
	})

	if err := store.Migrate(ctx); err != nil {
		sc.Cleanup()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	// Audit sink: audit_events table by default, JSONL file when configured.
	if err := initAudit(cfg, store, logger, sc); err != nil {
		sc.Cleanup()
		return nil, err
	}

	// RBAC reads role permissions through the store, so tenant scoping and
	// the permission cache share one source of truth.
	sc.RBAC = security.NewRBAC(store.Roles(), logger)

	// Outbound mail. Without SMTP configured, notices land in the log.
	var mailer auth.Mailer
	if cfg.SMTP != nil && cfg.SMTP.Host != "" {
		password, err := resolveOptionalSecret(ctx, secretProvider, cfg.SMTP.PasswordRef, "env://SMTP_PASSWORD")
		if err != nil {
			logger.Warn("resolving SMTP password", slog.String("error", err.Error()))
		}
		mailer = notification.NewSMTPMailer(notification.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: password,
			From:     cfg.SMTP.From,
			TLS:      true,
		}, logger)
		logger.Debug("smtp mailer initialized", slog.String("host", cfg.SMTP.Host))
	} else {
		mailer = notification.NewLogMailer(logger)
	}

	// Core services.
	sc.Auth = auth.NewService(store, mailer, logger, auth.Config{
		SessionTTL:     cfg.Security.SessionTTL(),
		LoginPerMinute: cfg.RateLimit.LoginPerMinute,
		LoginBurst:     cfg.RateLimit.BurstSize,
	})
	sc.Setup = setup.NewService(store, logger)
	sc.Rewards = rewards.NewService(store, logger)
	sc.Dashboard = dashboard.NewService(store)

	// Login page cache (optional Redis).
	var kv cache.KV
	if cfg.Redis != nil && cfg.Redis.Addr != "" {
		password, err := resolveOptionalSecret(ctx, secretProvider, cfg.Redis.PasswordRef, "")
		if err != nil {
			logger.Warn("resolving redis password", slog.String("error", err.Error()))
		}
		redisKV, err := cache.OpenRedis(ctx, cfg.Redis.Addr, password, cfg.Redis.DB)
		if err != nil {
			sc.Cleanup()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		sc.addCleanup(func() {
			if err := redisKV.Close(); err != nil {
				logger.Error("closing redis", slog.String("error", err.Error()))
			}
		})
		kv = redisKV
		logger.Debug("redis cache initialized", slog.String("addr", cfg.Redis.Addr))
	}
	sc.LoginPages = cache.NewLoginPages(kv, store, cfg.Redis.TTL(), logger)

	// Health checks.
	if obs != nil && obs.Health != nil {
		obs.Health.AddCheck("database", store.Ping)
	}

	return sc, nil
}

// initStore creates the storage backend from config.
func initStore(cfg *config.Config, codec *fieldcrypt.Codec, logger *slog.Logger) (storage.Store, error) {
	switch driver := cfg.Storage.StorageDriver(); driver {
	case storage.DriverPostgres:
		return initPostgresStore(cfg, codec, logger)
	case storage.DriverSQLite:
		return initSQLiteStore(cfg, codec, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", driver)
	}
}

func initSQLiteStore(cfg *config.Config, codec *fieldcrypt.Codec, logger *slog.Logger) (storage.Store, error) {
	sqliteCfg := sqlitestore.Config{}
	if cfg.Storage != nil && cfg.Storage.SQLite != nil {
		sqliteCfg.Path = cfg.Storage.SQLite.Path
		sqliteCfg.JournalMode = cfg.Storage.SQLite.JournalMode
	}
	return sqlitestore.Open(sqliteCfg, codec, logger)
}

func initPostgresStore(cfg *config.Config, codec *fieldcrypt.Codec, logger *slog.Logger) (storage.Store, error) {
	pgCfg := pgstore.Config{DSN: cfg.Storage.Postgres.DSN}
	pgCfg.MaxOpenConns = cfg.Storage.Postgres.MaxOpenConns
	pgCfg.MaxIdleConns = cfg.Storage.Postgres.MaxIdleConns
	pgCfg.ConnMaxLifetime = time.Duration(cfg.Storage.Postgres.ConnMaxLifetimeS) * time.Second

	pgDB, err := pgstore.Open(pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	return pgstore.NewStore(pgDB, codec, logger), nil
}

// initAudit wires the audit sink into the store.
func initAudit(cfg *config.Config, store storage.Store, logger *slog.Logger, sc *SharedComponents) error {
	switch cfg.Audit.SinkKind() {
	case "store":
		store.SetAuditor(security.NewStoreAuditor(store.Audit(), logger))
	case "file":
		fileAuditor, err := security.NewFileAuditLogger(cfg.Audit.FilePath, logger)
		if err != nil {
			return fmt.Errorf("initializing audit log: %w", err)
		}
		sc.addCleanup(func() {
			if err := fileAuditor.Close(); err != nil {
				logger.Error("closing audit log", slog.String("error", err.Error()))
			}
		})
		store.SetAuditor(fileAuditor)
	default:
		return fmt.Errorf("unknown audit sink %q", cfg.Audit.SinkKind())
	}
	logger.Debug("audit sink initialized", slog.String("sink", cfg.Audit.SinkKind()))
	return nil
}

// resolveOptionalSecret resolves a secret reference, falling back to a
// default reference. An unset secret is not an error; the empty string is
// returned with the resolution error for the caller to log.
func resolveOptionalSecret(ctx context.Context, p secrets.Provider, ref, fallback string) (string, error) {
	if ref == "" {
		ref = fallback
	}
	if ref == "" {
		return "", nil
	}
	value, err := secrets.ResolveValue(ctx, p, ref)
	if err != nil {
		return "", err
	}
	return value, nil
}

// newLogger builds the process logger. REWARDHUB_LOG_LEVEL=debug enables
// debug output.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("REWARDHUB_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
