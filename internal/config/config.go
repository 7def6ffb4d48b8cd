// Package config handles loading and validating RewardHub configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

func init() {
	// Load .env file if it exists
	_ = godotenv.Load()
}

// Config is the root configuration for RewardHub.
type Config struct {
	Server        ServerConfig         `json:"server" yaml:"server"`
	Storage       *StorageConfig       `json:"storage,omitempty" yaml:"storage,omitempty"` // nil = SQLite default
	Redis         *RedisConfig         `json:"redis,omitempty" yaml:"redis,omitempty"`     // nil = login-page cache disabled
	Security      SecurityConfig       `json:"security" yaml:"security"`
	Encryption    EncryptionConfig     `json:"encryption" yaml:"encryption"`
	RateLimit     RateLimitConfig      `json:"rate_limit" yaml:"rate_limit"`
	Observability *ObservabilityConfig `json:"observability,omitempty" yaml:"observability,omitempty"` // nil = disabled
	Scheduler     *SchedulerConfig     `json:"scheduler,omitempty" yaml:"scheduler,omitempty"`         // nil = maintenance jobs disabled
	SMTP          *SMTPConfig          `json:"smtp,omitempty" yaml:"smtp,omitempty"`                   // nil = outbound mail disabled
	Audit         AuditConfig          `json:"audit" yaml:"audit"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	ListenAddr     string `json:"listen_addr" yaml:"listen_addr"`           // Default: ":8080".
	EnableDocs     bool   `json:"enable_docs" yaml:"enable_docs"`           // Expose OpenAPI docs.
	MaxRequestSize int64  `json:"max_request_size" yaml:"max_request_size"` // Bytes. 0 = 1 MB default.
}

// Addr returns the listen address, defaulting to ":8080".
func (s ServerConfig) Addr() string {
	if s.ListenAddr != "" {
		return s.ListenAddr
	}
	return ":8080"
}

// StorageConfig configures the persistence backend.
// When nil, defaults to SQLite with the database path derived from the data dir.
type StorageConfig struct {
	Driver   string                 `json:"driver" yaml:"driver"`                         // "sqlite" (default) or "postgres".
	SQLite   *SQLiteStorageConfig   `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`     // SQLite-specific settings.
	Postgres *PostgresStorageConfig `json:"postgres,omitempty" yaml:"postgres,omitempty"` // PostgreSQL-specific settings.
}

// StorageDriver returns the configured driver, defaulting to "sqlite".
func (s *StorageConfig) StorageDriver() string {
	if s != nil && s.Driver != "" {
		return s.Driver
	}
	return "sqlite"
}

// SQLiteStorageConfig holds SQLite-specific settings.
type SQLiteStorageConfig struct {
	Path        string `json:"path,omitempty" yaml:"path,omitempty"` // Database file path. Default: ~/.rewardhub/rewardhub.db.
	JournalMode string `json:"journal_mode" yaml:"journal_mode"`     // "wal" (default), "delete", "truncate", etc.
}

// PostgresStorageConfig holds PostgreSQL-specific settings.
type PostgresStorageConfig struct {
	DSN              string `json:"dsn" yaml:"dsn"`
	MaxOpenConns     int    `json:"max_open_conns" yaml:"max_open_conns"`           // Default: 25
	MaxIdleConns     int    `json:"max_idle_conns" yaml:"max_idle_conns"`           // Default: 5
	ConnMaxLifetimeS int    `json:"conn_max_lifetime_s" yaml:"conn_max_lifetime_s"` // Default: 1800 (30 min)
}

// RedisConfig configures the login-page cache.
type RedisConfig struct {
	Addr        string `json:"addr" yaml:"addr"`                   // e.g. "localhost:6379".
	PasswordRef string `json:"password_ref" yaml:"password_ref"`   // Secret reference, e.g. "env://REDIS_PASSWORD". Optional.
	DB          int    `json:"db" yaml:"db"`                       // Default: 0.
	TTLSeconds  int    `json:"ttl_seconds" yaml:"ttl_seconds"`     // Login page cache TTL. Default: 300.
}

// TTL returns the cache TTL, defaulting to 5 minutes.
func (r *RedisConfig) TTL() time.Duration {
	if r != nil && r.TTLSeconds > 0 {
		return time.Duration(r.TTLSeconds) * time.Second
	}
	return 5 * time.Minute
}

// SecurityConfig configures authentication behavior.
type SecurityConfig struct {
	SessionTTLHours int    `json:"session_ttl_hours" yaml:"session_ttl_hours"` // Default: 12.
	MFAIssuer       string `json:"mfa_issuer" yaml:"mfa_issuer"`               // TOTP issuer shown in authenticator apps. Default: "RewardHub".
	AuditLogPath    string `json:"audit_log_path" yaml:"audit_log_path"`       // DEPRECATED: use audit.file_path.
}

// SessionTTL returns the session lifetime, defaulting to 12 hours.
func (s SecurityConfig) SessionTTL() time.Duration {
	if s.SessionTTLHours > 0 {
		return time.Duration(s.SessionTTLHours) * time.Hour
	}
	return 12 * time.Hour
}

// Issuer returns the MFA issuer, defaulting to "RewardHub".
func (s SecurityConfig) Issuer() string {
	if s.MFAIssuer != "" {
		return s.MFAIssuer
	}
	return "RewardHub"
}

// EncryptionConfig configures field-level encryption at rest.
type EncryptionConfig struct {
	// KeyRef is a secret reference resolving to the 64-hex-character key,
	// e.g. "env://ENCRYPTION_KEY" or "vault://secret/data/rewardhub#encryption_key".
	// Default: "env://ENCRYPTION_KEY".
	KeyRef string `json:"key_ref" yaml:"key_ref"`
}

// KeyReference returns the configured key reference or its default.
func (e EncryptionConfig) KeyReference() string {
	if e.KeyRef != "" {
		return e.KeyRef
	}
	return "env://ENCRYPTION_KEY"
}

// RateLimitConfig configures login attempt throttling.
type RateLimitConfig struct {
	LoginPerMinute int `json:"login_per_minute" yaml:"login_per_minute"` // Default: 10. 0 = unlimited.
	BurstSize      int `json:"burst_size" yaml:"burst_size"`             // Default: LoginPerMinute.
}

// ObservabilityConfig configures metrics, tracing, and health checks.
// When nil, all observability features are disabled with zero overhead.
type ObservabilityConfig struct {
	Metrics *MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Tracing *TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
	Health  *HealthConfig  `json:"health,omitempty" yaml:"health,omitempty"`
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"` // Default: "/metrics"
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `json:"enabled" yaml:"enabled"`
	Endpoint     string  `json:"endpoint" yaml:"endpoint"`           // OTLP endpoint, e.g. "localhost:4317".
	Protocol     string  `json:"protocol" yaml:"protocol"`           // "grpc" (default) or "http".
	SampleRate   float64 `json:"sample_rate" yaml:"sample_rate"`     // 0.0–1.0. Default: 1.0.
	ServiceName  string  `json:"service_name" yaml:"service_name"`   // Default: "rewardhub".
	Insecure     bool    `json:"insecure" yaml:"insecure"`           // Skip TLS for the exporter.
}

// HealthConfig configures readiness checking.
type HealthConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// SchedulerConfig configures background maintenance jobs.
type SchedulerConfig struct {
	Enabled             bool   `json:"enabled" yaml:"enabled"`
	VoucherExpiryCron   string `json:"voucher_expiry_cron" yaml:"voucher_expiry_cron"`     // Default: "*/10 * * * *".
	CampaignExpiryCron  string `json:"campaign_expiry_cron" yaml:"campaign_expiry_cron"`   // Default: "*/10 * * * *".
	SessionPurgeCron    string `json:"session_purge_cron" yaml:"session_purge_cron"`       // Default: "0 * * * *".
}

// VoucherCron returns the voucher expiry schedule or its default.
func (s *SchedulerConfig) VoucherCron() string {
	if s != nil && s.VoucherExpiryCron != "" {
		return s.VoucherExpiryCron
	}
	return "*/10 * * * *"
}

// CampaignCron returns the campaign expiry schedule or its default.
func (s *SchedulerConfig) CampaignCron() string {
	if s != nil && s.CampaignExpiryCron != "" {
		return s.CampaignExpiryCron
	}
	return "*/10 * * * *"
}

// SessionCron returns the session purge schedule or its default.
func (s *SchedulerConfig) SessionCron() string {
	if s != nil && s.SessionPurgeCron != "" {
		return s.SessionPurgeCron
	}
	return "0 * * * *"
}

// SMTPConfig configures outbound transactional mail.
type SMTPConfig struct {
	Host        string `json:"host" yaml:"host"`
	Port        int    `json:"port" yaml:"port"` // Default: 587.
	Username    string `json:"username" yaml:"username"`
	PasswordRef string `json:"password_ref" yaml:"password_ref"` // Secret reference. Default: "env://SMTP_PASSWORD".
	From        string `json:"from" yaml:"from"`
}

// AuditConfig selects the audit sink.
type AuditConfig struct {
	// Sink is "store" (default — audit_events table) or "file" (JSONL).
	Sink     string `json:"sink" yaml:"sink"`
	FilePath string `json:"file_path" yaml:"file_path"` // Required for sink "file".
}

// SinkKind returns the configured sink, defaulting to "store".
func (a AuditConfig) SinkKind() string {
	if a.Sink != "" {
		return a.Sink
	}
	return "store"
}

// DefaultConfigPath returns the default config file path (~/.rewardhub/config.yaml).
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "configs/rewardhub.yaml" // fallback for environments without a home dir
	}
	return filepath.Join(home, ".rewardhub", "config.yaml")
}

// Load reads a JSON or YAML config file and returns a validated Config.
// The format is detected by file extension: .yml/.yaml for YAML, everything
// else for JSON. Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path %s: %w", path, err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", resolved, err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(resolved)); ext {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config %s: %w", resolved, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config %s: %w", resolved, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides lets deployment environments override file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REWARDHUB_LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("REWARDHUB_DB_DSN"); v != "" {
		if cfg.Storage == nil {
			cfg.Storage = &StorageConfig{Driver: "postgres"}
		}
		if cfg.Storage.Postgres == nil {
			cfg.Storage.Postgres = &PostgresStorageConfig{}
		}
		cfg.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("REWARDHUB_REDIS_ADDR"); v != "" {
		if cfg.Redis == nil {
			cfg.Redis = &RedisConfig{}
		}
		cfg.Redis.Addr = v
	}
}

// Validate checks cross-field constraints that YAML parsing cannot express.
func (c *Config) Validate() error {
	switch driver := c.Storage.StorageDriver(); driver {
	case "sqlite":
	case "postgres":
		if c.Storage == nil || c.Storage.Postgres == nil || c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage driver postgres requires storage.postgres.dsn")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", driver)
	}
	if c.Audit.SinkKind() == "file" && c.Audit.FilePath == "" {
		return fmt.Errorf("audit sink file requires audit.file_path")
	}
	if s := c.Scheduler; s != nil && s.Enabled {
		// Cron validity is checked at registration; only shape sanity here.
		for _, expr := range []string{s.VoucherCron(), s.CampaignCron(), s.SessionCron()} {
			if len(strings.Fields(expr)) != 5 {
				return fmt.Errorf("invalid cron expression %q: want 5 fields", expr)
			}
		}
	}
	return nil
}

// resolvePath expands a leading ~ to the user's home directory.
func resolvePath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
