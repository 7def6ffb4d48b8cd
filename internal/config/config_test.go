package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_YAMLDefaults(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
server:
  listen_addr: ":9090"
security:
  mfa_issuer: "Acme Rewards"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Addr() != ":9090" {
		t.Fatalf("Addr() = %q", cfg.Server.Addr())
	}
	if cfg.Storage.StorageDriver() != "sqlite" {
		t.Fatalf("default driver = %q, want sqlite", cfg.Storage.StorageDriver())
	}
	if cfg.Security.Issuer() != "Acme Rewards" {
		t.Fatalf("Issuer() = %q", cfg.Security.Issuer())
	}
	if cfg.Encryption.KeyReference() != "env://ENCRYPTION_KEY" {
		t.Fatalf("KeyReference() = %q", cfg.Encryption.KeyReference())
	}
	if cfg.Audit.SinkKind() != "store" {
		t.Fatalf("SinkKind() = %q", cfg.Audit.SinkKind())
	}
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
storage:
  driver: postgres
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for missing DSN")
	}
}

func TestLoad_FileAuditRequiresPath(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
audit:
  sink: file
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for missing audit file path")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("REWARDHUB_DB_DSN", "postgres://env-dsn/rewardhub")
	path := writeConfig(t, "config.yaml", `
server:
  listen_addr: ":8080"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Storage.StorageDriver() != "postgres" {
		t.Fatalf("driver = %q, want postgres from env", cfg.Storage.StorageDriver())
	}
	if cfg.Storage.Postgres.DSN != "postgres://env-dsn/rewardhub" {
		t.Fatalf("DSN = %q", cfg.Storage.Postgres.DSN)
	}
}

func TestValidate_CronShape(t *testing.T) {
	cfg := &Config{Scheduler: &SchedulerConfig{Enabled: true, VoucherExpiryCron: "bad cron"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected cron shape error")
	}
}

func TestSessionTTL_Default(t *testing.T) {
	var s SecurityConfig
	if got := s.SessionTTL().Hours(); got != 12 {
		t.Fatalf("SessionTTL() = %v hours", got)
	}
}
