// Package storage defines the unified Store interface that abstracts all
// persistence operations. Two backends are provided: SQLite (default,
// zero-config) and PostgreSQL (production/multi-tenant).
//
// Every sub-store method on a tenant-scoped entity resolves the tenant scope
// from the context (see internal/tenant) and applies field encryption for the
// registered sensitive fields. Callers never repeat the tenant filter and
// never see ciphertext.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rewardhub/rewardhub/internal/domain"
	"github.com/rewardhub/rewardhub/internal/security"
)

// Sentinel errors shared by both backends.
var (
	ErrNotFound           = errors.New("record not found")
	ErrDuplicate          = errors.New("record already exists")
	ErrInsufficientPoints = errors.New("insufficient points balance")
	ErrOutOfStock         = errors.New("voucher out of stock")
)

// Store is the unified persistence interface for RewardHub.
// It provides access to all domain-specific sub-stores through accessor
// methods. Both backends implement this interface.
type Store interface {
	Tenants() TenantStore
	Users() UserStore
	Roles() RoleStore
	Sessions() SessionStore
	Campaigns() CampaignStore
	Vouchers() VoucherStore
	Receipts() ReceiptStore
	Redemptions() RedemptionStore
	Ads() AdStore
	SystemConfigs() SystemConfigStore
	Integrations() IntegrationStore
	LoginPages() LoginPageStore
	Points() PointsStore
	Audit() security.AuditStore

	// SetAuditor installs the audit sink mutating operations report to.
	SetAuditor(a security.Auditor)

	// Lifecycle.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error

	// Driver returns the storage driver name ("sqlite" or "postgres").
	Driver() string
}

// TenantStore manages the root tenant entity. Tenant reads and writes are
// exempt from the tenant predicate but still require a tenant context for
// audit attribution; creation is restricted to super admins.
type TenantStore interface {
	Create(ctx context.Context, t *domain.Tenant) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
	List(ctx context.Context) ([]*domain.Tenant, error)
	Update(ctx context.Context, t *domain.Tenant) error
	Count(ctx context.Context) (int64, error)
}

// UserStore manages admin user accounts within a tenant.
type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

// RoleStore manages roles. Its Permissions method satisfies security.RoleSource.
type RoleStore interface {
	security.RoleSource
	Create(ctx context.Context, r *domain.Role) error
	List(ctx context.Context) ([]*domain.Role, error)
	Update(ctx context.Context, r *domain.Role) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SessionStore manages authenticated admin sessions.
type SessionStore interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByTokenHash(ctx context.Context, hash string) (*domain.Session, error)
	MarkMFAPassed(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// CampaignStore manages points-earning campaigns.
type CampaignStore interface {
	Create(ctx context.Context, c *domain.Campaign) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Campaign, error)
	List(ctx context.Context) ([]*domain.Campaign, error)
	Update(ctx context.Context, c *domain.Campaign) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ExpireEnded transitions active campaigns past their end date to expired.
	// Runs under a super-admin context from the scheduler.
	ExpireEnded(ctx context.Context, now time.Time) (int64, error)
	CountActive(ctx context.Context) (int64, error)
}

// VoucherStore manages redeemable vouchers.
type VoucherStore interface {
	Create(ctx context.Context, v *domain.Voucher) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Voucher, error)
	GetByCode(ctx context.Context, code string) (*domain.Voucher, error)
	List(ctx context.Context) ([]*domain.Voucher, error)
	Update(ctx context.Context, v *domain.Voucher) error
	Delete(ctx context.Context, id uuid.UUID) error
	ExpireEnded(ctx context.Context, now time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// ReceiptStore records submitted receipts.
type ReceiptStore interface {
	Create(ctx context.Context, r *domain.Receipt) error
	List(ctx context.Context, limit int) ([]*domain.Receipt, error)
	Count(ctx context.Context) (int64, error)
	SumPoints(ctx context.Context) (int64, error)
}

// RedemptionStore records voucher redemptions.
type RedemptionStore interface {
	Create(ctx context.Context, r *domain.Redemption) error
	List(ctx context.Context, limit int) ([]*domain.Redemption, error)
	Count(ctx context.Context) (int64, error)
	SumPoints(ctx context.Context) (int64, error)
}

// AdStore manages promotional banners.
type AdStore interface {
	Create(ctx context.Context, a *domain.Ad) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Ad, error)
	List(ctx context.Context) ([]*domain.Ad, error)
	Update(ctx context.Context, a *domain.Ad) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SystemConfigStore manages per-tenant key/value settings with optional
// encryption at rest.
type SystemConfigStore interface {
	Set(ctx context.Context, c *domain.SystemConfig) error
	Get(ctx context.Context, key string) (*domain.SystemConfig, error)
	List(ctx context.Context) ([]*domain.SystemConfig, error)
	Delete(ctx context.Context, key string) error
}

// IntegrationStore manages outbound integration credentials.
type IntegrationStore interface {
	Create(ctx context.Context, i *domain.Integration) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Integration, error)
	List(ctx context.Context) ([]*domain.Integration, error)
	Update(ctx context.Context, i *domain.Integration) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// LoginPageStore manages the tenant's login page branding.
type LoginPageStore interface {
	Get(ctx context.Context) (*domain.LoginPage, error)
	Upsert(ctx context.Context, p *domain.LoginPage) error
}

// PointsStore is the member points ledger. Accrue and Redeem use database
// transactions so concurrent redemptions cannot overspend a balance.
// Both take the tenant that owns the ledger rows explicitly: callers derive
// it from the campaign or voucher so a super admin acting across tenants
// writes the balance in the same tenant as the earning or spend.
type PointsStore interface {
	Balance(ctx context.Context, memberID string) (*domain.PointsBalance, error)
	Accrue(ctx context.Context, tenantID uuid.UUID, memberID string, points int64) error
	// Redeem atomically checks the available balance, records the spend, and
	// decrements voucher stock. Returns ErrInsufficientPoints or ErrOutOfStock.
	Redeem(ctx context.Context, tenantID uuid.UUID, memberID string, voucherID uuid.UUID, points int64) error
}

// Config holds storage configuration for driver selection.
type Config struct {
	Driver   string         `json:"driver"` // "sqlite" (default) or "postgres"
	SQLite   SQLiteConfig   `json:"sqlite"`
	Postgres PostgresConfig `json:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path        string `json:"path,omitempty"` // Database file path.
	JournalMode string `json:"journal_mode"`   // "wal" (default), "delete", "truncate", etc.
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN              string `json:"dsn"`
	MaxOpenConns     int    `json:"max_open_conns"`
	MaxIdleConns     int    `json:"max_idle_conns"`
	ConnMaxLifetimeS int    `json:"conn_max_lifetime_s"`
}

// DriverSQLite is the SQLite driver name.
const DriverSQLite = "sqlite"

// DriverPostgres is the PostgreSQL driver name.
const DriverPostgres = "postgres"
