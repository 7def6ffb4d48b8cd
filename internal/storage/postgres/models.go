package postgres

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JSONB is a json.RawMessage stored in a jsonb column (TEXT on SQLite).
type JSONB json.RawMessage

// Value implements driver.Valuer.
func (j JSONB) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

// Scan implements sql.Scanner.
func (j *JSONB) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append((*j)[:0], v...)
	case string:
		*j = JSONB(v)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
	return nil
}

// TenantModel maps to the "tenants" table. The root entity: no tenant_id
// column, and reads of it are exempt from the tenant predicate.
type TenantModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null;uniqueIndex"`
	Slug      string    `gorm:"not null;uniqueIndex"`
	Status    string    `gorm:"not null;default:'active'"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (TenantModel) TableName() string { return "tenants" }

// UserModel maps to the "users" table.
// MFASecret and MFABackupCodes hold ciphertext envelopes, never plaintext.
type UserModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_users_tenant_email"`
	Email          string    `gorm:"not null;uniqueIndex:idx_users_tenant_email"`
	Name           string    `gorm:"not null"`
	PasswordHash   string    `gorm:"not null"`
	RoleNames      JSONB     `gorm:"type:jsonb;not null;default:'[]'"`
	IsSuperAdmin   bool      `gorm:"not null;default:false"`
	MFAEnabledAt   *time.Time
	MFASecret      string `gorm:"type:text;not null;default:''"`
	MFABackupCodes JSONB  `gorm:"type:jsonb;not null;default:'[]'"`
	LastLoginAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (UserModel) TableName() string { return "users" }

// RoleModel maps to the "roles" table.
type RoleModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_roles_tenant_name"`
	Name        string    `gorm:"not null;uniqueIndex:idx_roles_tenant_name"`
	Permissions JSONB     `gorm:"type:jsonb;not null;default:'[]'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (RoleModel) TableName() string { return "roles" }

// SessionModel maps to the "sessions" table. Only the token hash is stored.
type SessionModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	TokenHash string    `gorm:"not null;uniqueIndex"`
	MFAPassed bool      `gorm:"not null;default:false"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
}

func (SessionModel) TableName() string { return "sessions" }

// CampaignModel maps to the "campaigns" table.
type CampaignModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Name          string    `gorm:"not null"`
	Description   string    `gorm:"type:text"`
	PointsPerUnit float64   `gorm:"type:numeric(14,6);not null;default:1"`
	StartsAt      time.Time `gorm:"not null"`
	EndsAt        time.Time `gorm:"not null;index"`
	Status        string    `gorm:"not null;default:'draft'"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (CampaignModel) TableName() string { return "campaigns" }

// VoucherModel maps to the "vouchers" table.
type VoucherModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_vouchers_tenant_code"`
	Code        string    `gorm:"not null;uniqueIndex:idx_vouchers_tenant_code"`
	Title       string    `gorm:"not null"`
	Description string    `gorm:"type:text"`
	PointsCost  int64     `gorm:"not null"`
	Stock       int       `gorm:"not null;default:-1"` // -1 = unlimited
	ExpiresAt   *time.Time
	Status      string `gorm:"not null;default:'active'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (VoucherModel) TableName() string { return "vouchers" }

// ReceiptModel maps to the "receipts" table.
// Append-only. No UpdatedAt or DeletedAt.
type ReceiptModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID `gorm:"type:uuid;not null;index"`
	MemberID      string    `gorm:"not null;index"`
	CampaignID    uuid.UUID `gorm:"type:uuid;not null;index"`
	AmountCents   int64     `gorm:"not null"`
	PointsAwarded int64     `gorm:"not null"`
	SubmittedAt   time.Time `gorm:"not null"`
	CreatedAt     time.Time `gorm:"index"`
}

func (ReceiptModel) TableName() string { return "receipts" }

// RedemptionModel maps to the "redemptions" table.
// Append-only. No UpdatedAt or DeletedAt.
type RedemptionModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index"`
	MemberID    string    `gorm:"not null;index"`
	VoucherID   uuid.UUID `gorm:"type:uuid;not null;index"`
	PointsSpent int64     `gorm:"not null"`
	CreatedAt   time.Time `gorm:"index"`
}

func (RedemptionModel) TableName() string { return "redemptions" }

// AdModel maps to the "ads" table.
type AdModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Title     string    `gorm:"not null"`
	ImageURL  string    `gorm:"not null"`
	TargetURL string    `gorm:"not null;default:''"`
	Enabled   bool      `gorm:"not null;default:true"`
	StartsAt  *time.Time
	EndsAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (AdModel) TableName() string { return "ads" }

// SystemConfigModel maps to the "system_configs" table.
// Value holds a ciphertext envelope when IsEncrypted is true.
type SystemConfigModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_sysconf_tenant_key"`
	Key         string    `gorm:"not null;uniqueIndex:idx_sysconf_tenant_key"`
	Value       string    `gorm:"type:text;not null;default:''"`
	IsEncrypted bool      `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (SystemConfigModel) TableName() string { return "system_configs" }

// IntegrationModel maps to the "integrations" table.
// APIKey and WebhookSecret hold ciphertext envelopes, never plaintext.
type IntegrationModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_integrations_tenant_name"`
	Name          string    `gorm:"not null;uniqueIndex:idx_integrations_tenant_name"`
	Kind          string    `gorm:"not null"`
	Endpoint      string    `gorm:"not null;default:''"`
	APIKey        string    `gorm:"type:text;not null;default:''"`
	WebhookSecret string    `gorm:"type:text;not null;default:''"`
	Enabled       bool      `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (IntegrationModel) TableName() string { return "integrations" }

// LoginPageModel maps to the "login_pages" table. One row per tenant.
type LoginPageModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Title         string    `gorm:"not null;default:''"`
	WelcomeText   string    `gorm:"type:text;not null;default:''"`
	LogoURL       string    `gorm:"not null;default:''"`
	BackgroundURL string    `gorm:"not null;default:''"`
	PrimaryColor  string    `gorm:"not null;default:''"`
	SupportEmail  string    `gorm:"not null;default:''"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (LoginPageModel) TableName() string { return "login_pages" }

// PointsBalanceModel maps to the "points_balances" table.
type PointsBalanceModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_points_tenant_member"`
	MemberID  string    `gorm:"not null;uniqueIndex:idx_points_tenant_member"`
	Earned    int64     `gorm:"not null;default:0"`
	Spent     int64     `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PointsBalanceModel) TableName() string { return "points_balances" }

// AuditEventModel maps to the "audit_events" table.
// No UpdatedAt or DeletedAt — the audit log is append-only and immutable.
type AuditEventModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	UserID    string    `gorm:"not null"`
	Action    string    `gorm:"not null"`
	Model     string    `gorm:"not null"`
	RecordID  string    `gorm:"not null;default:''"`
	Result    string    `gorm:"not null"`
	Error     string    `gorm:"type:text;not null;default:''"`
	CreatedAt time.Time `gorm:"index"`
}

func (AuditEventModel) TableName() string { return "audit_events" }
