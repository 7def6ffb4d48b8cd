// Package domain defines cross-cutting entity types used across the system.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the root entity of the multi-tenant hierarchy. Every other
// persisted record carries a TenantID pointing here. The tenant record itself
// has no parent and is exempt from tenant-scope filtering.
type Tenant struct {
	ID        uuid.UUID
	Name      string
	Slug      string // URL-safe identifier, used for the public login page.
	Status    TenantStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TenantStatus is the lifecycle state of a tenant.
type TenantStatus string

const (
	TenantActive    TenantStatus = "active"
	TenantSuspended TenantStatus = "suspended"
)

// User is an administrator or operator account within a tenant.
// MFASecret and MFABackupCodes are stored encrypted at rest; the domain type
// always holds plaintext.
type User struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	Email          string
	Name           string
	PasswordHash   string
	RoleNames      []string
	IsSuperAdmin   bool
	MFAEnabled     *time.Time // Set when MFA enrollment completed; nil = disabled.
	MFASecret      string     // Base32 TOTP seed. Plaintext in memory only.
	MFABackupCodes []string   // Single-use recovery codes. Plaintext in memory only.
	LastLoginAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Role grants a named set of permissions within a tenant.
type Role struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Name        string
	Permissions []string // e.g. "campaigns:write", "users:read".
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Campaign is a points-earning program: receipts submitted while the campaign
// is active accrue points at PointsPerUnit per currency unit spent.
type Campaign struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	Name          string
	Description   string
	PointsPerUnit float64
	StartsAt      time.Time
	EndsAt        time.Time
	Status        CampaignStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignDraft   CampaignStatus = "draft"
	CampaignActive  CampaignStatus = "active"
	CampaignExpired CampaignStatus = "expired"
)

// Voucher is a redeemable reward costing PointsCost points.
type Voucher struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Code        string
	Title       string
	Description string
	PointsCost  int64
	Stock       int // Remaining redemptions. -1 = unlimited.
	ExpiresAt   *time.Time
	Status      VoucherStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// VoucherStatus is the lifecycle state of a voucher.
type VoucherStatus string

const (
	VoucherActive   VoucherStatus = "active"
	VoucherExpired  VoucherStatus = "expired"
	VoucherDisabled VoucherStatus = "disabled"
)

// Receipt is a submitted purchase proof that accrues points against a campaign.
type Receipt struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	MemberID      string // External member identifier (loyalty card, app user).
	CampaignID    uuid.UUID
	AmountCents   int64
	PointsAwarded int64
	SubmittedAt   time.Time
	CreatedAt     time.Time
}

// Redemption records a voucher being redeemed by a member, spending points.
type Redemption struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	MemberID    string
	VoucherID   uuid.UUID
	PointsSpent int64
	CreatedAt   time.Time
}

// Ad is a promotional banner shown on the member-facing surfaces.
type Ad struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Title     string
	ImageURL  string
	TargetURL string
	Enabled   bool
	StartsAt  *time.Time
	EndsAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SystemConfig is a per-tenant key/value setting. When IsEncrypted is true the
// value is encrypted at rest; operators may opt out for non-sensitive values.
type SystemConfig struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Key         string
	Value       string
	IsEncrypted bool
	UpdatedAt   time.Time
}

// Integration holds credentials for a tenant's outbound integration
// (POS webhook, partner API). APIKey and WebhookSecret are encrypted at rest.
type Integration struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	Name          string
	Kind          string // "webhook" or "partner_api".
	Endpoint      string
	APIKey        string // Plaintext in memory only.
	WebhookSecret string // Plaintext in memory only.
	Enabled       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// LoginPage is the customizable branding of a tenant's login screen.
// Served publicly by slug and cached in Redis.
type LoginPage struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	Title         string
	WelcomeText   string
	LogoURL       string
	BackgroundURL string
	PrimaryColor  string
	SupportEmail  string
	UpdatedAt     time.Time
}

// Session is an authenticated admin session. Only the SHA-256 of the bearer
// token is persisted.
type Session struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	MFAPassed bool // False until the TOTP challenge completes.
	ExpiresAt time.Time
	CreatedAt time.Time
}

// PointsBalance is a member's points account within a tenant.
type PointsBalance struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	MemberID  string
	Earned    int64
	Spent     int64
	UpdatedAt time.Time
}

// Available returns the spendable balance.
func (b *PointsBalance) Available() int64 { return b.Earned - b.Spent }

// DashboardStats is the aggregate snapshot behind the admin stat cards.
type DashboardStats struct {
	Users           int64 `json:"users"`
	ActiveCampaigns int64 `json:"active_campaigns"`
	Vouchers        int64 `json:"vouchers"`
	Receipts        int64 `json:"receipts"`
	Redemptions     int64 `json:"redemptions"`
	PointsIssued    int64 `json:"points_issued"`
	PointsRedeemed  int64 `json:"points_redeemed"`
}
