// Package security implements permission enforcement, password and MFA
// helpers, and audit logging for the admin surface.
package security

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for security enforcement.
var (
	ErrPermissionDenied   = errors.New("permission denied")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password does not meet policy")
	ErrInvalidTOTPCode    = errors.New("invalid verification code")
)

// Permissions understood by the admin API. Default-deny: a role grants only
// what it enumerates. "*" on a role grants everything within the tenant.
const (
	PermUsersRead        = "users:read"
	PermUsersWrite       = "users:write"
	PermRolesWrite       = "roles:write"
	PermCampaignsRead    = "campaigns:read"
	PermCampaignsWrite   = "campaigns:write"
	PermVouchersRead     = "vouchers:read"
	PermVouchersWrite    = "vouchers:write"
	PermAdsWrite         = "ads:write"
	PermReceiptsRead     = "receipts:read"
	PermReceiptsWrite    = "receipts:write"
	PermRedemptionsRead  = "redemptions:read"
	PermRedemptionsWrite = "redemptions:write"
	PermConfigWrite      = "config:write"
	PermLoginPageWrite   = "loginpage:write"
	PermDashboardRead    = "dashboard:read"
)

// AuditEvent is a single entry in the append-only audit log. One event is
// emitted per successful mutating operation on a tenant-scoped entity.
type AuditEvent struct {
	Timestamp time.Time `json:"timestamp"`
	TenantID  uuid.UUID `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"` // "create", "update", "delete", "login", ...
	Model     string    `json:"model"`  // Entity type name, e.g. "voucher".
	RecordID  string    `json:"record_id,omitempty"`
	Result    string    `json:"result"` // "success", "failure", "denied".
	Error     string    `json:"error,omitempty"`
}

// DefaultRoles are seeded into every new tenant by the setup wizard.
func DefaultRoles() map[string][]string {
	return map[string][]string{
		"owner": {"*"},
		"manager": {
			PermUsersRead, PermCampaignsRead, PermCampaignsWrite,
			PermVouchersRead, PermVouchersWrite, PermAdsWrite,
			PermReceiptsRead, PermReceiptsWrite,
			PermRedemptionsRead, PermRedemptionsWrite,
			PermLoginPageWrite, PermDashboardRead,
		},
		"analyst": {
			PermUsersRead, PermCampaignsRead, PermVouchersRead,
			PermReceiptsRead, PermRedemptionsRead, PermDashboardRead,
		},
	}
}
