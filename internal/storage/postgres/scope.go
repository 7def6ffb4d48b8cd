package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rewardhub/rewardhub/internal/security"
	"github.com/rewardhub/rewardhub/internal/storage"
	"github.com/rewardhub/rewardhub/internal/tenant"
)

// TenantScope returns a GORM scope that filters by the tenant resolved from
// ctx. Must be applied to every query in every repository method on a
// tenant-scoped table. A missing or incomplete tenant context poisons the
// statement via AddError, so the query fails instead of running unfiltered.
// Super admins resolve unscoped and see all tenants.
func TenantScope(ctx context.Context) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		id, scoped, err := tenant.Resolve(ctx)
		if err != nil {
			_ = db.AddError(err)
			return db
		}
		if !scoped {
			return db
		}
		return db.Where("tenant_id = ?", id)
	}
}

// writeTenant returns the tenant ID a new record must carry. Scoped callers
// always write into their own tenant regardless of what the record claims.
// Super admins may target any tenant, so the record's own TenantID wins for
// them; with no target at all the write is rejected.
func writeTenant(ctx context.Context, recordTenant uuid.UUID) (uuid.UUID, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if !tc.IsSuperAdmin {
		if tc.TenantID == nil {
			return uuid.Nil, tenant.ErrTenantRequired
		}
		return *tc.TenantID, nil
	}
	if recordTenant != uuid.Nil {
		return recordTenant, nil
	}
	if tc.TenantID != nil {
		return *tc.TenantID, nil
	}
	return uuid.Nil, tenant.ErrTenantRequired
}

// translateErr maps GORM errors onto the storage sentinels.
func translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return storage.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return storage.ErrDuplicate
	default:
		return err
	}
}

// recordAudit emits one audit event for a completed mutation. Attribution
// comes from the tenant context; a failed mutation is recorded with the
// error attached. The auditor never blocks or fails the mutation itself.
func recordAudit(ctx context.Context, a security.Auditor, action, model string, recordID uuid.UUID, opErr error) {
	ev := security.AuditEvent{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Model:     model,
		Result:    "success",
	}
	if recordID != uuid.Nil {
		ev.RecordID = recordID.String()
	}
	if tc := tenant.FromContext(ctx); tc != nil {
		ev.UserID = tc.UserID
		if tc.TenantID != nil {
			ev.TenantID = *tc.TenantID
		}
	}
	if opErr != nil {
		ev.Result = "failure"
		ev.Error = opErr.Error()
	}
	a.Record(ctx, ev)
}

// wrapOp annotates a non-sentinel error with the operation name.
func wrapOp(op string, err error) error {
	err = translateErr(err)
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrDuplicate) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
