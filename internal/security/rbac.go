package security

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rewardhub/rewardhub/internal/tenant"
)

// RBAC enforces role-based access control with default-deny semantics.
// Role definitions are loaded from the RoleSource and cached per tenant with
// a short TTL so admin edits to roles take effect without a restart.
// Safe for concurrent use.
type RBAC struct {
	source   RoleSource
	logger   *slog.Logger
	cacheTTL time.Duration

	mu     sync.RWMutex
	cached map[uuid.UUID]rbacCacheEntry
}

type rbacCacheEntry struct {
	perms    map[string][]string
	loadedAt time.Time
}

// NewRBAC creates an RBAC enforcer backed by the given role source.
func NewRBAC(source RoleSource, logger *slog.Logger) *RBAC {
	return &RBAC{
		source:   source,
		logger:   logger,
		cacheTTL: 60 * time.Second,
		cached:   make(map[uuid.UUID]rbacCacheEntry),
	}
}

// CheckPermission returns nil if the context's roles grant the permission.
// Super admins bypass the check. Default-deny: no roles, unknown roles, or a
// missing permission all mean denied.
func (r *RBAC) CheckPermission(ctx context.Context, perm string) error {
	tc := tenant.FromContext(ctx)
	if tc == nil {
		return tenant.ErrContextMissing
	}
	if tc.IsSuperAdmin {
		return nil
	}
	if tc.TenantID == nil {
		return tenant.ErrTenantRequired
	}

	perms, err := r.permissionsFor(ctx, *tc.TenantID)
	if err != nil {
		return fmt.Errorf("loading role definitions: %w", err)
	}

	for _, roleName := range tc.Roles {
		for _, p := range perms[roleName] {
			if p == perm || p == "*" {
				return nil
			}
		}
	}

	r.logger.WarnContext(ctx, "permission denied",
		slog.String("user_id", tc.UserID),
		slog.String("permission", perm),
	)
	return fmt.Errorf("%w: %s", ErrPermissionDenied, perm)
}

// Invalidate drops the cached role definitions for a tenant. Called after
// role mutations so changes apply immediately.
func (r *RBAC) Invalidate(tenantID uuid.UUID) {
	r.mu.Lock()
	delete(r.cached, tenantID)
	r.mu.Unlock()
}

func (r *RBAC) permissionsFor(ctx context.Context, tenantID uuid.UUID) (map[string][]string, error) {
	r.mu.RLock()
	entry, ok := r.cached[tenantID]
	r.mu.RUnlock()
	if ok && time.Since(entry.loadedAt) < r.cacheTTL {
		return entry.perms, nil
	}

	perms, err := r.source.Permissions(ctx)
	if err != nil {
		// A stale cache beats a hard failure for reads.
		if ok {
			return entry.perms, nil
		}
		return nil, err
	}

	r.mu.Lock()
	r.cached[tenantID] = rbacCacheEntry{perms: perms, loadedAt: time.Now()}
	r.mu.Unlock()
	return perms, nil
}
