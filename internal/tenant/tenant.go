// Package tenant carries the per-request tenant context through the call tree.
//
// A Context is created once per inbound request (after session verification)
// or per background job, attached to the context.Context, and read by the
// storage layer to scope every query. It is immutable and never persisted.
//
// Policy: operations against tenant-scoped entities with no Context present
// fail closed with ErrContextMissing. Silently running unscoped would be a
// cross-tenant leak, not a recoverable condition.
package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Sentinel errors for tenant scoping. These always surface to the caller —
// scoping violations are security defects, not retryable conditions.
var (
	// ErrContextMissing is returned when a tenant-scoped operation runs
	// without a Context attached.
	ErrContextMissing = errors.New("tenant context missing")

	// ErrTenantRequired is returned when the Context has no tenant ID, the
	// caller is not a super admin, and the target entity is tenant-scoped.
	ErrTenantRequired = errors.New("tenant required")
)

// Context identifies the acting user and tenant for one logical operation.
type Context struct {
	UserID       string
	TenantID     *uuid.UUID // nil for super admins operating cross-tenant.
	Roles        []string
	IsSuperAdmin bool
}

// HasRole reports whether the context carries the named role.
func (c *Context) HasRole(name string) bool {
	for _, r := range c.Roles {
		if r == name {
			return true
		}
	}
	return false
}

type ctxKey struct{}

// WithContext attaches tc to ctx. The storage layer reads it back with
// FromContext; nothing else should.
func WithContext(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// FromContext returns the attached tenant Context, or nil if absent.
func FromContext(ctx context.Context) *Context {
	tc, _ := ctx.Value(ctxKey{}).(*Context)
	return tc
}

// Resolve returns the effective tenant ID for a scoped operation.
// It applies, in order: fail-closed on missing context, super-admin bypass
// (ok=false, no error), and ErrTenantRequired for a nil tenant ID.
func Resolve(ctx context.Context) (id uuid.UUID, scoped bool, err error) {
	tc := FromContext(ctx)
	if tc == nil {
		return uuid.Nil, false, ErrContextMissing
	}
	if tc.IsSuperAdmin {
		return uuid.Nil, false, nil
	}
	if tc.TenantID == nil {
		return uuid.Nil, false, ErrTenantRequired
	}
	return *tc.TenantID, true, nil
}

// Require returns the Context or ErrContextMissing. Used by operations on the
// root tenant entity, which are exempt from the tenant predicate but still
// need an acting identity for audit attribution.
func Require(ctx context.Context) (*Context, error) {
	tc := FromContext(ctx)
	if tc == nil {
		return nil, ErrContextMissing
	}
	return tc, nil
}

// RunScoped runs fn with tc attached. Every entry point (HTTP request,
// background job, CLI command) wraps its body in this so callees see the
// tenant scope without threading it through each signature.
func RunScoped(ctx context.Context, tc *Context, fn func(ctx context.Context) error) error {
	return fn(WithContext(ctx, tc))
}

// SystemContext returns a super-admin context for internal processes
// (setup bootstrap, scheduled maintenance). Actions run under it are audited
// with the given actor name.
func SystemContext(actor string) *Context {
	return &Context{UserID: actor, IsSuperAdmin: true}
}
