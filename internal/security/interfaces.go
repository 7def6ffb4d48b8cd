package security

import (
	"context"
)

// RoleSource loads role → permission mappings for the caller's tenant.
// The tenant scope is carried on ctx; implementations apply it the same way
// every other storage read does.
type RoleSource interface {
	Permissions(ctx context.Context) (map[string][]string, error)
}

// AuditStore is an append-only store for audit events.
// No update or delete methods — immutability enforced at the interface level.
type AuditStore interface {
	// Append writes a single audit event. Never updates or deletes.
	Append(ctx context.Context, event AuditEvent) error
	// List returns recent events for the caller's tenant, newest first.
	List(ctx context.Context, limit int) ([]AuditEvent, error)
}

// Auditor is the audit sink the storage layer writes to after successful
// mutations. Implementations must never block the mutation result on sink
// availability — failures are logged and dropped.
type Auditor interface {
	Record(ctx context.Context, event AuditEvent)
}

// nopAuditor discards all events. Used in tests and before the sink is wired.
type nopAuditor struct{}

func (nopAuditor) Record(context.Context, AuditEvent) {}

// NopAuditor returns an Auditor that discards everything.
func NopAuditor() Auditor { return nopAuditor{} }
