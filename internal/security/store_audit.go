package security

import (
	"context"
	"log/slog"
)

// StoreAuditor adapts an AuditStore to the Auditor interface the storage
// layer emits into. Append failures are logged and dropped — the mutation
// the event describes has already committed, and the sink must never block
// or fail it retroactively.
type StoreAuditor struct {
	store  AuditStore
	logger *slog.Logger
}

// NewStoreAuditor creates a database-backed audit sink.
func NewStoreAuditor(store AuditStore, logger *slog.Logger) *StoreAuditor {
	return &StoreAuditor{store: store, logger: logger}
}

// Record appends the event to the audit store, best-effort.
func (a *StoreAuditor) Record(ctx context.Context, event AuditEvent) {
	if err := a.store.Append(ctx, event); err != nil {
		a.logger.ErrorContext(ctx, "failed to append audit event",
			slog.String("action", event.Action),
			slog.String("model", event.Model),
			slog.String("error", err.Error()),
		)
		return
	}
	a.logger.DebugContext(ctx, "audit event appended",
		slog.String("action", event.Action),
		slog.String("model", event.Model),
		slog.String("user_id", event.UserID),
	)
}
