package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/rewardhub/rewardhub/internal/security"
)

// AuditRepository implements security.AuditStore with the database backend.
// Append-only: no Update or Delete methods exist on this type.
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates an AuditRepository.
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts a single audit event. This is the only write method;
// immutability is enforced at the interface level.
func (r *AuditRepository) Append(ctx context.Context, event security.AuditEvent) error {
	model := toAuditModel(event)
	return wrapOp("appending audit event", r.db.WithContext(ctx).Create(&model).Error)
}

// List returns events for the caller's tenant, newest first.
// Limit defaults to 100.
func (r *AuditRepository) List(ctx context.Context, limit int) ([]security.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var models []AuditEventModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, wrapOp("listing audit events", err)
	}
	events := make([]security.AuditEvent, len(models))
	for i := range models {
		events[i] = toAuditDomain(&models[i])
	}
	return events, nil
}
