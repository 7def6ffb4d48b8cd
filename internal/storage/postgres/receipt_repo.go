package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rewardhub/rewardhub/internal/domain"
)

// ReceiptRepository implements storage.ReceiptStore.
// Append-only: receipts are never updated or deleted once recorded.
type ReceiptRepository struct {
	db *gorm.DB
}

// NewReceiptRepository creates a ReceiptRepository.
func NewReceiptRepository(db *gorm.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

func (r *ReceiptRepository) Create(ctx context.Context, rec *domain.Receipt) error {
	tid, err := writeTenant(ctx, rec.TenantID)
	if err != nil {
		return err
	}
	rec.TenantID = tid
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	model := toReceiptModel(rec)
	return wrapOp("creating receipt", r.db.WithContext(ctx).Create(&model).Error)
}

func (r *ReceiptRepository) List(ctx context.Context, limit int) ([]*domain.Receipt, error) {
	if limit <= 0 {
		limit = 100
	}
	var models []ReceiptModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, wrapOp("listing receipts", err)
	}
	out := make([]*domain.Receipt, len(models))
	for i := range models {
		out[i] = toReceiptDomain(&models[i])
	}
	return out, nil
}

func (r *ReceiptRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Model(&ReceiptModel{}).
		Count(&n).Error
	if err != nil {
		return 0, wrapOp("counting receipts", err)
	}
	return n, nil
}

// SumPoints returns the total points awarded across all receipts in scope.
func (r *ReceiptRepository) SumPoints(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Model(&ReceiptModel{}).
		Select("COALESCE(SUM(points_awarded), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, wrapOp("summing receipt points", err)
	}
	return total, nil
}
