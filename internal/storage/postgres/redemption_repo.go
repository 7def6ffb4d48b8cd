package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rewardhub/rewardhub/internal/domain"
)

// RedemptionRepository implements storage.RedemptionStore.
// Append-only, same as receipts.
type RedemptionRepository struct {
	db *gorm.DB
}

// NewRedemptionRepository creates a RedemptionRepository.
func NewRedemptionRepository(db *gorm.DB) *RedemptionRepository {
	return &RedemptionRepository{db: db}
}

func (r *RedemptionRepository) Create(ctx context.Context, red *domain.Redemption) error {
	tid, err := writeTenant(ctx, red.TenantID)
	if err != nil {
		return err
	}
	red.TenantID = tid
	if red.ID == uuid.Nil {
		red.ID = uuid.New()
	}
	model := toRedemptionModel(red)
	return wrapOp("creating redemption", r.db.WithContext(ctx).Create(&model).Error)
}

func (r *RedemptionRepository) List(ctx context.Context, limit int) ([]*domain.Redemption, error) {
	if limit <= 0 {
		limit = 100
	}
	var models []RedemptionModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, wrapOp("listing redemptions", err)
	}
	out := make([]*domain.Redemption, len(models))
	for i := range models {
		out[i] = toRedemptionDomain(&models[i])
	}
	return out, nil
}

func (r *RedemptionRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Model(&RedemptionModel{}).
		Count(&n).Error
	if err != nil {
		return 0, wrapOp("counting redemptions", err)
	}
	return n, nil
}

// SumPoints returns the total points spent across all redemptions in scope.
func (r *RedemptionRepository) SumPoints(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Model(&RedemptionModel{}).
		Select("COALESCE(SUM(points_spent), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, wrapOp("summing redemption points", err)
	}
	return total, nil
}
