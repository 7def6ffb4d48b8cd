package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rewardhub/rewardhub/internal/domain"
	"github.com/rewardhub/rewardhub/internal/security"
)

// AdRepository implements storage.AdStore.
type AdRepository struct {
	db      *gorm.DB
	auditor security.Auditor
}

// NewAdRepository creates an AdRepository.
func NewAdRepository(db *gorm.DB, auditor security.Auditor) *AdRepository {
	return &AdRepository{db: db, auditor: auditor}
}

func (r *AdRepository) Create(ctx context.Context, a *domain.Ad) error {
	tid, err := writeTenant(ctx, a.TenantID)
	if err != nil {
		return err
	}
	a.TenantID = tid
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	model := toAdModel(a)
	err = wrapOp("creating ad", r.db.WithContext(ctx).Create(&model).Error)
	recordAudit(ctx, r.auditor, "create", "ad", a.ID, err)
	return err
}

func (r *AdRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Ad, error) {
	var model AdModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		First(&model, "id = ?", id).Error
	if err != nil {
		return nil, wrapOp("getting ad", err)
	}
	return toAdDomain(&model), nil
}

func (r *AdRepository) List(ctx context.Context) ([]*domain.Ad, error) {
	var models []AdModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, wrapOp("listing ads", err)
	}
	out := make([]*domain.Ad, len(models))
	for i := range models {
		out[i] = toAdDomain(&models[i])
	}
	return out, nil
}

func (r *AdRepository) Update(ctx context.Context, a *domain.Ad) error {
	err := wrapOp("updating ad", r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Model(&AdModel{}).
		Where("id = ?", a.ID).
		Updates(map[string]any{
			"title":      a.Title,
			"image_url":  a.ImageURL,
			"target_url": a.TargetURL,
			"enabled":    a.Enabled,
			"starts_at":  a.StartsAt,
			"ends_at":    a.EndsAt,
			"updated_at": time.Now().UTC(),
		}).Error)
	recordAudit(ctx, r.auditor, "update", "ad", a.ID, err)
	return err
}

func (r *AdRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := wrapOp("deleting ad", r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Delete(&AdModel{}, "id = ?", id).Error)
	recordAudit(ctx, r.auditor, "delete", "ad", id, err)
	return err
}
