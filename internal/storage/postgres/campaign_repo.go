package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rewardhub/rewardhub/internal/domain"
	"github.com/rewardhub/rewardhub/internal/security"
)

// CampaignRepository implements storage.CampaignStore.
type CampaignRepository struct {
	db      *gorm.DB
	auditor security.Auditor
}

// NewCampaignRepository creates a CampaignRepository.
func NewCampaignRepository(db *gorm.DB, auditor security.Auditor) *CampaignRepository {
	return &CampaignRepository{db: db, auditor: auditor}
}

func (r *CampaignRepository) Create(ctx context.Context, c *domain.Campaign) error {
	tid, err := writeTenant(ctx, c.TenantID)
	if err != nil {
		return err
	}
	c.TenantID = tid
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = domain.CampaignDraft
	}
	model := toCampaignModel(c)
	err = wrapOp("creating campaign", r.db.WithContext(ctx).Create(&model).Error)
	recordAudit(ctx, r.auditor, "create", "campaign", c.ID, err)
	return err
}

func (r *CampaignRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	var model CampaignModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		First(&model, "id = ?", id).Error
	if err != nil {
		return nil, wrapOp("getting campaign", err)
	}
	return toCampaignDomain(&model), nil
}

func (r *CampaignRepository) List(ctx context.Context) ([]*domain.Campaign, error) {
	var models []CampaignModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, wrapOp("listing campaigns", err)
	}
	out := make([]*domain.Campaign, len(models))
	for i := range models {
		out[i] = toCampaignDomain(&models[i])
	}
	return out, nil
}

func (r *CampaignRepository) Update(ctx context.Context, c *domain.Campaign) error {
	err := wrapOp("updating campaign", r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Model(&CampaignModel{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{
			"name":            c.Name,
			"description":     c.Description,
			"points_per_unit": c.PointsPerUnit,
			"starts_at":       c.StartsAt,
			"ends_at":         c.EndsAt,
			"status":          string(c.Status),
			"updated_at":      time.Now().UTC(),
		}).Error)
	recordAudit(ctx, r.auditor, "update", "campaign", c.ID, err)
	return err
}

func (r *CampaignRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := wrapOp("deleting campaign", r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Delete(&CampaignModel{}, "id = ?", id).Error)
	recordAudit(ctx, r.auditor, "delete", "campaign", id, err)
	return err
}

// ExpireEnded transitions active campaigns whose end date has passed.
func (r *CampaignRepository) ExpireEnded(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Model(&CampaignModel{}).
		Where("status = ? AND ends_at < ?", string(domain.CampaignActive), now).
		Updates(map[string]any{
			"status":     string(domain.CampaignExpired),
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, wrapOp("expiring campaigns", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *CampaignRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Model(&CampaignModel{}).
		Where("status = ?", string(domain.CampaignActive)).
		Count(&n).Error
	if err != nil {
		return 0, wrapOp("counting active campaigns", err)
	}
	return n, nil
}
