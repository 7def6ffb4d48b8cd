package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rewardhub/rewardhub/internal/domain"
	"github.com/rewardhub/rewardhub/internal/security"
	"github.com/rewardhub/rewardhub/internal/tenant"
)

// TenantRepository implements storage.TenantStore. Tenants are the root of
// the hierarchy: no tenant predicate applies, but every call except Count
// requires an acting context, and creation is restricted to super admins.
type TenantRepository struct {
	db      *gorm.DB
	auditor security.Auditor
}

// NewTenantRepository creates a TenantRepository.
func NewTenantRepository(db *gorm.DB, auditor security.Auditor) *TenantRepository {
	return &TenantRepository{db: db, auditor: auditor}
}

func (r *TenantRepository) Create(ctx context.Context, t *domain.Tenant) error {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return err
	}
	if !tc.IsSuperAdmin {
		return security.ErrPermissionDenied
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = domain.TenantActive
	}
	model := toTenantModel(t)
	err = wrapOp("creating tenant", r.db.WithContext(ctx).Create(&model).Error)
	recordAudit(ctx, r.auditor, "create", "tenant", t.ID, err)
	return err
}

func (r *TenantRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	if _, err := tenant.Require(ctx); err != nil {
		return nil, err
	}
	var model TenantModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, wrapOp("getting tenant", err)
	}
	return toTenantDomain(&model), nil
}

func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	if _, err := tenant.Require(ctx); err != nil {
		return nil, err
	}
	var model TenantModel
	if err := r.db.WithContext(ctx).First(&model, "slug = ?", slug).Error; err != nil {
		return nil, wrapOp("getting tenant by slug", err)
	}
	return toTenantDomain(&model), nil
}

func (r *TenantRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	q := r.db.WithContext(ctx).Order("created_at ASC")
	if !tc.IsSuperAdmin {
		// Non-super admins only see their own tenant.
		if tc.TenantID == nil {
			return nil, tenant.ErrTenantRequired
		}
		q = q.Where("id = ?", *tc.TenantID)
	}
	var models []TenantModel
	if err := q.Find(&models).Error; err != nil {
		return nil, wrapOp("listing tenants", err)
	}
	out := make([]*domain.Tenant, len(models))
	for i := range models {
		out[i] = toTenantDomain(&models[i])
	}
	return out, nil
}

func (r *TenantRepository) Update(ctx context.Context, t *domain.Tenant) error {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return err
	}
	if !tc.IsSuperAdmin {
		if tc.TenantID == nil || *tc.TenantID != t.ID {
			return security.ErrPermissionDenied
		}
	}
	err = wrapOp("updating tenant", r.db.WithContext(ctx).
		Model(&TenantModel{}).
		Where("id = ?", t.ID).
		Updates(map[string]any{
			"name":       t.Name,
			"slug":       t.Slug,
			"status":     string(t.Status),
			"updated_at": time.Now().UTC(),
		}).Error)
	recordAudit(ctx, r.auditor, "update", "tenant", t.ID, err)
	return err
}

// Count takes no acting context: the setup wizard calls it before any user
// exists to decide whether the instance is initialized. It exposes only the
// number of tenant rows.
func (r *TenantRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&TenantModel{}).Count(&n).Error; err != nil {
		return 0, wrapOp("counting tenants", err)
	}
	return n, nil
}
