package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rewardhub/rewardhub/internal/domain"
	"github.com/rewardhub/rewardhub/internal/security"
)

// VoucherRepository implements storage.VoucherStore. Stock decrement lives
// in the points repository's Redeem transaction, not here.
type VoucherRepository struct {
	db      *gorm.DB
	auditor security.Auditor
}

// NewVoucherRepository creates a VoucherRepository.
func NewVoucherRepository(db *gorm.DB, auditor security.Auditor) *VoucherRepository {
	return &VoucherRepository{db: db, auditor: auditor}
}

func (r *VoucherRepository) Create(ctx context.Context, v *domain.Voucher) error {
	tid, err := writeTenant(ctx, v.TenantID)
	if err != nil {
		return err
	}
	v.TenantID = tid
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.Status == "" {
		v.Status = domain.VoucherActive
	}
	model := toVoucherModel(v)
	err = wrapOp("creating voucher", r.db.WithContext(ctx).Create(&model).Error)
	recordAudit(ctx, r.auditor, "create", "voucher", v.ID, err)
	return err
}

func (r *VoucherRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Voucher, error) {
	var model VoucherModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		First(&model, "id = ?", id).Error
	if err != nil {
		return nil, wrapOp("getting voucher", err)
	}
	return toVoucherDomain(&model), nil
}

func (r *VoucherRepository) GetByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	var model VoucherModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		First(&model, "code = ?", code).Error
	if err != nil {
		return nil, wrapOp("getting voucher by code", err)
	}
	return toVoucherDomain(&model), nil
}

func (r *VoucherRepository) List(ctx context.Context) ([]*domain.Voucher, error) {
	var models []VoucherModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, wrapOp("listing vouchers", err)
	}
	out := make([]*domain.Voucher, len(models))
	for i := range models {
		out[i] = toVoucherDomain(&models[i])
	}
	return out, nil
}

func (r *VoucherRepository) Update(ctx context.Context, v *domain.Voucher) error {
	err := wrapOp("updating voucher", r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Model(&VoucherModel{}).
		Where("id = ?", v.ID).
		Updates(map[string]any{
			"code":        v.Code,
			"title":       v.Title,
			"description": v.Description,
			"points_cost": v.PointsCost,
			"stock":       v.Stock,
			"expires_at":  v.ExpiresAt,
			"status":      string(v.Status),
			"updated_at":  time.Now().UTC(),
		}).Error)
	recordAudit(ctx, r.auditor, "update", "voucher", v.ID, err)
	return err
}

func (r *VoucherRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := wrapOp("deleting voucher", r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Delete(&VoucherModel{}, "id = ?", id).Error)
	recordAudit(ctx, r.auditor, "delete", "voucher", id, err)
	return err
}

// ExpireEnded transitions active vouchers whose expiry has passed.
func (r *VoucherRepository) ExpireEnded(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Model(&VoucherModel{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", string(domain.VoucherActive), now).
		Updates(map[string]any{
			"status":     string(domain.VoucherExpired),
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, wrapOp("expiring vouchers", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *VoucherRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Model(&VoucherModel{}).
		Count(&n).Error
	if err != nil {
		return 0, wrapOp("counting vouchers", err)
	}
	return n, nil
}
