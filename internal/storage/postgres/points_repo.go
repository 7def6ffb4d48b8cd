package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rewardhub/rewardhub/internal/domain"
	"github.com/rewardhub/rewardhub/internal/storage"
)

// PointsRepository implements storage.PointsStore.
// Redeem uses SELECT ... FOR UPDATE to serialize concurrent spends against
// one balance, so two redemptions cannot both pass the availability check.
type PointsRepository struct {
	db *gorm.DB
}

// NewPointsRepository creates a PointsRepository.
func NewPointsRepository(db *gorm.DB) *PointsRepository {
	return &PointsRepository{db: db}
}

// lockForUpdate applies SELECT ... FOR UPDATE where the dialect supports it.
// SQLite has no row locks; its transaction write lock serializes spends.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *PointsRepository) Balance(ctx context.Context, memberID string) (*domain.PointsBalance, error) {
	var model PointsBalanceModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		First(&model, "member_id = ?", memberID).Error
	if err != nil {
		return nil, wrapOp("getting points balance", err)
	}
	return toPointsBalanceDomain(&model), nil
}

// Accrue adds earned points to a member's balance, creating it if absent.
// tenantID is the tenant that owns the balance (the campaign's tenant);
// a scoped caller is still forced onto their own tenant.
func (r *PointsRepository) Accrue(ctx context.Context, tenantID uuid.UUID, memberID string, points int64) error {
	tid, err := writeTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		balance, err := r.getOrCreateBalance(tx, tid, memberID)
		if err != nil {
			return err
		}
		return tx.Model(&PointsBalanceModel{}).
			Where("id = ?", balance.ID).
			Updates(map[string]any{
				"earned":     gorm.Expr("earned + ?", points),
				"updated_at": time.Now().UTC(),
			}).Error
	})
	return wrapOp("accruing points", err)
}

// Redeem atomically spends points against a voucher: it locks the balance
// and voucher rows, verifies availability and stock, records the spend,
// decrements stock, and inserts the redemption row. Any failure rolls the
// whole operation back.
func (r *PointsRepository) Redeem(ctx context.Context, tenantID uuid.UUID, memberID string, voucherID uuid.UUID, points int64) error {
	tid, err := writeTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		balance, err := r.getOrCreateBalance(tx, tid, memberID)
		if err != nil {
			return err
		}

		// Re-fetch both rows with FOR UPDATE locks. The voucher must live in
		// the same tenant as the balance being spent.
		if err := lockForUpdate(tx).
			First(&balance, "id = ?", balance.ID).Error; err != nil {
			return fmt.Errorf("locking balance: %w", err)
		}
		var voucher VoucherModel
		if err := lockForUpdate(tx).
			Where("tenant_id = ?", tid).
			First(&voucher, "id = ?", voucherID).Error; err != nil {
			return fmt.Errorf("locking voucher: %w", translateErr(err))
		}

		if voucher.Status != string(domain.VoucherActive) {
			return storage.ErrOutOfStock
		}
		if voucher.Stock == 0 {
			return storage.ErrOutOfStock
		}
		if balance.Earned-balance.Spent < points {
			return fmt.Errorf("%w: member %q has %d, needs %d",
				storage.ErrInsufficientPoints, memberID, balance.Earned-balance.Spent, points)
		}

		now := time.Now().UTC()
		if err := tx.Model(&PointsBalanceModel{}).
			Where("id = ?", balance.ID).
			Updates(map[string]any{
				"spent":      gorm.Expr("spent + ?", points),
				"updated_at": now,
			}).Error; err != nil {
			return fmt.Errorf("recording spend: %w", err)
		}

		if voucher.Stock > 0 {
			if err := tx.Model(&VoucherModel{}).
				Where("id = ?", voucher.ID).
				Updates(map[string]any{
					"stock":      gorm.Expr("stock - 1"),
					"updated_at": now,
				}).Error; err != nil {
				return fmt.Errorf("decrementing stock: %w", err)
			}
		}

		redemption := RedemptionModel{
			ID:          uuid.New(),
			TenantID:    tid,
			MemberID:    memberID,
			VoucherID:   voucherID,
			PointsSpent: points,
			CreatedAt:   now,
		}
		return tx.Create(&redemption).Error
	})
	if err != nil && (errors.Is(err, storage.ErrInsufficientPoints) || errors.Is(err, storage.ErrOutOfStock) || errors.Is(err, storage.ErrNotFound)) {
		return err
	}
	return wrapOp("redeeming points", err)
}

// getOrCreateBalance returns the balance row for a member within one
// tenant, creating it if absent. The tenant filter is explicit rather than
// TenantScope so a super admin's lookup cannot land on another tenant's
// member of the same name.
func (r *PointsRepository) getOrCreateBalance(tx *gorm.DB, tenantID uuid.UUID, memberID string) (PointsBalanceModel, error) {
	var balance PointsBalanceModel
	err := tx.Where("tenant_id = ? AND member_id = ?", tenantID, memberID).
		First(&balance).Error

	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return PointsBalanceModel{}, fmt.Errorf("looking up balance: %w", err)
	}

	balance = PointsBalanceModel{
		ID:       uuid.New(),
		TenantID: tenantID,
		MemberID: memberID,
	}
	if err := tx.Create(&balance).Error; err != nil {
		return PointsBalanceModel{}, fmt.Errorf("creating balance: %w", err)
	}
	return balance, nil
}
