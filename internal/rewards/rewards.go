// Package rewards implements the earning and spending flows: receipts
// accrue points against an active campaign, vouchers are redeemed through
// the transactional points ledger.
package rewards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rewardhub/rewardhub/internal/domain"
	"github.com/rewardhub/rewardhub/internal/storage"
)

var (
	// ErrCampaignNotActive rejects receipts against draft or expired campaigns.
	ErrCampaignNotActive = errors.New("campaign is not active")
	// ErrVoucherNotActive rejects redemptions of disabled or expired vouchers.
	ErrVoucherNotActive = errors.New("voucher is not active")
	// ErrInvalidAmount rejects non-positive receipt amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Service coordinates receipts, the points ledger, and redemptions.
type Service struct {
	store  storage.Store
	logger *slog.Logger
}

// NewService creates the rewards service.
func NewService(store storage.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// SubmitReceipt records a purchase receipt and accrues points for the
// member according to the campaign's rate. Points round down; a receipt
// too small to earn a single point is still recorded with zero points.
func (s *Service) SubmitReceipt(ctx context.Context, memberID string, campaignID uuid.UUID, amountCents int64, submittedAt time.Time) (*domain.Receipt, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	campaign, err := s.store.Campaigns().Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if campaign.Status != domain.CampaignActive || now.Before(campaign.StartsAt) || now.After(campaign.EndsAt) {
		return nil, ErrCampaignNotActive
	}

	// PointsPerUnit is per whole currency unit; amounts arrive in cents.
	points := int64(float64(amountCents) / 100.0 * campaign.PointsPerUnit)
	if submittedAt.IsZero() {
		submittedAt = now
	}

	receipt := &domain.Receipt{
		TenantID:      campaign.TenantID,
		MemberID:      memberID,
		CampaignID:    campaignID,
		AmountCents:   amountCents,
		PointsAwarded: points,
		SubmittedAt:   submittedAt,
	}
	if err := s.store.Receipts().Create(ctx, receipt); err != nil {
		return nil, fmt.Errorf("recording receipt: %w", err)
	}
	if points > 0 {
		// The balance belongs to the campaign's tenant, which for a scoped
		// caller is their own; for a super admin it keeps the accrual out of
		// their home tenant.
		if err := s.store.Points().Accrue(ctx, campaign.TenantID, memberID, points); err != nil {
			// The receipt row exists but the balance write failed; surface the
			// error so the caller can retry, the ledger is the source of truth.
			return nil, fmt.Errorf("accruing points: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "receipt accepted",
		slog.String("member_id", memberID),
		slog.Int64("amount_cents", amountCents),
		slog.Int64("points", points),
	)
	return receipt, nil
}

// RedeemVoucher spends a member's points on a voucher. Stock, status,
// expiry, and balance checks all happen inside one transaction in the
// ledger; this method adds the status/expiry pre-checks that give callers
// precise errors.
func (s *Service) RedeemVoucher(ctx context.Context, memberID string, voucherID uuid.UUID) (*domain.Voucher, error) {
	voucher, err := s.store.Vouchers().Get(ctx, voucherID)
	if err != nil {
		return nil, err
	}
	if voucher.Status != domain.VoucherActive {
		return nil, ErrVoucherNotActive
	}
	if voucher.ExpiresAt != nil && time.Now().After(*voucher.ExpiresAt) {
		return nil, ErrVoucherNotActive
	}

	if err := s.store.Points().Redeem(ctx, voucher.TenantID, memberID, voucherID, voucher.PointsCost); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "voucher redeemed",
		slog.String("member_id", memberID),
		slog.String("voucher", voucher.Code),
		slog.Int64("points", voucher.PointsCost),
	)
	return voucher, nil
}

// Balance returns a member's current points position. A member with no
// ledger entry yet reads as a zero balance.
func (s *Service) Balance(ctx context.Context, memberID string) (*domain.PointsBalance, error) {
	bal, err := s.store.Points().Balance(ctx, memberID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &domain.PointsBalance{MemberID: memberID}, nil
		}
		return nil, err
	}
	return bal, nil
}

// History returns recent receipts and redemptions for the tenant.
func (s *Service) History(ctx context.Context, limit int) ([]*domain.Receipt, []*domain.Redemption, error) {
	receipts, err := s.store.Receipts().List(ctx, limit)
	if err != nil {
		return nil, nil, err
	}
	redemptions, err := s.store.Redemptions().List(ctx, limit)
	if err != nil {
		return nil, nil, err
	}
	return receipts, redemptions, nil
}
