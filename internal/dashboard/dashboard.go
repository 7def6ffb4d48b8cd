// Package dashboard aggregates the tenant-scoped stat cards shown on the
// admin home screen. Every count runs through the same tenant-filtered
// store reads as the rest of the application, so a tenant admin's numbers
// cover exactly their own data.
package dashboard

import (
	"context"
	"fmt"

	"github.com/rewardhub/rewardhub/internal/domain"
	"github.com/rewardhub/rewardhub/internal/storage"
)

// Service computes dashboard statistics.
type Service struct {
	store storage.Store
}

// NewService creates a dashboard service over the given store.
func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

// Stats collects all stat cards in one pass. The context carries the tenant
// scope; a super admin gets platform-wide totals.
func (s *Service) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	stats := &domain.DashboardStats{}

	var err error
	if stats.Users, err = s.store.Users().Count(ctx); err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}
	if stats.ActiveCampaigns, err = s.store.Campaigns().CountActive(ctx); err != nil {
		return nil, fmt.Errorf("counting active campaigns: %w", err)
	}
	if stats.Vouchers, err = s.store.Vouchers().Count(ctx); err != nil {
		return nil, fmt.Errorf("counting vouchers: %w", err)
	}
	if stats.Receipts, err = s.store.Receipts().Count(ctx); err != nil {
		return nil, fmt.Errorf("counting receipts: %w", err)
	}
	if stats.Redemptions, err = s.store.Redemptions().Count(ctx); err != nil {
		return nil, fmt.Errorf("counting redemptions: %w", err)
	}
	if stats.PointsIssued, err = s.store.Receipts().SumPoints(ctx); err != nil {
		return nil, fmt.Errorf("summing points issued: %w", err)
	}
	if stats.PointsRedeemed, err = s.store.Redemptions().SumPoints(ctx); err != nil {
		return nil, fmt.Errorf("summing points redeemed: %w", err)
	}
	return stats, nil
}
