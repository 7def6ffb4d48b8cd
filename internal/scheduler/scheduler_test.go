package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/rewardhub/rewardhub/internal/domain"
	"github.com/rewardhub/rewardhub/internal/fieldcrypt"
	"github.com/rewardhub/rewardhub/internal/storage"
	pgstore "github.com/rewardhub/rewardhub/internal/storage/postgres"
	"github.com/rewardhub/rewardhub/internal/tenant"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func testStore(t *testing.T) storage.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	codec, err := fieldcrypt.New(testKeyHex)
	if err != nil {
		t.Fatalf("building codec: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := pgstore.NewStoreWithDB(db, codec, logger, storage.DriverSQLite)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedTenant(t *testing.T, store storage.Store) (uuid.UUID, context.Context) {
	t.Helper()
	super := tenant.WithContext(context.Background(), &tenant.Context{UserID: "root", IsSuperAdmin: true})
	tn := &domain.Tenant{Name: "acme", Slug: "acme", Status: domain.TenantActive}
	if err := store.Tenants().Create(super, tn); err != nil {
		t.Fatalf("creating tenant: %v", err)
	}
	return tn.ID, tenant.WithContext(context.Background(), &tenant.Context{UserID: "admin", TenantID: &tn.ID})
}

func TestRunOnceExpiresAndPurges(t *testing.T) {
	store := testStore(t)
	tenantID, ctx := seedTenant(t, store)

	ended := &domain.Campaign{
		TenantID:      tenantID,
		Name:          "spring",
		PointsPerUnit: 1,
		StartsAt:      time.Now().Add(-48 * time.Hour),
		EndsAt:        time.Now().Add(-time.Hour),
		Status:        domain.CampaignActive,
	}
	if err := store.Campaigns().Create(ctx, ended); err != nil {
		t.Fatalf("creating campaign: %v", err)
	}
	running := &domain.Campaign{
		TenantID:      tenantID,
		Name:          "summer",
		PointsPerUnit: 1,
		StartsAt:      time.Now().Add(-time.Hour),
		EndsAt:        time.Now().Add(time.Hour),
		Status:        domain.CampaignActive,
	}
	if err := store.Campaigns().Create(ctx, running); err != nil {
		t.Fatalf("creating campaign: %v", err)
	}

	past := time.Now().Add(-time.Minute)
	voucher := &domain.Voucher{
		TenantID:   tenantID,
		Code:       "OLD10",
		Title:      "Old voucher",
		PointsCost: 10,
		Stock:      -1,
		ExpiresAt:  &past,
		Status:     domain.VoucherActive,
	}
	if err := store.Vouchers().Create(ctx, voucher); err != nil {
		t.Fatalf("creating voucher: %v", err)
	}

	user := &domain.User{TenantID: tenantID, Email: "a@acme.com", Name: "A", PasswordHash: "x"}
	if err := store.Users().Create(ctx, user); err != nil {
		t.Fatalf("creating user: %v", err)
	}
	stale := &domain.Session{
		TenantID:  tenantID,
		UserID:    user.ID,
		TokenHash: "stalehash",
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	if err := store.Sessions().Create(ctx, stale); err != nil {
		t.Fatalf("creating session: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	s := New(store, NewMetrics(reg), logger, Config{})
	s.RunOnce(context.Background())

	got, err := store.Campaigns().Get(ctx, ended.ID)
	if err != nil {
		t.Fatalf("reloading campaign: %v", err)
	}
	if got.Status != domain.CampaignExpired {
		t.Fatalf("ended campaign status = %q, want expired", got.Status)
	}
	still, err := store.Campaigns().Get(ctx, running.ID)
	if err != nil {
		t.Fatalf("reloading campaign: %v", err)
	}
	if still.Status != domain.CampaignActive {
		t.Fatalf("running campaign status = %q, want active", still.Status)
	}

	v, err := store.Vouchers().Get(ctx, voucher.ID)
	if err != nil {
		t.Fatalf("reloading voucher: %v", err)
	}
	if v.Status != domain.VoucherExpired {
		t.Fatalf("voucher status = %q, want expired", v.Status)
	}

	if _, err := store.Sessions().GetByTokenHash(ctx, "stalehash"); err == nil {
		t.Fatal("expected the expired session to be purged")
	}
}

func TestStartRejectsBadExpression(t *testing.T) {
	store := testStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(store, nil, logger, Config{CampaignExpiry: "not a cron expr"})
	if _, err := s.Start(context.Background()); err == nil {
		t.Fatal("expected an error for an invalid cron expression")
	}
}

func TestStartAndStop(t *testing.T) {
	store := testStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(store, nil, logger, Config{})
	stop, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("starting scheduler: %v", err)
	}
	if _, err := s.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
	stop()
}
