package dashboard

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
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

func seedTenant(t *testing.T, store storage.Store, name string) context.Context {
	t.Helper()
	super := tenant.WithContext(context.Background(), &tenant.Context{UserID: "root", IsSuperAdmin: true})
	tn := &domain.Tenant{Name: name, Slug: name, Status: domain.TenantActive}
	if err := store.Tenants().Create(super, tn); err != nil {
		t.Fatalf("creating tenant: %v", err)
	}
	return tenant.WithContext(context.Background(), &tenant.Context{UserID: "admin", TenantID: &tn.ID})
}

func seedActivity(t *testing.T, store storage.Store, ctx context.Context, users, receipts int) {
	t.Helper()
	id, _, err := tenant.Resolve(ctx)
	if err != nil {
		t.Fatalf("resolving tenant: %v", err)
	}
	for i := 0; i < users; i++ {
		u := &domain.User{
			TenantID:     id,
			Email:        fmt.Sprintf("user%d@example.com", i),
			Name:         fmt.Sprintf("User %d", i),
			PasswordHash: "x",
		}
		if err := store.Users().Create(ctx, u); err != nil {
			t.Fatalf("creating user: %v", err)
		}
	}
	c := &domain.Campaign{
		TenantID:      id,
		Name:          "summer",
		PointsPerUnit: 1,
		StartsAt:      time.Now().Add(-time.Hour),
		EndsAt:        time.Now().Add(time.Hour),
		Status:        domain.CampaignActive,
	}
	if err := store.Campaigns().Create(ctx, c); err != nil {
		t.Fatalf("creating campaign: %v", err)
	}
	for i := 0; i < receipts; i++ {
		r := &domain.Receipt{
			TenantID:      id,
			MemberID:      "member-1",
			CampaignID:    c.ID,
			AmountCents:   1000,
			PointsAwarded: 10,
			SubmittedAt:   time.Now(),
		}
		if err := store.Receipts().Create(ctx, r); err != nil {
			t.Fatalf("creating receipt: %v", err)
		}
	}
}

func TestStatsCountsTenantActivity(t *testing.T) {
	store := testStore(t)
	ctx := seedTenant(t, store, "acme")
	seedActivity(t, store, ctx, 3, 2)

	stats, err := NewService(store).Stats(ctx)
	if err != nil {
		t.Fatalf("collecting stats: %v", err)
	}
	if stats.Users != 3 {
		t.Fatalf("users = %d, want 3", stats.Users)
	}
	if stats.ActiveCampaigns != 1 {
		t.Fatalf("active campaigns = %d, want 1", stats.ActiveCampaigns)
	}
	if stats.Receipts != 2 {
		t.Fatalf("receipts = %d, want 2", stats.Receipts)
	}
	if stats.PointsIssued != 20 {
		t.Fatalf("points issued = %d, want 20", stats.PointsIssued)
	}
	if stats.Redemptions != 0 || stats.PointsRedeemed != 0 {
		t.Fatalf("expected zero redemptions, got %d/%d", stats.Redemptions, stats.PointsRedeemed)
	}
}

func TestStatsAreTenantScoped(t *testing.T) {
	store := testStore(t)
	ctxA := seedTenant(t, store, "acme")
	ctxB := seedTenant(t, store, "globex")
	seedActivity(t, store, ctxA, 4, 3)
	seedActivity(t, store, ctxB, 1, 1)

	svc := NewService(store)
	statsB, err := svc.Stats(ctxB)
	if err != nil {
		t.Fatalf("collecting stats: %v", err)
	}
	if statsB.Users != 1 || statsB.Receipts != 1 {
		t.Fatalf("tenant B sees %d users / %d receipts, want 1/1", statsB.Users, statsB.Receipts)
	}

	super := tenant.WithContext(context.Background(), &tenant.Context{UserID: "root", IsSuperAdmin: true})
	total, err := svc.Stats(super)
	if err != nil {
		t.Fatalf("collecting super-admin stats: %v", err)
	}
	if total.Users != 5 || total.Receipts != 4 {
		t.Fatalf("super admin sees %d users / %d receipts, want 5/4", total.Users, total.Receipts)
	}
}

func TestStatsFailClosedWithoutContext(t *testing.T) {
	store := testStore(t)
	if _, err := NewService(store).Stats(context.Background()); err == nil {
		t.Fatal("expected an error for a context without tenant scope")
	}
}
