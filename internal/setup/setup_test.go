package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rewardhub/rewardhub/internal/fieldcrypt"
	"github.com/rewardhub/rewardhub/internal/security"
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
	s := pgstore.NewStoreWithDB(db, codec, logger, storage.DriverSQLite)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInitialize_Bootstrap(t *testing.T) {
	s := testStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(s, logger)

	done, err := svc.Initialized(context.Background())
	if err != nil {
		t.Fatalf("initialized check: %v", err)
	}
	if done {
		t.Fatal("fresh store reports initialized")
	}

	res, err := svc.Initialize(context.Background(), Request{
		TenantName: "Acme Rewards",
		TenantSlug: "acme",
		AdminEmail: "admin@acme.test",
		AdminName:  "Admin",
		Password:   "Bootstrap-Passw0rd",
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if len(res.RolesAdded) != len(security.DefaultRoles()) {
		t.Fatalf("roles added = %v", res.RolesAdded)
	}

	done, err = svc.Initialized(context.Background())
	if err != nil || !done {
		t.Fatalf("initialized = %v, %v", done, err)
	}

	// The admin exists with super-admin rights and the login page is seeded.
	tid := uuid.MustParse(res.TenantID)
	ctx := tenant.WithContext(context.Background(), &tenant.Context{UserID: "test", TenantID: &tid})
	admin, err := s.Users().GetByEmail(ctx, "admin@acme.test")
	if err != nil {
		t.Fatalf("getting admin: %v", err)
	}
	if !admin.IsSuperAdmin {
		t.Fatal("bootstrap admin is not a super admin")
	}
	if err := security.ComparePassword(admin.PasswordHash, "Bootstrap-Passw0rd"); err != nil {
		t.Fatalf("admin password: %v", err)
	}
	if _, err := s.LoginPages().Get(ctx); err != nil {
		t.Fatalf("login page missing: %v", err)
	}
}

func TestInitialize_SecondRunRejected(t *testing.T) {
	s := testStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(s, logger)

	req := Request{
		TenantName: "Acme",
		TenantSlug: "acme",
		AdminEmail: "admin@acme.test",
		Password:   "Bootstrap-Passw0rd",
	}
	if _, err := svc.Initialize(context.Background(), req); err != nil {
		t.Fatalf("first initialize: %v", err)
	}
	if _, err := svc.Initialize(context.Background(), req); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second initialize: %v, want ErrAlreadyInitialized", err)
	}
}

func TestInitialize_WeakPasswordRejected(t *testing.T) {
	s := testStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(s, logger)

	_, err := svc.Initialize(context.Background(), Request{
		TenantName: "Acme",
		TenantSlug: "acme",
		AdminEmail: "admin@acme.test",
		Password:   "short1",
	})
	if !errors.Is(err, security.ErrWeakPassword) {
		t.Fatalf("got %v, want ErrWeakPassword", err)
	}
	// Nothing was created.
	done, err := svc.Initialized(context.Background())
	if err != nil || done {
		t.Fatalf("initialized = %v, %v after failed bootstrap", done, err)
	}
}
