package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"gorm.io/gorm"

	"github.com/rewardhub/rewardhub/internal/domain"
	"github.com/rewardhub/rewardhub/internal/fieldcrypt"
	"github.com/rewardhub/rewardhub/internal/security"
	"github.com/rewardhub/rewardhub/internal/storage"
	pgstore "github.com/rewardhub/rewardhub/internal/storage/postgres"
	"github.com/rewardhub/rewardhub/internal/tenant"
)

const (
	testKeyHex   = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	testPassword = "correct-h0rse-battery"
)

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

func seedUser(t *testing.T, s storage.Store) (uuid.UUID, *domain.User) {
	t.Helper()
	superCtx := tenant.WithContext(context.Background(), tenant.SystemContext("test"))
	tn := &domain.Tenant{Name: "Acme", Slug: "acme"}
	if err := s.Tenants().Create(superCtx, tn); err != nil {
		t.Fatalf("creating tenant: %v", err)
	}
	hash, err := security.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	u := &domain.User{
		TenantID:     tn.ID,
		Email:        "alice@acme.test",
		Name:         "Alice",
		PasswordHash: hash,
		RoleNames:    []string{"owner"},
	}
	ctx := tenant.WithContext(context.Background(), &tenant.Context{UserID: "seed", TenantID: &tn.ID})
	if err := s.Users().Create(ctx, u); err != nil {
		t.Fatalf("creating user: %v", err)
	}
	return tn.ID, u
}

func testService(t *testing.T, s storage.Store) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(s, nil, logger, Config{})
}

func TestLogin_Success(t *testing.T) {
	s := testStore(t)
	tenantID, _ := seedUser(t, s)
	svc := testService(t, s)

	res, err := svc.Login(context.Background(), "acme", "alice@acme.test", testPassword, "10.0.0.1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.MFARequired {
		t.Fatal("MFA required for a user without MFA enrolled")
	}
	if res.Token == "" {
		t.Fatal("no token issued")
	}

	tc, session, err := svc.Authenticate(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if tc.TenantID == nil || *tc.TenantID != tenantID {
		t.Fatalf("context tenant = %v, want %s", tc.TenantID, tenantID)
	}
	if session.TenantID != tenantID {
		t.Fatalf("session tenant = %s", session.TenantID)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	s := testStore(t)
	seedUser(t, s)
	svc := testService(t, s)

	_, err := svc.Login(context.Background(), "acme", "alice@acme.test", "wrong-password-1", "10.0.0.1")
	if !errors.Is(err, security.ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
	// Unknown account and unknown tenant answer identically.
	_, err = svc.Login(context.Background(), "acme", "nobody@acme.test", testPassword, "10.0.0.1")
	if !errors.Is(err, security.ErrInvalidCredentials) {
		t.Fatalf("unknown account: got %v, want ErrInvalidCredentials", err)
	}
	_, err = svc.Login(context.Background(), "no-such-tenant", "alice@acme.test", testPassword, "10.0.0.1")
	if !errors.Is(err, security.ErrInvalidCredentials) {
		t.Fatalf("unknown tenant: got %v, want ErrInvalidCredentials", err)
	}
}

func TestLogin_SuspendedTenant(t *testing.T) {
	s := testStore(t)
	tenantID, _ := seedUser(t, s)
	svc := testService(t, s)

	superCtx := tenant.WithContext(context.Background(), tenant.SystemContext("test"))
	tn, err := s.Tenants().Get(superCtx, tenantID)
	if err != nil {
		t.Fatal(err)
	}
	tn.Status = domain.TenantSuspended
	if err := s.Tenants().Update(superCtx, tn); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Login(context.Background(), "acme", "alice@acme.test", testPassword, "10.0.0.1"); !errors.Is(err, ErrTenantSuspended) {
		t.Fatalf("got %v, want ErrTenantSuspended", err)
	}
}

func TestMFA_FullChallengeFlow(t *testing.T) {
	s := testStore(t)
	tenantID, user := seedUser(t, s)
	svc := testService(t, s)
	ctx := tenant.WithContext(context.Background(), &tenant.Context{UserID: "seed", TenantID: &tenantID})

	secret, _, codes, err := svc.EnrollMFA(ctx, user.ID, "RewardHub")
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if len(codes) == 0 {
		t.Fatal("no backup codes issued")
	}
	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		t.Fatalf("generating code: %v", err)
	}
	if err := svc.ConfirmMFA(ctx, user.ID, code); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	res, err := svc.Login(context.Background(), "acme", "alice@acme.test", testPassword, "10.0.0.1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !res.MFARequired {
		t.Fatal("MFA not required after enrollment")
	}

	// The pending session is unusable until the challenge passes.
	if _, _, err := svc.Authenticate(context.Background(), res.Token); !errors.Is(err, ErrMFARequired) {
		t.Fatalf("pre-challenge authenticate: %v, want ErrMFARequired", err)
	}

	if err := svc.VerifyMFA(context.Background(), res.Token, "000000"); !errors.Is(err, security.ErrInvalidTOTPCode) {
		t.Fatalf("bad code accepted: %v", err)
	}
	code, err = totp.GenerateCode(secret, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.VerifyMFA(context.Background(), res.Token, code); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if _, _, err := svc.Authenticate(context.Background(), res.Token); err != nil {
		t.Fatalf("post-challenge authenticate: %v", err)
	}
}

func TestMFA_BackupCodeIsSingleUse(t *testing.T) {
	s := testStore(t)
	tenantID, user := seedUser(t, s)
	svc := testService(t, s)
	ctx := tenant.WithContext(context.Background(), &tenant.Context{UserID: "seed", TenantID: &tenantID})

	secret, _, codes, err := svc.EnrollMFA(ctx, user.ID, "RewardHub")
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	totpCode, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.ConfirmMFA(ctx, user.ID, totpCode); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	login := func() string {
		res, err := svc.Login(context.Background(), "acme", "alice@acme.test", testPassword, "10.0.0.1")
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		return res.Token
	}

	token := login()
	if err := svc.VerifyMFA(context.Background(), token, codes[0]); err != nil {
		t.Fatalf("backup code rejected: %v", err)
	}

	// The same code cannot be replayed on a fresh session.
	token = login()
	if err := svc.VerifyMFA(context.Background(), token, codes[0]); !errors.Is(err, security.ErrInvalidTOTPCode) {
		t.Fatalf("replayed backup code: %v, want ErrInvalidTOTPCode", err)
	}
	// A different code still works.
	if err := svc.VerifyMFA(context.Background(), token, codes[1]); err != nil {
		t.Fatalf("second backup code rejected: %v", err)
	}
}

func TestLogout_InvalidatesToken(t *testing.T) {
	s := testStore(t)
	seedUser(t, s)
	svc := testService(t, s)

	res, err := svc.Login(context.Background(), "acme", "alice@acme.test", testPassword, "10.0.0.1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(context.Background(), res.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, _, err := svc.Authenticate(context.Background(), res.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("post-logout authenticate: %v, want ErrSessionExpired", err)
	}
	// Logging out twice is a no-op.
	if err := svc.Logout(context.Background(), res.Token); err != nil {
		t.Fatalf("double logout: %v", err)
	}
}

func TestPasswordReset_Flow(t *testing.T) {
	s := testStore(t)
	seedUser(t, s)
	svc := testService(t, s)

	if err := svc.RequestPasswordReset(context.Background(), "acme", "alice@acme.test"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	// Grab the issued token directly; no mailer is wired in tests.
	svc.resetMu.Lock()
	if len(svc.resets) != 1 {
		svc.resetMu.Unlock()
		t.Fatalf("have %d pending resets, want 1", len(svc.resets))
	}
	svc.resetMu.Unlock()

	if err := svc.ResetPassword(context.Background(), "bogus-token", "NewPassw0rd-long"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("bogus token: %v, want ErrInvalidResetToken", err)
	}
}

func TestLogin_RateLimited(t *testing.T) {
	s := testStore(t)
	seedUser(t, s)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(s, nil, logger, Config{LoginPerMinute: 1, LoginBurst: 2})

	for i := 0; i < 2; i++ {
		if _, err := svc.Login(context.Background(), "acme", "alice@acme.test", "wrong-password-1", "10.0.0.1"); !errors.Is(err, security.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	_, err := svc.Login(context.Background(), "acme", "alice@acme.test", "wrong-password-1", "10.0.0.1")
	if err == nil || errors.Is(err, security.ErrInvalidCredentials) {
		t.Fatalf("3rd attempt: %v, want rate limit error", err)
	}
}
