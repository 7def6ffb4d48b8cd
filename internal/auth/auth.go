// Package auth implements admin authentication: password login per tenant
// slug, the TOTP/backup-code MFA challenge, bearer sessions, and the
// password reset flow. Only the SHA-256 of a session or reset token is ever
// persisted or compared; raw tokens exist once, in the response that
// issues them.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rewardhub/rewardhub/internal/domain"
	"github.com/rewardhub/rewardhub/internal/ratelimit"
	"github.com/rewardhub/rewardhub/internal/security"
	"github.com/rewardhub/rewardhub/internal/storage"
	"github.com/rewardhub/rewardhub/internal/tenant"
)

var (
	// ErrMFARequired is returned by Authenticate for a session that has not
	// passed its TOTP challenge yet.
	ErrMFARequired = errors.New("mfa challenge required")
	// ErrSessionExpired is returned for expired or unknown session tokens.
	ErrSessionExpired = errors.New("session expired")
	// ErrTenantSuspended rejects logins into a suspended tenant.
	ErrTenantSuspended = errors.New("tenant is suspended")
	// ErrInvalidResetToken rejects unknown or expired password reset tokens.
	ErrInvalidResetToken = errors.New("invalid password reset token")
)

const (
	tokenBytes    = 32
	resetTokenTTL = 30 * time.Minute
)

// Mailer sends transactional mail. Satisfied by notification.SMTPMailer.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Config holds auth service tunables.
type Config struct {
	SessionTTL     time.Duration // Default: 12h.
	LoginPerMinute int           // Login attempts per key per minute. Default: 10.
	LoginBurst     int           // Default: 5.
}

func (c Config) sessionTTL() time.Duration {
	if c.SessionTTL > 0 {
		return c.SessionTTL
	}
	return 12 * time.Hour
}

// Service implements the authentication flows over the storage layer.
type Service struct {
	store   storage.Store
	limiter *ratelimit.Limiter
	mailer  Mailer
	logger  *slog.Logger
	cfg     Config

	// Password reset tokens are short-lived and process-local.
	resetMu sync.Mutex
	resets  map[string]resetEntry // sha256(token) -> entry
}

type resetEntry struct {
	tenantID  uuid.UUID
	userID    uuid.UUID
	expiresAt time.Time
}

// NewService creates the auth service. mailer may be nil; reset mails are
// then skipped (useful in tests and single-admin setups).
func NewService(store storage.Store, mailer Mailer, logger *slog.Logger, cfg Config) *Service {
	perMin := cfg.LoginPerMinute
	if perMin <= 0 {
		perMin = 10
	}
	burst := cfg.LoginBurst
	if burst <= 0 {
		burst = 5
	}
	return &Service{
		store:   store,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: perMin, BurstSize: burst}),
		mailer:  mailer,
		logger:  logger,
		cfg:     cfg,
		resets:  make(map[string]resetEntry),
	}
}

// LoginResult is returned by Login. Token is the raw bearer token, shown
// exactly once. MFARequired means the session is pending its challenge and
// only VerifyMFA will accept it.
type LoginResult struct {
	Token       string
	MFARequired bool
	ExpiresAt   time.Time
	User        *domain.User
}

// Login authenticates email+password within the tenant identified by slug.
// remoteAddr participates in rate limiting alongside the account itself.
func (s *Service) Login(ctx context.Context, slug, email, password, remoteAddr string) (*LoginResult, error) {
	for _, key := range []string{"login:" + email, "login:" + remoteAddr} {
		if err := s.limiter.Allow(key); err != nil {
			return nil, err
		}
	}

	// Tenant resolution by slug runs pre-auth under an anonymous identity;
	// the tenant row is the root entity and carries no tenant predicate.
	anonCtx := tenant.WithContext(ctx, &tenant.Context{UserID: "anonymous"})
	tn, err := s.store.Tenants().GetBySlug(anonCtx, slug)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, security.ErrInvalidCredentials
		}
		return nil, err
	}
	if tn.Status != domain.TenantActive {
		return nil, ErrTenantSuspended
	}

	userCtx := tenant.WithContext(ctx, &tenant.Context{UserID: email, TenantID: &tn.ID})
	user, err := s.store.Users().GetByEmail(userCtx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Equalize timing between unknown accounts and bad passwords.
			security.ComparePasswordDummy(password)
			return nil, security.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := security.ComparePassword(user.PasswordHash, password); err != nil {
		s.audit(ctx, tn.ID, email, "login", "failure", "bad password")
		return nil, err
	}

	token, hash, err := newToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	session := &domain.Session{
		TenantID:  tn.ID,
		UserID:    user.ID,
		TokenHash: hash,
		MFAPassed: user.MFAEnabled == nil,
		ExpiresAt: now.Add(s.cfg.sessionTTL()),
	}
	if err := s.store.Sessions().Create(userCtx, session); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	user.LastLoginAt = &now
	if err := s.store.Users().Update(userCtx, user); err != nil {
		s.logger.WarnContext(ctx, "failed to record last login",
			slog.String("user_id", user.ID.String()), slog.String("error", err.Error()))
	}

	for _, key := range []string{"login:" + email, "login:" + remoteAddr} {
		s.limiter.Reset(key)
	}
	s.audit(ctx, tn.ID, email, "login", "success", "")

	return &LoginResult{
		Token:       token,
		MFARequired: user.MFAEnabled != nil,
		ExpiresAt:   session.ExpiresAt,
		User:        user,
	}, nil
}

// VerifyMFA completes the challenge on a pending session with a TOTP code
// or a single-use backup code. A matched backup code is consumed.
func (s *Service) VerifyMFA(ctx context.Context, token, code string) error {
	session, user, err := s.sessionUser(ctx, token)
	if err != nil {
		return err
	}
	if session.MFAPassed {
		return nil
	}
	if err := s.limiter.Allow("mfa:" + user.Email); err != nil {
		return err
	}

	scoped := s.sessionContext(session, user)
	sctx := tenant.WithContext(ctx, scoped)

	if err := security.VerifyTOTPCode(user.MFASecret, code); err == nil {
		return s.store.Sessions().MarkMFAPassed(sctx, session.ID)
	}

	normalized := security.NormalizeBackupCode(code)
	for i, backup := range user.MFABackupCodes {
		if backup != normalized {
			continue
		}
		user.MFABackupCodes = append(user.MFABackupCodes[:i], user.MFABackupCodes[i+1:]...)
		if err := s.store.Users().Update(sctx, user); err != nil {
			return fmt.Errorf("consuming backup code: %w", err)
		}
		s.audit(ctx, session.TenantID, user.Email, "mfa_backup_code", "success", "")
		return s.store.Sessions().MarkMFAPassed(sctx, session.ID)
	}

	s.audit(ctx, session.TenantID, user.Email, "mfa_verify", "failure", "bad code")
	return security.ErrInvalidTOTPCode
}

// Authenticate resolves a bearer token to the tenant context every scoped
// operation runs under. This is the single entry point the HTTP middleware
// calls before RunScoped.
func (s *Service) Authenticate(ctx context.Context, token string) (*tenant.Context, *domain.Session, error) {
	session, user, err := s.sessionUser(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if !session.MFAPassed {
		return nil, nil, ErrMFARequired
	}
	return s.sessionContext(session, user), session, nil
}

// Logout deletes the session for a token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	session, user, err := s.sessionUser(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return nil
		}
		return err
	}
	sctx := tenant.WithContext(ctx, s.sessionContext(session, user))
	return s.store.Sessions().Delete(sctx, session.ID)
}

// ChangePassword verifies the current password and replaces it.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, replacement string) error {
	user, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := security.ComparePassword(user.PasswordHash, current); err != nil {
		return err
	}
	hash, err := security.HashPassword(replacement)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.store.Users().Update(ctx, user)
}

// EnrollMFA generates a TOTP secret and backup codes for a user. The
// enrollment is pending until ConfirmMFA proves the authenticator works.
func (s *Service) EnrollMFA(ctx context.Context, userID uuid.UUID, issuer string) (secret, otpURL string, backupCodes []string, err error) {
	user, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		return "", "", nil, err
	}
	secret, otpURL, err = security.GenerateTOTPSecret(issuer, user.Email)
	if err != nil {
		return "", "", nil, err
	}
	backupCodes, err = security.GenerateBackupCodes()
	if err != nil {
		return "", "", nil, err
	}
	user.MFASecret = secret
	user.MFABackupCodes = backupCodes
	user.MFAEnabled = nil
	if err := s.store.Users().Update(ctx, user); err != nil {
		return "", "", nil, err
	}
	return secret, otpURL, backupCodes, nil
}

// ConfirmMFA activates a pending enrollment once the user proves a working
// authenticator with a valid code.
func (s *Service) ConfirmMFA(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		return err
	}
	if user.MFASecret == "" {
		return security.ErrInvalidTOTPCode
	}
	if err := security.VerifyTOTPCode(user.MFASecret, code); err != nil {
		return err
	}
	now := time.Now().UTC()
	user.MFAEnabled = &now
	if err := s.store.Users().Update(ctx, user); err != nil {
		return err
	}
	s.notify(ctx, user.Email, "Two-factor authentication enabled",
		"Two-factor authentication was enabled on your account. If this was not you, contact your administrator immediately.")
	return nil
}

// RequestPasswordReset issues a short-lived reset token and mails it.
// Unknown accounts are answered identically to known ones.
func (s *Service) RequestPasswordReset(ctx context.Context, slug, email string) error {
	if err := s.limiter.Allow("reset:" + email); err != nil {
		return err
	}
	anonCtx := tenant.WithContext(ctx, &tenant.Context{UserID: "anonymous"})
	tn, err := s.store.Tenants().GetBySlug(anonCtx, slug)
	if err != nil {
		return nil // no account enumeration
	}
	userCtx := tenant.WithContext(ctx, &tenant.Context{UserID: email, TenantID: &tn.ID})
	user, err := s.store.Users().GetByEmail(userCtx, email)
	if err != nil {
		return nil
	}

	token, hash, err := newToken()
	if err != nil {
		return err
	}
	s.resetMu.Lock()
	s.resets[hash] = resetEntry{tenantID: tn.ID, userID: user.ID, expiresAt: time.Now().Add(resetTokenTTL)}
	s.resetMu.Unlock()

	s.notify(ctx, user.Email, "Password reset",
		fmt.Sprintf("A password reset was requested for your account. Reset token: %s (valid for %s).", token, resetTokenTTL))
	return nil
}

// ResetPassword consumes a reset token and sets the new password.
func (s *Service) ResetPassword(ctx context.Context, token, replacement string) error {
	hash := hashToken(token)
	s.resetMu.Lock()
	entry, ok := s.resets[hash]
	if ok {
		delete(s.resets, hash)
	}
	s.resetMu.Unlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return ErrInvalidResetToken
	}

	newHash, err := security.HashPassword(replacement)
	if err != nil {
		return err
	}
	sctx := tenant.WithContext(ctx, &tenant.Context{
		UserID:   "password-reset",
		TenantID: &entry.tenantID,
	})
	user, err := s.store.Users().Get(sctx, entry.userID)
	if err != nil {
		return err
	}
	user.PasswordHash = newHash
	if err := s.store.Users().Update(sctx, user); err != nil {
		return err
	}
	s.audit(ctx, entry.tenantID, user.Email, "password_reset", "success", "")
	return nil
}

// sessionUser loads the session by token hash and its owning user.
func (s *Service) sessionUser(ctx context.Context, token string) (*domain.Session, *domain.User, error) {
	lookupCtx := tenant.WithContext(ctx, &tenant.Context{UserID: "session-lookup"})
	session, err := s.store.Sessions().GetByTokenHash(lookupCtx, hashToken(token))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrSessionExpired
		}
		return nil, nil, err
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, nil, ErrSessionExpired
	}
	userCtx := tenant.WithContext(ctx, &tenant.Context{
		UserID:   session.UserID.String(),
		TenantID: &session.TenantID,
	})
	user, err := s.store.Users().Get(userCtx, session.UserID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// sessionContext builds the tenant context a verified session acts under.
// Super admins keep their home tenant attached so writes without an explicit
// target still land somewhere sensible; Resolve ignores it for reads.
func (s *Service) sessionContext(session *domain.Session, user *domain.User) *tenant.Context {
	tid := session.TenantID
	return &tenant.Context{
		UserID:       user.Email,
		TenantID:     &tid,
		Roles:        user.RoleNames,
		IsSuperAdmin: user.IsSuperAdmin,
	}
}

func (s *Service) audit(ctx context.Context, tenantID uuid.UUID, actor, action, result, errMsg string) {
	ev := security.AuditEvent{
		Timestamp: time.Now().UTC(),
		TenantID:  tenantID,
		UserID:    actor,
		Action:    action,
		Model:     "session",
		Result:    result,
		Error:     errMsg,
	}
	actx := tenant.WithContext(ctx, &tenant.Context{UserID: actor, TenantID: &tenantID})
	if err := s.store.Audit().Append(actx, ev); err != nil {
		s.logger.WarnContext(ctx, "failed to audit auth event",
			slog.String("action", action), slog.String("error", err.Error()))
	}
}

func (s *Service) notify(ctx context.Context, to, subject, body string) {
	if s.mailer == nil {
		return
	}
	if err := s.mailer.Send(ctx, to, subject, body); err != nil {
		s.logger.WarnContext(ctx, "failed to send notification mail",
			slog.String("to", to), slog.String("error", err.Error()))
	}
}

// newToken returns a fresh random bearer token and its storable hash.
func newToken() (token, hash string, err error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generating token: %w", err)
	}
	token = hex.EncodeToString(buf)
	return token, hashToken(token), nil
}

// hashToken returns the hex SHA-256 of a raw token.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
