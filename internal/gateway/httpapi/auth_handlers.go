package httpapi

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jkaninda/okapi"

	"github.com/rewardhub/rewardhub/internal/setup"
)

// registerPublicRoutes mounts the endpoints that run before any session
// exists: the first-boot wizard, the branded login page, and the login and
// password-reset flows.
func (g *Gateway) registerPublicRoutes() {
	g.okapi.Get("/setup/status", g.handleSetupStatus,
		okapi.DocSummary("Report whether the system has been initialized"),
		okapi.DocTags("Setup"),
		okapi.DocResponse(SetupStatusResponse{}),
	)
	g.okapi.Post("/setup/init", g.handleSetupInit,
		okapi.DocSummary("Run the first-boot wizard: root tenant, roles, super admin"),
		okapi.DocTags("Setup"),
		okapi.DocRequestBody(setup.Request{}),
		okapi.DocResponse(http.StatusCreated, setup.Result{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
		okapi.DocResponse(http.StatusBadRequest, ErrorBody{}),
	)
	g.okapi.Get("/v1/login-page/{slug}", g.handleLoginPageGet,
		okapi.DocSummary("Fetch a tenant's login page branding by slug"),
		okapi.DocTags("Login Page"),
		okapi.DocPathParam("slug", "string", "Tenant slug"),
		okapi.DocResponse(LoginPageResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.okapi.Post("/v1/auth/login", g.handleLogin,
		okapi.DocSummary("Authenticate with email and password"),
		okapi.DocTags("Auth"),
		okapi.DocRequestBody(LoginRequest{}),
		okapi.DocResponse(LoginResponse{}),
		okapi.DocResponse(http.StatusUnauthorized, ErrorBody{}),
		okapi.DocResponse(http.StatusTooManyRequests, ErrorBody{}),
	)
	g.okapi.Post("/v1/auth/mfa/verify", g.handleMFAVerify,
		okapi.DocSummary("Complete the MFA challenge on a pending session"),
		okapi.DocTags("Auth"),
		okapi.DocRequestBody(MFAVerifyRequest{}),
		okapi.DocResponse(StatusResponse{}),
		okapi.DocResponse(http.StatusUnauthorized, ErrorBody{}),
	)
	g.okapi.Post("/v1/auth/logout", g.handleLogout,
		okapi.DocSummary("End the current session"),
		okapi.DocTags("Auth"),
		okapi.DocResponse(StatusResponse{}),
	)
	g.okapi.Post("/v1/auth/password-reset/request", g.handlePasswordResetRequest,
		okapi.DocSummary("Request a password reset link by email"),
		okapi.DocTags("Auth"),
		okapi.DocRequestBody(PasswordResetRequest{}),
		okapi.DocResponse(StatusResponse{}),
	)
	g.okapi.Post("/v1/auth/password-reset/confirm", g.handlePasswordResetConfirm,
		okapi.DocSummary("Set a new password with a reset token"),
		okapi.DocTags("Auth"),
		okapi.DocRequestBody(PasswordResetConfirm{}),
		okapi.DocResponse(StatusResponse{}),
		okapi.DocResponse(http.StatusUnauthorized, ErrorBody{}),
	)
}

// registerAuthRoutes mounts the session-authenticated account endpoints.
func (g *Gateway) registerAuthRoutes() {
	g.group.Post("/auth/password", g.handleChangePassword,
		okapi.DocSummary("Change the current user's password"),
		okapi.DocTags("Auth"),
		okapi.DocRequestBody(ChangePasswordRequest{}),
		okapi.DocResponse(StatusResponse{}),
		okapi.DocResponse(http.StatusUnauthorized, ErrorBody{}),
	)
	g.group.Post("/auth/mfa/enroll", g.handleMFAEnroll,
		okapi.DocSummary("Begin MFA enrollment for the current user"),
		okapi.DocTags("Auth"),
		okapi.DocResponse(MFAEnrollResponse{}),
	)
	g.group.Post("/auth/mfa/confirm", g.handleMFAConfirm,
		okapi.DocSummary("Activate MFA enrollment with a working code"),
		okapi.DocTags("Auth"),
		okapi.DocRequestBody(MFAConfirmRequest{}),
		okapi.DocResponse(StatusResponse{}),
		okapi.DocResponse(http.StatusUnauthorized, ErrorBody{}),
	)
}

// StatusResponse is the generic acknowledgement body.
type StatusResponse struct {
	Status string `json:"status"`
}

// SetupStatusResponse reports first-boot state.
type SetupStatusResponse struct {
	Initialized bool `json:"initialized"`
}

func (g *Gateway) handleSetupStatus(c *okapi.Context) error {
	done, err := g.setup.Initialized(c.Context())
	if err != nil {
		return g.fail(c, err)
	}
	return c.OK(SetupStatusResponse{Initialized: done})
}

func (g *Gateway) handleSetupInit(c *okapi.Context) error {
	var req setup.Request
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}

	result, err := g.setup.Initialize(c.Context(), req)
	if err != nil {
		if errors.Is(err, setup.ErrAlreadyInitialized) {
			return c.JSON(http.StatusConflict, ErrorBody{Error: "already initialized"})
		}
		return g.fail(c, err)
	}

	g.logger.Info("system initialized",
		slog.String("tenant_id", result.TenantID),
		slog.String("admin_id", result.AdminID),
	)
	return c.JSON(http.StatusCreated, result)
}

// LoginPageResponse is the public branding payload for a tenant's sign-in URL.
type LoginPageResponse struct {
	Title         string `json:"title"`
	WelcomeText   string `json:"welcome_text,omitempty"`
	LogoURL       string `json:"logo_url,omitempty"`
	BackgroundURL string `json:"background_url,omitempty"`
	PrimaryColor  string `json:"primary_color,omitempty"`
	SupportEmail  string `json:"support_email,omitempty"`
}

func (g *Gateway) handleLoginPageGet(c *okapi.Context) error {
	slug := c.Param("slug")
	if slug == "" {
		return c.AbortBadRequest("slug is required")
	}

	page, err := g.loginPages.Get(c.Context(), slug)
	if err != nil {
		return g.fail(c, err)
	}
	return c.OK(LoginPageResponse{
		Title:         page.Title,
		WelcomeText:   page.WelcomeText,
		LogoURL:       page.LogoURL,
		BackgroundURL: page.BackgroundURL,
		PrimaryColor:  page.PrimaryColor,
		SupportEmail:  page.SupportEmail,
	})
}

// LoginRequest is the JSON body for POST /v1/auth/login.
type LoginRequest struct {
	TenantSlug string `json:"tenant_slug"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

// LoginResponse returns the bearer token. When MFARequired is true the
// session only accepts /v1/auth/mfa/verify until the challenge completes.
type LoginResponse struct {
	Token       string `json:"token"`
	MFARequired bool   `json:"mfa_required"`
	ExpiresAt   string `json:"expires_at"`
}

func (g *Gateway) handleLogin(c *okapi.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	if req.TenantSlug == "" || req.Email == "" || req.Password == "" {
		return c.AbortBadRequest("tenant_slug, email, and password are required")
	}

	remoteAddr := c.Request().RemoteAddr
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		remoteAddr = host
	}

	result, err := g.auth.Login(c.Context(), req.TenantSlug, req.Email, req.Password, remoteAddr)
	if err != nil {
		g.recordLogin("failure")
		return g.fail(c, err)
	}

	g.recordLogin("success")
	return c.OK(LoginResponse{
		Token:       result.Token,
		MFARequired: result.MFARequired,
		ExpiresAt:   result.ExpiresAt.Format(time.RFC3339),
	})
}

func (g *Gateway) recordLogin(result string) {
	if g.config.Metrics != nil {
		g.config.Metrics.LoginsTotal.WithLabelValues(result).Inc()
	}
}

// MFAVerifyRequest carries the TOTP or backup code for a pending session.
type MFAVerifyRequest struct {
	Code string `json:"code"`
}

func (g *Gateway) handleMFAVerify(c *okapi.Context) error {
	token := bearerToken(c)
	if token == "" {
		return c.AbortUnauthorized("missing or invalid Authorization header")
	}

	var req MFAVerifyRequest
	if err := c.Bind(&req); err != nil || req.Code == "" {
		return c.AbortBadRequest("code is required")
	}

	if err := g.auth.VerifyMFA(c.Context(), token, req.Code); err != nil {
		if g.config.Metrics != nil {
			g.config.Metrics.MFAChallengesTotal.WithLabelValues("failure").Inc()
		}
		return g.fail(c, err)
	}
	if g.config.Metrics != nil {
		g.config.Metrics.MFAChallengesTotal.WithLabelValues("success").Inc()
	}
	return c.OK(StatusResponse{Status: "ok"})
}

func (g *Gateway) handleLogout(c *okapi.Context) error {
	token := bearerToken(c)
	if token == "" {
		return c.AbortUnauthorized("missing or invalid Authorization header")
	}
	if err := g.auth.Logout(c.Context(), token); err != nil {
		return g.fail(c, err)
	}
	return c.OK(StatusResponse{Status: "logged out"})
}

// PasswordResetRequest asks for a reset link. The response is identical for
// known and unknown accounts.
type PasswordResetRequest struct {
	TenantSlug string `json:"tenant_slug"`
	Email      string `json:"email"`
}

func (g *Gateway) handlePasswordResetRequest(c *okapi.Context) error {
	var req PasswordResetRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	if req.TenantSlug == "" || req.Email == "" {
		return c.AbortBadRequest("tenant_slug and email are required")
	}

	if err := g.auth.RequestPasswordReset(c.Context(), req.TenantSlug, req.Email); err != nil {
		return g.fail(c, err)
	}
	return c.OK(StatusResponse{Status: "if the account exists, a reset link has been sent"})
}

// PasswordResetConfirm consumes a reset token and sets a new password.
type PasswordResetConfirm struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (g *Gateway) handlePasswordResetConfirm(c *okapi.Context) error {
	var req PasswordResetConfirm
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	if req.Token == "" || req.Password == "" {
		return c.AbortBadRequest("token and password are required")
	}

	if err := g.auth.ResetPassword(c.Context(), req.Token, req.Password); err != nil {
		return g.fail(c, err)
	}
	return c.OK(StatusResponse{Status: "password updated"})
}

// ChangePasswordRequest is the authenticated password change body.
type ChangePasswordRequest struct {
	Current string `json:"current"`
	New     string `json:"new"`
}

func (g *Gateway) handleChangePassword(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	accountID, err := uuid.Parse(c.GetString("accountID"))
	if err != nil {
		return c.AbortUnauthorized("invalid session")
	}

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	if req.Current == "" || req.New == "" {
		return c.AbortBadRequest("current and new are required")
	}

	if err := g.auth.ChangePassword(ctx, accountID, req.Current, req.New); err != nil {
		return g.fail(c, err)
	}
	return c.OK(StatusResponse{Status: "password changed"})
}

// MFAEnrollResponse returns the enrollment material. The secret and backup
// codes are shown exactly once.
type MFAEnrollResponse struct {
	Secret      string   `json:"secret"`
	OTPAuthURL  string   `json:"otpauth_url"`
	BackupCodes []string `json:"backup_codes"`
}

func (g *Gateway) handleMFAEnroll(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	accountID, err := uuid.Parse(c.GetString("accountID"))
	if err != nil {
		return c.AbortUnauthorized("invalid session")
	}

	secret, otpURL, backupCodes, err := g.auth.EnrollMFA(ctx, accountID, g.config.MFAIssuer)
	if err != nil {
		return g.fail(c, err)
	}
	return c.OK(MFAEnrollResponse{
		Secret:      secret,
		OTPAuthURL:  otpURL,
		BackupCodes: backupCodes,
	})
}

// MFAConfirmRequest activates a pending enrollment.
type MFAConfirmRequest struct {
	Code string `json:"code"`
}

func (g *Gateway) handleMFAConfirm(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	accountID, err := uuid.Parse(c.GetString("accountID"))
	if err != nil {
		return c.AbortUnauthorized("invalid session")
	}

	var req MFAConfirmRequest
	if err := c.Bind(&req); err != nil || req.Code == "" {
		return c.AbortBadRequest("code is required")
	}

	if err := g.auth.ConfirmMFA(ctx, accountID, req.Code); err != nil {
		return g.fail(c, err)
	}
	return c.OK(StatusResponse{Status: "mfa enabled"})
}
