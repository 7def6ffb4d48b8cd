// Package httpapi implements the HTTP gateway for RewardHub.
//
// Security:
//   - Session bearer token authentication on every /v1 admin request
//   - Every authenticated request runs under a tenant scope built from the
//     session; handlers never assemble tenant filters themselves
//   - Request body size limits (default 1 MB)
//   - Login endpoints rate limited inside the auth service
//   - TLS expected via reverse proxy (not handled here)
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jkaninda/okapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/rewardhub/rewardhub/internal/auth"
	"github.com/rewardhub/rewardhub/internal/cache"
	"github.com/rewardhub/rewardhub/internal/dashboard"
	"github.com/rewardhub/rewardhub/internal/observability"
	"github.com/rewardhub/rewardhub/internal/ratelimit"
	"github.com/rewardhub/rewardhub/internal/rewards"
	"github.com/rewardhub/rewardhub/internal/security"
	"github.com/rewardhub/rewardhub/internal/setup"
	"github.com/rewardhub/rewardhub/internal/storage"
	"github.com/rewardhub/rewardhub/internal/tenant"
)

const defaultMaxRequestSize = 1 << 20 // 1 MB

// ErrorBody is the standard error response used in OpenAPI documentation.
type ErrorBody struct {
	Error string `json:"error"`
}

// Config configures the HTTP gateway.
type Config struct {
	ListenAddr     string // e.g. ":8080"
	EnableDocs     bool
	MaxRequestSize int64  // Maximum request body in bytes. 0 = 1 MB default.
	MFAIssuer      string // Issuer shown in authenticator apps.

	// Observability.
	MetricsRegistry *prometheus.Registry
	MetricsPath     string // Default: "/metrics".
	HealthChecker   *observability.HealthChecker
	Metrics         *observability.MetricsCollector
	Tracer          trace.Tracer
}

// Gateway is the HTTP gateway.
type Gateway struct {
	config     Config
	store      storage.Store
	auth       *auth.Service
	setup      *setup.Service
	rewards    *rewards.Service
	dash       *dashboard.Service
	loginPages *cache.LoginPages
	rbac       *security.RBAC
	logger     *slog.Logger
	server     *http.Server
	okapi      *okapi.Okapi
	group      *okapi.Group

	// Extra handlers mounted on the HTTP mux (e.g. the WebSocket stream).
	extraRoutes []extraRoute
}

// extraRoute stores an additional handler to be mounted on the HTTP mux.
type extraRoute struct {
	pattern string
	handler http.Handler
}

// NewGateway creates the HTTP gateway.
func NewGateway(
	cfg Config,
	store storage.Store,
	authSvc *auth.Service,
	setupSvc *setup.Service,
	rewardsSvc *rewards.Service,
	dash *dashboard.Service,
	loginPages *cache.LoginPages,
	rbac *security.RBAC,
	logger *slog.Logger,
) *Gateway {
	if cfg.MaxRequestSize <= 0 {
		cfg.MaxRequestSize = defaultMaxRequestSize
	}
	return &Gateway{
		config:     cfg,
		store:      store,
		auth:       authSvc,
		setup:      setupSvc,
		rewards:    rewardsSvc,
		dash:       dash,
		loginPages: loginPages,
		rbac:       rbac,
		logger:     logger,
		okapi:      okapi.New(okapi.WithMaxMultipartMemory(cfg.MaxRequestSize)),
	}
}

// WithHandler mounts an additional handler on the HTTP mux at the given
// pattern. Used for the WebSocket dashboard stream.
func (g *Gateway) WithHandler(pattern string, handler http.Handler) *Gateway {
	g.extraRoutes = append(g.extraRoutes, extraRoute{pattern: pattern, handler: handler})
	return g
}

// WithOpenAPIDocs enables the interactive API documentation.
func (g *Gateway) WithOpenAPIDocs() *Gateway {
	g.okapi.WithOpenAPIDocs(
		okapi.OpenAPI{
			Title:   "RewardHub",
			Version: "v1",
		},
	)
	return g
}

// Start launches the HTTP server and blocks until it exits or ctx is canceled.
func (g *Gateway) Start(ctx context.Context) error {
	if g.config.Metrics != nil || g.config.Tracer != nil {
		g.okapi.UseMiddleware(func(next http.Handler) http.Handler {
			return observability.HTTPMetricsMiddleware(g.config.Metrics, g.config.Tracer, next)
		})
	}

	g.registerPublicRoutes()

	// Authenticated /v1 group.
	g.group = g.okapi.Group("/v1", g.authenticate)
	g.registerAuthRoutes()
	g.registerTenantRoutes()
	g.registerCatalogRoutes()
	g.registerRewardsRoutes()

	// Extra handlers (WebSocket stream).
	for _, er := range g.extraRoutes {
		g.okapi.HandleStd("GET", er.pattern, er.handler.ServeHTTP)
	}

	// Observability endpoints (unauthenticated).
	g.okapi.Get("/healthz", g.handleLiveness)
	g.okapi.Get("/readyz", g.handleReadiness)

	if g.config.MetricsRegistry != nil {
		path := g.config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		g.okapi.HandleStd("GET", path, promhttp.HandlerFor(g.config.MetricsRegistry, promhttp.HandlerOpts{}).ServeHTTP)
	}
	if g.config.EnableDocs {
		g.WithOpenAPIDocs()
	}

	g.server = &http.Server{
		Addr:              g.config.ListenAddr,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	g.logger.Info("http gateway starting", slog.String("addr", g.config.ListenAddr))
	return g.okapi.StartServer(g.server)
}

// Stop gracefully shuts down the HTTP server.
func (g *Gateway) Stop(_ context.Context) error {
	if g.server == nil {
		return nil
	}
	g.logger.Info("http gateway stopping")
	return g.okapi.Shutdown(g.server)
}

// --- Authentication ---

// bearerToken extracts the bearer token from the Authorization header.
func bearerToken(c *okapi.Context) string {
	header := c.Header("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// authenticate resolves the session token to a tenant context. Handlers in
// the /v1 group read it back with scopedCtx; the storage layer applies the
// tenant filter from there.
func (g *Gateway) authenticate(next okapi.HandlerFunc) okapi.HandlerFunc {
	return func(c *okapi.Context) error {
		token := bearerToken(c)
		if token == "" {
			return c.AbortUnauthorized("missing or invalid Authorization header")
		}

		tc, session, err := g.auth.Authenticate(c.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrMFARequired):
				return c.JSON(http.StatusUnauthorized, ErrorBody{Error: "mfa challenge pending"})
			case errors.Is(err, auth.ErrSessionExpired), errors.Is(err, storage.ErrNotFound):
				return c.AbortUnauthorized("session expired or unknown")
			default:
				g.logger.Error("session authentication failed", slog.String("error", err.Error()))
				return c.AbortInternalServerError("authentication failed")
			}
		}

		c.Set("userID", tc.UserID)
		if tc.TenantID != nil {
			c.Set("tenantID", tc.TenantID.String())
		}
		c.Set("roles", strings.Join(tc.Roles, ","))
		c.Set("superAdmin", strconv.FormatBool(tc.IsSuperAdmin))
		c.Set("sessionID", session.ID.String())
		c.Set("accountID", session.UserID.String())
		c.Set("sessionToken", token)
		return next(c)
	}
}

// scopedCtx rebuilds the tenant context set by authenticate and attaches it
// to the request context. Only valid inside the /v1 group.
func (g *Gateway) scopedCtx(c *okapi.Context) (context.Context, *tenant.Context) {
	tc := &tenant.Context{UserID: c.GetString("userID")}
	if raw := c.GetString("tenantID"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			tc.TenantID = &id
		}
	}
	if raw := c.GetString("roles"); raw != "" {
		tc.Roles = strings.Split(raw, ",")
	}
	tc.IsSuperAdmin = c.GetString("superAdmin") == "true"
	return tenant.WithContext(c.Context(), tc), tc
}

// requirePermission enforces an RBAC permission for the current context.
func (g *Gateway) requirePermission(ctx context.Context, c *okapi.Context, perm string) error {
	if g.rbac == nil {
		return nil
	}
	if err := g.rbac.CheckPermission(ctx, perm); err != nil {
		if errors.Is(err, security.ErrPermissionDenied) {
			return c.JSON(http.StatusForbidden, ErrorBody{Error: "permission denied"})
		}
		return g.fail(c, err)
	}
	return nil
}

// --- Error mapping ---

// fail maps service errors to HTTP responses. Sentinels map to their status
// codes; everything else is a 500 with the detail kept in the log.
func (g *Gateway) fail(c *okapi.Context, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorBody{Error: "not found"})
	case errors.Is(err, storage.ErrDuplicate):
		return c.JSON(http.StatusConflict, ErrorBody{Error: "already exists"})
	case errors.Is(err, storage.ErrInsufficientPoints):
		return c.JSON(http.StatusUnprocessableEntity, ErrorBody{Error: "insufficient points balance"})
	case errors.Is(err, storage.ErrOutOfStock):
		return c.JSON(http.StatusConflict, ErrorBody{Error: "voucher out of stock"})
	case errors.Is(err, security.ErrPermissionDenied):
		return c.JSON(http.StatusForbidden, ErrorBody{Error: "permission denied"})
	case errors.Is(err, security.ErrInvalidCredentials),
		errors.Is(err, security.ErrInvalidTOTPCode),
		errors.Is(err, auth.ErrSessionExpired),
		errors.Is(err, auth.ErrInvalidResetToken):
		return c.AbortUnauthorized(err.Error())
	case errors.Is(err, security.ErrWeakPassword),
		errors.Is(err, rewards.ErrInvalidAmount),
		errors.Is(err, rewards.ErrCampaignNotActive),
		errors.Is(err, rewards.ErrVoucherNotActive):
		return c.JSON(http.StatusUnprocessableEntity, ErrorBody{Error: err.Error()})
	case errors.Is(err, ratelimit.ErrRateLimited):
		return c.AbortTooManyRequests("rate limit exceeded")
	case errors.Is(err, auth.ErrTenantSuspended):
		return c.JSON(http.StatusForbidden, ErrorBody{Error: "tenant suspended"})
	case errors.Is(err, tenant.ErrTenantRequired), errors.Is(err, tenant.ErrContextMissing):
		return c.JSON(http.StatusForbidden, ErrorBody{Error: "tenant scope required"})
	default:
		g.logger.Error("request failed", slog.String("error", err.Error()))
		return c.AbortInternalServerError("internal error")
	}
}

// parseID parses a UUID path parameter, answering 400 on garbage.
func parseID(c *okapi.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		_ = c.AbortBadRequest("invalid " + name)
		return uuid.Nil, false
	}
	return id, true
}

// --- Health ---

// HealthResponse is the JSON response for liveness and readiness.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleLiveness is the Kubernetes liveness probe.
func (g *Gateway) handleLiveness(c *okapi.Context) error {
	return c.OK(&HealthResponse{Status: "ok"})
}

// handleReadiness checks all registered dependencies and returns 200 or 503.
func (g *Gateway) handleReadiness(c *okapi.Context) error {
	if g.config.HealthChecker == nil {
		return c.OK(&HealthResponse{Status: "ok"})
	}

	status := g.config.HealthChecker.CheckReady(c.Context())
	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}
