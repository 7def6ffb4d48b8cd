package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jkaninda/okapi"

	"github.com/rewardhub/rewardhub/internal/domain"
	"github.com/rewardhub/rewardhub/internal/security"
	"github.com/rewardhub/rewardhub/internal/tenant"
)

// registerTenantRoutes mounts tenant administration: tenant lifecycle,
// users, roles, system config, integrations, login page, and the audit log.
func (g *Gateway) registerTenantRoutes() {
	g.group.Post("/tenants", g.handleTenantCreate,
		okapi.DocSummary("Create a tenant (super admin only)"),
		okapi.DocTags("Tenants"),
		okapi.DocRequestBody(TenantRequest{}),
		okapi.DocResponse(http.StatusCreated, TenantResponse{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
	)
	g.group.Get("/tenants", g.handleTenantList,
		okapi.DocSummary("List tenants visible to the caller"),
		okapi.DocTags("Tenants"),
		okapi.DocResponse([]TenantResponse{}),
	)
	g.group.Get("/tenants/{id}", g.handleTenantGet,
		okapi.DocSummary("Fetch a tenant"),
		okapi.DocTags("Tenants"),
		okapi.DocPathParam("id", "string", "Tenant ID (UUID)"),
		okapi.DocResponse(TenantResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Put("/tenants/{id}", g.handleTenantUpdate,
		okapi.DocSummary("Update a tenant's name or status"),
		okapi.DocTags("Tenants"),
		okapi.DocPathParam("id", "string", "Tenant ID (UUID)"),
		okapi.DocRequestBody(TenantRequest{}),
		okapi.DocResponse(TenantResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)

	g.group.Post("/users", g.handleUserCreate,
		okapi.DocSummary("Create an admin user"),
		okapi.DocTags("Users"),
		okapi.DocRequestBody(UserRequest{}),
		okapi.DocResponse(http.StatusCreated, UserResponse{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
	)
	g.group.Get("/users", g.handleUserList,
		okapi.DocSummary("List admin users"),
		okapi.DocTags("Users"),
		okapi.DocResponse([]UserResponse{}),
	)
	g.group.Put("/users/{id}", g.handleUserUpdate,
		okapi.DocSummary("Update an admin user"),
		okapi.DocTags("Users"),
		okapi.DocPathParam("id", "string", "User ID (UUID)"),
		okapi.DocRequestBody(UserRequest{}),
		okapi.DocResponse(UserResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Delete("/users/{id}", g.handleUserDelete,
		okapi.DocSummary("Delete an admin user"),
		okapi.DocTags("Users"),
		okapi.DocPathParam("id", "string", "User ID (UUID)"),
		okapi.DocResponse(StatusResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)

	g.group.Post("/roles", g.handleRoleCreate,
		okapi.DocSummary("Create a role"),
		okapi.DocTags("Roles"),
		okapi.DocRequestBody(RoleRequest{}),
		okapi.DocResponse(http.StatusCreated, RoleResponse{}),
	)
	g.group.Get("/roles", g.handleRoleList,
		okapi.DocSummary("List roles"),
		okapi.DocTags("Roles"),
		okapi.DocResponse([]RoleResponse{}),
	)
	g.group.Put("/roles/{id}", g.handleRoleUpdate,
		okapi.DocSummary("Update a role's permissions"),
		okapi.DocTags("Roles"),
		okapi.DocPathParam("id", "string", "Role ID (UUID)"),
		okapi.DocRequestBody(RoleRequest{}),
		okapi.DocResponse(RoleResponse{}),
	)
	g.group.Delete("/roles/{id}", g.handleRoleDelete,
		okapi.DocSummary("Delete a role"),
		okapi.DocTags("Roles"),
		okapi.DocPathParam("id", "string", "Role ID (UUID)"),
		okapi.DocResponse(StatusResponse{}),
	)

	g.group.Put("/system-config/{key}", g.handleConfigSet,
		okapi.DocSummary("Set a system configuration value"),
		okapi.DocTags("System Config"),
		okapi.DocPathParam("key", "string", "Configuration key"),
		okapi.DocRequestBody(ConfigRequest{}),
		okapi.DocResponse(ConfigResponse{}),
	)
	g.group.Get("/system-config", g.handleConfigList,
		okapi.DocSummary("List system configuration values"),
		okapi.DocTags("System Config"),
		okapi.DocResponse([]ConfigResponse{}),
	)
	g.group.Delete("/system-config/{key}", g.handleConfigDelete,
		okapi.DocSummary("Delete a system configuration value"),
		okapi.DocTags("System Config"),
		okapi.DocPathParam("key", "string", "Configuration key"),
		okapi.DocResponse(StatusResponse{}),
	)

	g.group.Post("/integrations", g.handleIntegrationCreate,
		okapi.DocSummary("Register an outbound integration"),
		okapi.DocTags("Integrations"),
		okapi.DocRequestBody(IntegrationRequest{}),
		okapi.DocResponse(http.StatusCreated, IntegrationResponse{}),
	)
	g.group.Get("/integrations", g.handleIntegrationList,
		okapi.DocSummary("List integrations (credentials masked)"),
		okapi.DocTags("Integrations"),
		okapi.DocResponse([]IntegrationResponse{}),
	)
	g.group.Put("/integrations/{id}", g.handleIntegrationUpdate,
		okapi.DocSummary("Update an integration"),
		okapi.DocTags("Integrations"),
		okapi.DocPathParam("id", "string", "Integration ID (UUID)"),
		okapi.DocRequestBody(IntegrationRequest{}),
		okapi.DocResponse(IntegrationResponse{}),
	)
	g.group.Delete("/integrations/{id}", g.handleIntegrationDelete,
		okapi.DocSummary("Delete an integration"),
		okapi.DocTags("Integrations"),
		okapi.DocPathParam("id", "string", "Integration ID (UUID)"),
		okapi.DocResponse(StatusResponse{}),
	)

	g.group.Get("/login-page", g.handleLoginPageAdminGet,
		okapi.DocSummary("Fetch the tenant's login page branding"),
		okapi.DocTags("Login Page"),
		okapi.DocResponse(LoginPageResponse{}),
	)
	g.group.Put("/login-page", g.handleLoginPageUpsert,
		okapi.DocSummary("Update the tenant's login page branding"),
		okapi.DocTags("Login Page"),
		okapi.DocRequestBody(LoginPageUpsertRequest{}),
		okapi.DocResponse(LoginPageResponse{}),
	)

	g.group.Get("/audit", g.handleAuditList,
		okapi.DocSummary("List recent audit events, newest first"),
		okapi.DocTags("Audit"),
		okapi.DocResponse([]AuditEventResponse{}),
	)
}

// --- Tenants ---

// TenantRequest creates or updates a tenant.
type TenantRequest struct {
	Name   string `json:"name"`
	Slug   string `json:"slug,omitempty"`
	Status string `json:"status,omitempty"` // "active" or "suspended".
}

// TenantResponse is the tenant wire form.
type TenantResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func toTenantResponse(t *domain.Tenant) TenantResponse {
	return TenantResponse{
		ID:        t.ID.String(),
		Name:      t.Name,
		Slug:      t.Slug,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
}

func (g *Gateway) handleTenantCreate(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)

	var req TenantRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	if req.Name == "" || req.Slug == "" {
		return c.AbortBadRequest("name and slug are required")
	}

	tn := &domain.Tenant{Name: req.Name, Slug: req.Slug, Status: domain.TenantActive}
	if err := g.store.Tenants().Create(ctx, tn); err != nil {
		return g.fail(c, err)
	}
	return c.JSON(http.StatusCreated, toTenantResponse(tn))
}

func (g *Gateway) handleTenantList(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)

	tenants, err := g.store.Tenants().List(ctx)
	if err != nil {
		return g.fail(c, err)
	}
	resp := make([]TenantResponse, len(tenants))
	for i, t := range tenants {
		resp[i] = toTenantResponse(t)
	}
	return c.OK(resp)
}

func (g *Gateway) handleTenantGet(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	tn, err := g.store.Tenants().Get(ctx, id)
	if err != nil {
		return g.fail(c, err)
	}
	return c.OK(toTenantResponse(tn))
}

func (g *Gateway) handleTenantUpdate(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}

	var req TenantRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}

	tn, err := g.store.Tenants().Get(ctx, id)
	if err != nil {
		return g.fail(c, err)
	}
	if req.Name != "" {
		tn.Name = req.Name
	}
	switch req.Status {
	case "":
	case string(domain.TenantActive), string(domain.TenantSuspended):
		tn.Status = domain.TenantStatus(req.Status)
	default:
		return c.AbortBadRequest("status must be active or suspended")
	}
	if err := g.store.Tenants().Update(ctx, tn); err != nil {
		return g.fail(c, err)
	}
	return c.OK(toTenantResponse(tn))
}

// --- Users ---

// UserRequest creates or updates an admin user. Password is required on
// create and optional on update.
type UserRequest struct {
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Password string   `json:"password,omitempty"`
	Roles    []string `json:"roles"`
}

// UserResponse is the user wire form. Credential material never appears.
type UserResponse struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Roles       []string `json:"roles"`
	MFAEnabled  bool     `json:"mfa_enabled"`
	LastLoginAt string   `json:"last_login_at,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

func toUserResponse(u *domain.User) UserResponse {
	resp := UserResponse{
		ID:         u.ID.String(),
		Email:      u.Email,
		Name:       u.Name,
		Roles:      u.RoleNames,
		MFAEnabled: u.MFAEnabled != nil,
		CreatedAt:  u.CreatedAt.Format(time.RFC3339),
	}
	if u.LastLoginAt != nil {
		resp.LastLoginAt = u.LastLoginAt.Format(time.RFC3339)
	}
	return resp
}

func (g *Gateway) handleUserCreate(c *okapi.Context) error {
	ctx, tc := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermUsersWrite); err != nil {
		return err
	}

	var req UserRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return c.AbortBadRequest("email and password are required")
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return g.fail(c, err)
	}

	user := &domain.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		RoleNames:    req.Roles,
	}
	if tc.TenantID != nil {
		user.TenantID = *tc.TenantID
	}
	if err := g.store.Users().Create(ctx, user); err != nil {
		return g.fail(c, err)
	}
	return c.JSON(http.StatusCreated, toUserResponse(user))
}

func (g *Gateway) handleUserList(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermUsersRead); err != nil {
		return err
	}

	users, err := g.store.Users().List(ctx)
	if err != nil {
		return g.fail(c, err)
	}
	resp := make([]UserResponse, len(users))
	for i, u := range users {
		resp[i] = toUserResponse(u)
	}
	return c.OK(resp)
}

func (g *Gateway) handleUserUpdate(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermUsersWrite); err != nil {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}

	var req UserRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}

	user, err := g.store.Users().Get(ctx, id)
	if err != nil {
		return g.fail(c, err)
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Roles != nil {
		user.RoleNames = req.Roles
	}
	if req.Password != "" {
		hash, err := security.HashPassword(req.Password)
		if err != nil {
			return g.fail(c, err)
		}
		user.PasswordHash = hash
	}
	if err := g.store.Users().Update(ctx, user); err != nil {
		return g.fail(c, err)
	}
	return c.OK(toUserResponse(user))
}

func (g *Gateway) handleUserDelete(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermUsersWrite); err != nil {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	if err := g.store.Users().Delete(ctx, id); err != nil {
		return g.fail(c, err)
	}
	return c.OK(StatusResponse{Status: "deleted"})
}

// --- Roles ---

// RoleRequest creates or updates a role.
type RoleRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// RoleResponse is the role wire form.
type RoleResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

func toRoleResponse(r *domain.Role) RoleResponse {
	return RoleResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		Permissions: r.Permissions,
	}
}

func (g *Gateway) handleRoleCreate(c *okapi.Context) error {
	ctx, tc := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermRolesWrite); err != nil {
		return err
	}

	var req RoleRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	if req.Name == "" {
		return c.AbortBadRequest("name is required")
	}

	role := &domain.Role{Name: req.Name, Permissions: req.Permissions}
	if tc.TenantID != nil {
		role.TenantID = *tc.TenantID
	}
	if err := g.store.Roles().Create(ctx, role); err != nil {
		return g.fail(c, err)
	}
	g.invalidateRoles(tc)
	return c.JSON(http.StatusCreated, toRoleResponse(role))
}

func (g *Gateway) handleRoleList(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermUsersRead); err != nil {
		return err
	}

	roles, err := g.store.Roles().List(ctx)
	if err != nil {
		return g.fail(c, err)
	}
	resp := make([]RoleResponse, len(roles))
	for i, r := range roles {
		resp[i] = toRoleResponse(r)
	}
	return c.OK(resp)
}

func (g *Gateway) handleRoleUpdate(c *okapi.Context) error {
	ctx, tc := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermRolesWrite); err != nil {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}

	var req RoleRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}

	roles, err := g.store.Roles().List(ctx)
	if err != nil {
		return g.fail(c, err)
	}
	var role *domain.Role
	for _, r := range roles {
		if r.ID == id {
			role = r
			break
		}
	}
	if role == nil {
		return c.JSON(http.StatusNotFound, ErrorBody{Error: "not found"})
	}
	if req.Name != "" {
		role.Name = req.Name
	}
	if req.Permissions != nil {
		role.Permissions = req.Permissions
	}
	if err := g.store.Roles().Update(ctx, role); err != nil {
		return g.fail(c, err)
	}
	g.invalidateRoles(tc)
	return c.OK(toRoleResponse(role))
}

func (g *Gateway) handleRoleDelete(c *okapi.Context) error {
	ctx, tc := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermRolesWrite); err != nil {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	if err := g.store.Roles().Delete(ctx, id); err != nil {
		return g.fail(c, err)
	}
	g.invalidateRoles(tc)
	return c.OK(StatusResponse{Status: "deleted"})
}

// invalidateRoles drops the RBAC cache so role edits apply immediately.
func (g *Gateway) invalidateRoles(tc *tenant.Context) {
	if g.rbac == nil || tc == nil || tc.TenantID == nil {
		return
	}
	g.rbac.Invalidate(*tc.TenantID)
}

// --- System configuration ---

// ConfigRequest sets a configuration value. Encrypted controls at-rest
// encryption for the value.
type ConfigRequest struct {
	Value     string `json:"value"`
	Encrypted bool   `json:"encrypted"`
}

// ConfigResponse is the configuration wire form.
type ConfigResponse struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	Encrypted bool   `json:"encrypted"`
}

func (g *Gateway) handleConfigSet(c *okapi.Context) error {
	ctx, tc := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermConfigWrite); err != nil {
		return err
	}
	key := c.Param("key")
	if key == "" {
		return c.AbortBadRequest("key is required")
	}

	var req ConfigRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}

	cfg := &domain.SystemConfig{Key: key, Value: req.Value, IsEncrypted: req.Encrypted}
	if tc.TenantID != nil {
		cfg.TenantID = *tc.TenantID
	}
	if err := g.store.SystemConfigs().Set(ctx, cfg); err != nil {
		return g.fail(c, err)
	}
	return c.OK(ConfigResponse{Key: cfg.Key, Value: cfg.Value, Encrypted: cfg.IsEncrypted})
}

func (g *Gateway) handleConfigList(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermConfigWrite); err != nil {
		return err
	}

	configs, err := g.store.SystemConfigs().List(ctx)
	if err != nil {
		return g.fail(c, err)
	}
	resp := make([]ConfigResponse, len(configs))
	for i, cfg := range configs {
		resp[i] = ConfigResponse{Key: cfg.Key, Value: cfg.Value, Encrypted: cfg.IsEncrypted}
	}
	return c.OK(resp)
}

func (g *Gateway) handleConfigDelete(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermConfigWrite); err != nil {
		return err
	}
	key := c.Param("key")
	if key == "" {
		return c.AbortBadRequest("key is required")
	}
	if err := g.store.SystemConfigs().Delete(ctx, key); err != nil {
		return g.fail(c, err)
	}
	return c.OK(StatusResponse{Status: "deleted"})
}

// --- Integrations ---

// IntegrationRequest registers or updates an integration. Credentials are
// write-only: they are accepted here and never echoed back.
type IntegrationRequest struct {
	Name          string `json:"name"`
	Kind          string `json:"kind"` // "webhook" or "partner_api".
	Endpoint      string `json:"endpoint"`
	APIKey        string `json:"api_key,omitempty"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
	Enabled       *bool  `json:"enabled,omitempty"`
}

// IntegrationResponse is the integration wire form with credentials masked.
type IntegrationResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Endpoint  string `json:"endpoint"`
	HasAPIKey bool   `json:"has_api_key"`
	Enabled   bool   `json:"enabled"`
}

func toIntegrationResponse(i *domain.Integration) IntegrationResponse {
	return IntegrationResponse{
		ID:        i.ID.String(),
		Name:      i.Name,
		Kind:      i.Kind,
		Endpoint:  i.Endpoint,
		HasAPIKey: i.APIKey != "",
		Enabled:   i.Enabled,
	}
}

func (g *Gateway) handleIntegrationCreate(c *okapi.Context) error {
	ctx, tc := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermConfigWrite); err != nil {
		return err
	}

	var req IntegrationRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	if req.Name == "" || req.Kind == "" {
		return c.AbortBadRequest("name and kind are required")
	}

	integ := &domain.Integration{
		Name:          req.Name,
		Kind:          req.Kind,
		Endpoint:      req.Endpoint,
		APIKey:        req.APIKey,
		WebhookSecret: req.WebhookSecret,
		Enabled:       req.Enabled == nil || *req.Enabled,
	}
	if tc.TenantID != nil {
		integ.TenantID = *tc.TenantID
	}
	if err := g.store.Integrations().Create(ctx, integ); err != nil {
		return g.fail(c, err)
	}
	return c.JSON(http.StatusCreated, toIntegrationResponse(integ))
}

func (g *Gateway) handleIntegrationList(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermConfigWrite); err != nil {
		return err
	}

	integrations, err := g.store.Integrations().List(ctx)
	if err != nil {
		return g.fail(c, err)
	}
	resp := make([]IntegrationResponse, len(integrations))
	for i, in := range integrations {
		resp[i] = toIntegrationResponse(in)
	}
	return c.OK(resp)
}

func (g *Gateway) handleIntegrationUpdate(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermConfigWrite); err != nil {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}

	var req IntegrationRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}

	integ, err := g.store.Integrations().Get(ctx, id)
	if err != nil {
		return g.fail(c, err)
	}
	if req.Name != "" {
		integ.Name = req.Name
	}
	if req.Endpoint != "" {
		integ.Endpoint = req.Endpoint
	}
	if req.APIKey != "" {
		integ.APIKey = req.APIKey
	}
	if req.WebhookSecret != "" {
		integ.WebhookSecret = req.WebhookSecret
	}
	if req.Enabled != nil {
		integ.Enabled = *req.Enabled
	}
	if err := g.store.Integrations().Update(ctx, integ); err != nil {
		return g.fail(c, err)
	}
	return c.OK(toIntegrationResponse(integ))
}

func (g *Gateway) handleIntegrationDelete(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermConfigWrite); err != nil {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	if err := g.store.Integrations().Delete(ctx, id); err != nil {
		return g.fail(c, err)
	}
	return c.OK(StatusResponse{Status: "deleted"})
}

// --- Login page ---

// LoginPageUpsertRequest replaces the tenant's login page branding.
type LoginPageUpsertRequest struct {
	Title         string `json:"title"`
	WelcomeText   string `json:"welcome_text,omitempty"`
	LogoURL       string `json:"logo_url,omitempty"`
	BackgroundURL string `json:"background_url,omitempty"`
	PrimaryColor  string `json:"primary_color,omitempty"`
	SupportEmail  string `json:"support_email,omitempty"`
}

func (g *Gateway) handleLoginPageAdminGet(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)

	page, err := g.store.LoginPages().Get(ctx)
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

func (g *Gateway) handleLoginPageUpsert(c *okapi.Context) error {
	ctx, tc := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermLoginPageWrite); err != nil {
		return err
	}

	var req LoginPageUpsertRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	if req.Title == "" {
		return c.AbortBadRequest("title is required")
	}

	page := &domain.LoginPage{
		Title:         req.Title,
		WelcomeText:   req.WelcomeText,
		LogoURL:       req.LogoURL,
		BackgroundURL: req.BackgroundURL,
		PrimaryColor:  req.PrimaryColor,
		SupportEmail:  req.SupportEmail,
	}
	if tc.TenantID != nil {
		page.TenantID = *tc.TenantID
	}
	if err := g.store.LoginPages().Upsert(ctx, page); err != nil {
		return g.fail(c, err)
	}

	// The public page is cached by slug; drop it so visitors see the change.
	if g.loginPages != nil && tc.TenantID != nil {
		if tn, err := g.store.Tenants().Get(ctx, *tc.TenantID); err == nil {
			g.loginPages.Invalidate(c.Context(), tn.Slug)
		}
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

// --- Audit ---

// AuditEventResponse is one audit log entry.
type AuditEventResponse struct {
	Timestamp string `json:"timestamp"`
	TenantID  string `json:"tenant_id"`
	UserID    string `json:"user_id"`
	Action    string `json:"action"`
	Model     string `json:"model"`
	RecordID  string `json:"record_id,omitempty"`
	Result    string `json:"result"`
	Error     string `json:"error,omitempty"`
}

func (g *Gateway) handleAuditList(c *okapi.Context) error {
	ctx, _ := g.scopedCtx(c)
	if err := g.requirePermission(ctx, c, security.PermUsersRead); err != nil {
		return err
	}

	limit := 100
	if raw := c.Request().URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	events, err := g.store.Audit().List(ctx, limit)
	if err != nil {
		return g.fail(c, err)
	}
	resp := make([]AuditEventResponse, len(events))
	for i, ev := range events {
		resp[i] = AuditEventResponse{
			Timestamp: ev.Timestamp.Format(time.RFC3339),
			TenantID:  ev.TenantID.String(),
			UserID:    ev.UserID,
			Action:    ev.Action,
			Model:     ev.Model,
			RecordID:  ev.RecordID,
			Result:    ev.Result,
			Error:     ev.Error,
		}
	}
	return c.OK(resp)
}
