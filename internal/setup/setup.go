// Package setup implements the first-boot wizard. A fresh installation has
// no tenants; Initialize bootstraps the root tenant, its super-admin
// account, the default role set, and the login page branding in one pass.
// The wizard runs under a synthetic super-admin context because no user
// exists yet to act as.
package setup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rewardhub/rewardhub/internal/domain"
	"github.com/rewardhub/rewardhub/internal/security"
	"github.com/rewardhub/rewardhub/internal/storage"
	"github.com/rewardhub/rewardhub/internal/tenant"
)

// ErrAlreadyInitialized is returned when Initialize runs against a system
// that already has a tenant.
var ErrAlreadyInitialized = errors.New("system is already initialized")

// Request carries the wizard inputs.
type Request struct {
	TenantName string `json:"tenant_name"`
	TenantSlug string `json:"tenant_slug"`
	AdminEmail string `json:"admin_email"`
	AdminName  string `json:"admin_name"`
	Password   string `json:"password"`
}

// Result reports what the wizard created.
type Result struct {
	TenantID   string   `json:"tenant_id"`
	AdminID    string   `json:"admin_id"`
	RolesAdded []string `json:"roles_added"`
}

// Service runs the first-boot flow.
type Service struct {
	store  storage.Store
	logger *slog.Logger
}

// NewService creates the setup service.
func NewService(store storage.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Initialized reports whether any tenant exists yet.
func (s *Service) Initialized(ctx context.Context) (bool, error) {
	n, err := s.store.Tenants().Count(ctx)
	if err != nil {
		return false, fmt.Errorf("checking initialization: %w", err)
	}
	return n > 0, nil
}

// Initialize bootstraps the system. Idempotence guard: a second call fails
// with ErrAlreadyInitialized instead of creating a parallel root tenant.
func (s *Service) Initialize(ctx context.Context, req Request) (*Result, error) {
	if req.TenantName == "" || req.TenantSlug == "" || req.AdminEmail == "" {
		return nil, errors.New("tenant name, slug, and admin email are required")
	}

	done, err := s.Initialized(ctx)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, ErrAlreadyInitialized
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	err = tenant.RunScoped(ctx, tenant.SystemContext("setup-wizard"), func(ctx context.Context) error {
		tn := &domain.Tenant{
			Name:   req.TenantName,
			Slug:   req.TenantSlug,
			Status: domain.TenantActive,
		}
		if err := s.store.Tenants().Create(ctx, tn); err != nil {
			return fmt.Errorf("creating root tenant: %w", err)
		}
		result.TenantID = tn.ID.String()

		// Subsequent writes target the new tenant explicitly.
		setupCtx := tenant.WithContext(ctx, &tenant.Context{
			UserID:       "setup-wizard",
			TenantID:     &tn.ID,
			IsSuperAdmin: true,
		})

		for name, perms := range security.DefaultRoles() {
			role := &domain.Role{TenantID: tn.ID, Name: name, Permissions: perms}
			if err := s.store.Roles().Create(setupCtx, role); err != nil {
				return fmt.Errorf("creating role %q: %w", name, err)
			}
			result.RolesAdded = append(result.RolesAdded, name)
		}

		admin := &domain.User{
			TenantID:     tn.ID,
			Email:        req.AdminEmail,
			Name:         req.AdminName,
			PasswordHash: hash,
			RoleNames:    []string{"owner"},
			IsSuperAdmin: true,
		}
		if err := s.store.Users().Create(setupCtx, admin); err != nil {
			return fmt.Errorf("creating admin user: %w", err)
		}
		result.AdminID = admin.ID.String()

		page := &domain.LoginPage{
			TenantID:    tn.ID,
			Title:       req.TenantName,
			WelcomeText: "Welcome back. Sign in to manage your rewards program.",
		}
		if err := s.store.LoginPages().Upsert(setupCtx, page); err != nil {
			return fmt.Errorf("creating login page: %w", err)
		}

		seed := &domain.SystemConfig{
			TenantID:    tn.ID,
			Key:         "points_currency_label",
			Value:       "points",
			IsEncrypted: false,
		}
		if err := s.store.SystemConfigs().Set(setupCtx, seed); err != nil {
			return fmt.Errorf("seeding config: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "system initialized",
		slog.String("tenant", req.TenantSlug),
		slog.String("admin", req.AdminEmail),
	)
	return result, nil
}
