package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rewardhub/rewardhub/internal/domain"
	"github.com/rewardhub/rewardhub/internal/security"
)

// RoleRepository implements storage.RoleStore and, through Permissions,
// security.RoleSource for the RBAC cache.
type RoleRepository struct {
	db      *gorm.DB
	auditor security.Auditor
}

// NewRoleRepository creates a RoleRepository.
func NewRoleRepository(db *gorm.DB, auditor security.Auditor) *RoleRepository {
	return &RoleRepository{db: db, auditor: auditor}
}

// Permissions returns the role name to permission list mapping for the
// caller's tenant.
func (r *RoleRepository) Permissions(ctx context.Context) (map[string][]string, error) {
	var models []RoleModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Find(&models).Error
	if err != nil {
		return nil, wrapOp("loading role permissions", err)
	}
	perms := make(map[string][]string, len(models))
	for i := range models {
		perms[models[i].Name] = fromJSONStrings(models[i].Permissions)
	}
	return perms, nil
}

func (r *RoleRepository) Create(ctx context.Context, role *domain.Role) error {
	tid, err := writeTenant(ctx, role.TenantID)
	if err != nil {
		return err
	}
	role.TenantID = tid
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	model := toRoleModel(role)
	err = wrapOp("creating role", r.db.WithContext(ctx).Create(&model).Error)
	recordAudit(ctx, r.auditor, "create", "role", role.ID, err)
	return err
}

func (r *RoleRepository) List(ctx context.Context) ([]*domain.Role, error) {
	var models []RoleModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Order("name ASC").
		Find(&models).Error
	if err != nil {
		return nil, wrapOp("listing roles", err)
	}
	out := make([]*domain.Role, len(models))
	for i := range models {
		out[i] = toRoleDomain(&models[i])
	}
	return out, nil
}

func (r *RoleRepository) Update(ctx context.Context, role *domain.Role) error {
	err := wrapOp("updating role", r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Model(&RoleModel{}).
		Where("id = ?", role.ID).
		Updates(map[string]any{
			"name":        role.Name,
			"permissions": toJSONStrings(role.Permissions),
			"updated_at":  time.Now().UTC(),
		}).Error)
	recordAudit(ctx, r.auditor, "update", "role", role.ID, err)
	return err
}

func (r *RoleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := wrapOp("deleting role", r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Delete(&RoleModel{}, "id = ?", id).Error)
	recordAudit(ctx, r.auditor, "delete", "role", id, err)
	return err
}
