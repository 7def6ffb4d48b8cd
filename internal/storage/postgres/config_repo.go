package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rewardhub/rewardhub/internal/domain"
	"github.com/rewardhub/rewardhub/internal/fieldcrypt"
	"github.com/rewardhub/rewardhub/internal/security"
	"github.com/rewardhub/rewardhub/internal/storage"
)

// SystemConfigRepository implements storage.SystemConfigStore. Values marked
// IsEncrypted are sealed before persistence; operators can opt out for
// non-sensitive settings.
type SystemConfigRepository struct {
	db      *gorm.DB
	codec   *fieldcrypt.Codec
	auditor security.Auditor
}

// NewSystemConfigRepository creates a SystemConfigRepository.
func NewSystemConfigRepository(db *gorm.DB, codec *fieldcrypt.Codec, auditor security.Auditor) *SystemConfigRepository {
	return &SystemConfigRepository{db: db, codec: codec, auditor: auditor}
}

func (r *SystemConfigRepository) openConfig(m *SystemConfigModel) *domain.SystemConfig {
	c := toSystemConfigDomain(m)
	if c.IsEncrypted && c.Value != "" {
		c.Value, _ = r.codec.DecryptLenient(c.Value)
	}
	return c
}

// Set creates or replaces the value for a key within the caller's tenant.
func (r *SystemConfigRepository) Set(ctx context.Context, c *domain.SystemConfig) error {
	tid, err := writeTenant(ctx, c.TenantID)
	if err != nil {
		return err
	}
	c.TenantID = tid

	value := c.Value
	if c.IsEncrypted {
		value, err = r.codec.Encrypt(c.Value)
		if err != nil {
			return fmt.Errorf("encrypting config %q: %w", c.Key, err)
		}
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Look up by the resolved write tenant, not TenantScope: for a super
		// admin the scope is a passthrough and would match another tenant's key.
		var existing SystemConfigModel
		findErr := tx.Where("tenant_id = ?", tid).First(&existing, "key = ?", c.Key).Error
		switch {
		case findErr == nil:
			c.ID = existing.ID
			return tx.Model(&existing).Updates(map[string]any{
				"value":        value,
				"is_encrypted": c.IsEncrypted,
				"updated_at":   time.Now().UTC(),
			}).Error
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			if c.ID == uuid.Nil {
				c.ID = uuid.New()
			}
			model := toSystemConfigModel(c)
			model.Value = value
			return tx.Create(&model).Error
		default:
			return findErr
		}
	})
	err = wrapOp("setting config", err)
	recordAudit(ctx, r.auditor, "set", "system_config", c.ID, err)
	return err
}

func (r *SystemConfigRepository) Get(ctx context.Context, key string) (*domain.SystemConfig, error) {
	var model SystemConfigModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		First(&model, "key = ?", key).Error
	if err != nil {
		return nil, wrapOp("getting config", err)
	}
	return r.openConfig(&model), nil
}

func (r *SystemConfigRepository) List(ctx context.Context) ([]*domain.SystemConfig, error) {
	var models []SystemConfigModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Order("key ASC").
		Find(&models).Error
	if err != nil {
		return nil, wrapOp("listing configs", err)
	}
	out := make([]*domain.SystemConfig, len(models))
	for i := range models {
		out[i] = r.openConfig(&models[i])
	}
	return out, nil
}

func (r *SystemConfigRepository) Delete(ctx context.Context, key string) error {
	result := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Delete(&SystemConfigModel{}, "key = ?", key)
	err := wrapOp("deleting config", result.Error)
	if err == nil && result.RowsAffected == 0 {
		err = storage.ErrNotFound
	}
	recordAudit(ctx, r.auditor, "delete", "system_config", uuid.Nil, err)
	return err
}
