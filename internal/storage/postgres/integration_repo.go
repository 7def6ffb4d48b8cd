package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rewardhub/rewardhub/internal/domain"
	"github.com/rewardhub/rewardhub/internal/fieldcrypt"
	"github.com/rewardhub/rewardhub/internal/security"
)

// IntegrationRepository implements storage.IntegrationStore. API keys and
// webhook secrets are always encrypted at rest; there is no opt-out.
type IntegrationRepository struct {
	db      *gorm.DB
	codec   *fieldcrypt.Codec
	auditor security.Auditor
}

// NewIntegrationRepository creates an IntegrationRepository.
func NewIntegrationRepository(db *gorm.DB, codec *fieldcrypt.Codec, auditor security.Auditor) *IntegrationRepository {
	return &IntegrationRepository{db: db, codec: codec, auditor: auditor}
}

func (r *IntegrationRepository) sealIntegration(i *domain.Integration) (IntegrationModel, error) {
	model := toIntegrationModel(i)
	apiKey, err := r.codec.Encrypt(i.APIKey)
	if err != nil {
		return IntegrationModel{}, fmt.Errorf("encrypting api key: %w", err)
	}
	secret, err := r.codec.Encrypt(i.WebhookSecret)
	if err != nil {
		return IntegrationModel{}, fmt.Errorf("encrypting webhook secret: %w", err)
	}
	model.APIKey = apiKey
	model.WebhookSecret = secret
	return model, nil
}

func (r *IntegrationRepository) openIntegration(m *IntegrationModel) *domain.Integration {
	i := toIntegrationDomain(m)
	if m.APIKey != "" {
		i.APIKey, _ = r.codec.DecryptLenient(m.APIKey)
	}
	if m.WebhookSecret != "" {
		i.WebhookSecret, _ = r.codec.DecryptLenient(m.WebhookSecret)
	}
	return i
}

func (r *IntegrationRepository) Create(ctx context.Context, i *domain.Integration) error {
	tid, err := writeTenant(ctx, i.TenantID)
	if err != nil {
		return err
	}
	i.TenantID = tid
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	model, err := r.sealIntegration(i)
	if err != nil {
		return err
	}
	err = wrapOp("creating integration", r.db.WithContext(ctx).Create(&model).Error)
	recordAudit(ctx, r.auditor, "create", "integration", i.ID, err)
	return err
}

func (r *IntegrationRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Integration, error) {
	var model IntegrationModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		First(&model, "id = ?", id).Error
	if err != nil {
		return nil, wrapOp("getting integration", err)
	}
	return r.openIntegration(&model), nil
}

func (r *IntegrationRepository) List(ctx context.Context) ([]*domain.Integration, error) {
	var models []IntegrationModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Order("name ASC").
		Find(&models).Error
	if err != nil {
		return nil, wrapOp("listing integrations", err)
	}
	out := make([]*domain.Integration, len(models))
	for i := range models {
		out[i] = r.openIntegration(&models[i])
	}
	return out, nil
}

func (r *IntegrationRepository) Update(ctx context.Context, i *domain.Integration) error {
	model, err := r.sealIntegration(i)
	if err != nil {
		return err
	}
	err = wrapOp("updating integration", r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Model(&IntegrationModel{}).
		Where("id = ?", i.ID).
		Updates(map[string]any{
			"name":           model.Name,
			"kind":           model.Kind,
			"endpoint":       model.Endpoint,
			"api_key":        model.APIKey,
			"webhook_secret": model.WebhookSecret,
			"enabled":        model.Enabled,
			"updated_at":     time.Now().UTC(),
		}).Error)
	recordAudit(ctx, r.auditor, "update", "integration", i.ID, err)
	return err
}

func (r *IntegrationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := wrapOp("deleting integration", r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Delete(&IntegrationModel{}, "id = ?", id).Error)
	recordAudit(ctx, r.auditor, "delete", "integration", id, err)
	return err
}
