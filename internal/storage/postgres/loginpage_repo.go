package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rewardhub/rewardhub/internal/domain"
	"github.com/rewardhub/rewardhub/internal/security"
)

// LoginPageRepository implements storage.LoginPageStore. One branding row
// per tenant, created on first write.
type LoginPageRepository struct {
	db      *gorm.DB
	auditor security.Auditor
}

// NewLoginPageRepository creates a LoginPageRepository.
func NewLoginPageRepository(db *gorm.DB, auditor security.Auditor) *LoginPageRepository {
	return &LoginPageRepository{db: db, auditor: auditor}
}

func (r *LoginPageRepository) Get(ctx context.Context) (*domain.LoginPage, error) {
	var model LoginPageModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		First(&model).Error
	if err != nil {
		return nil, wrapOp("getting login page", err)
	}
	return toLoginPageDomain(&model), nil
}

func (r *LoginPageRepository) Upsert(ctx context.Context, p *domain.LoginPage) error {
	tid, err := writeTenant(ctx, p.TenantID)
	if err != nil {
		return err
	}
	p.TenantID = tid

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Match the resolved write tenant's row; TenantScope is unscoped for
		// super admins and would pick up another tenant's branding.
		var existing LoginPageModel
		findErr := tx.Where("tenant_id = ?", tid).First(&existing).Error
		switch {
		case findErr == nil:
			p.ID = existing.ID
			return tx.Model(&existing).Updates(map[string]any{
				"title":          p.Title,
				"welcome_text":   p.WelcomeText,
				"logo_url":       p.LogoURL,
				"background_url": p.BackgroundURL,
				"primary_color":  p.PrimaryColor,
				"support_email":  p.SupportEmail,
				"updated_at":     time.Now().UTC(),
			}).Error
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			if p.ID == uuid.Nil {
				p.ID = uuid.New()
			}
			model := toLoginPageModel(p)
			return tx.Create(&model).Error
		default:
			return findErr
		}
	})
	err = wrapOp("upserting login page", err)
	recordAudit(ctx, r.auditor, "update", "login_page", p.ID, err)
	return err
}
