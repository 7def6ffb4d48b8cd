package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rewardhub/rewardhub/internal/domain"
)

// SessionRepository implements storage.SessionStore.
//
// GetByTokenHash is the one deliberately unscoped read in the storage layer:
// it runs during authentication, before any tenant context exists, and the
// token hash alone identifies the session. Everything else applies the scope.
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a SessionRepository.
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	tid, err := writeTenant(ctx, s.TenantID)
	if err != nil {
		return err
	}
	s.TenantID = tid
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	model := toSessionModel(s)
	return wrapOp("creating session", r.db.WithContext(ctx).Create(&model).Error)
}

func (r *SessionRepository) GetByTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	var model SessionModel
	err := r.db.WithContext(ctx).First(&model, "token_hash = ?", hash).Error
	if err != nil {
		return nil, wrapOp("getting session", err)
	}
	return toSessionDomain(&model), nil
}

func (r *SessionRepository) MarkMFAPassed(ctx context.Context, id uuid.UUID) error {
	return wrapOp("marking session mfa passed", r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Model(&SessionModel{}).
		Where("id = ?", id).
		Update("mfa_passed", true).Error)
}

func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return wrapOp("deleting session", r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Delete(&SessionModel{}, "id = ?", id).Error)
}

// DeleteExpired removes all sessions past their expiry across every tenant.
// Runs under a super-admin context from the scheduler.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Delete(&SessionModel{}, "expires_at < ?", now)
	if result.Error != nil {
		return 0, wrapOp("purging expired sessions", result.Error)
	}
	return result.RowsAffected, nil
}
