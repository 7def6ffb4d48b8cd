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

// UserRepository implements storage.UserStore. MFA material is encrypted
// before it reaches the database and decrypted on the way out; an
// encryption failure aborts the write, while a decryption failure empties
// only the affected field.
type UserRepository struct {
	db      *gorm.DB
	codec   *fieldcrypt.Codec
	auditor security.Auditor
}

// NewUserRepository creates a UserRepository.
func NewUserRepository(db *gorm.DB, codec *fieldcrypt.Codec, auditor security.Auditor) *UserRepository {
	return &UserRepository{db: db, codec: codec, auditor: auditor}
}

// sealUser returns a model with the MFA fields encrypted.
func (r *UserRepository) sealUser(u *domain.User) (UserModel, error) {
	model := toUserModel(u)
	secret, err := r.codec.Encrypt(u.MFASecret)
	if err != nil {
		return UserModel{}, fmt.Errorf("encrypting mfa secret: %w", err)
	}
	codes, err := r.codec.EncryptSlice(u.MFABackupCodes)
	if err != nil {
		return UserModel{}, fmt.Errorf("encrypting backup codes: %w", err)
	}
	model.MFASecret = secret
	model.MFABackupCodes = toJSONStrings(codes)
	return model, nil
}

// openUser converts a model to the domain type with MFA fields decrypted.
func (r *UserRepository) openUser(m *UserModel) *domain.User {
	u := toUserDomain(m)
	if m.MFASecret != "" {
		u.MFASecret, _ = r.codec.DecryptLenient(m.MFASecret)
	}
	u.MFABackupCodes = r.codec.DecryptSlice(fromJSONStrings(m.MFABackupCodes))
	return u
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	tid, err := writeTenant(ctx, u.TenantID)
	if err != nil {
		return err
	}
	u.TenantID = tid
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	model, err := r.sealUser(u)
	if err != nil {
		return err
	}
	err = wrapOp("creating user", r.db.WithContext(ctx).Create(&model).Error)
	recordAudit(ctx, r.auditor, "create", "user", u.ID, err)
	return err
}

func (r *UserRepository) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var model UserModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		First(&model, "id = ?", id).Error
	if err != nil {
		return nil, wrapOp("getting user", err)
	}
	return r.openUser(&model), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var model UserModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		First(&model, "email = ?", email).Error
	if err != nil {
		return nil, wrapOp("getting user by email", err)
	}
	return r.openUser(&model), nil
}

func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	var models []UserModel
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, wrapOp("listing users", err)
	}
	out := make([]*domain.User, len(models))
	for i := range models {
		out[i] = r.openUser(&models[i])
	}
	return out, nil
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	model, err := r.sealUser(u)
	if err != nil {
		return err
	}
	err = wrapOp("updating user", r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Model(&UserModel{}).
		Where("id = ?", u.ID).
		Updates(map[string]any{
			"email":            model.Email,
			"name":             model.Name,
			"password_hash":    model.PasswordHash,
			"role_names":       model.RoleNames,
			"mfa_enabled_at":   model.MFAEnabledAt,
			"mfa_secret":       model.MFASecret,
			"mfa_backup_codes": model.MFABackupCodes,
			"last_login_at":    model.LastLoginAt,
			"updated_at":       time.Now().UTC(),
		}).Error)
	recordAudit(ctx, r.auditor, "update", "user", u.ID, err)
	return err
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := wrapOp("deleting user", r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Delete(&UserModel{}, "id = ?", id).Error)
	recordAudit(ctx, r.auditor, "delete", "user", id, err)
	return err
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Model(&UserModel{}).
		Count(&n).Error
	if err != nil {
		return 0, wrapOp("counting users", err)
	}
	return n, nil
}
