package postgres

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/rewardhub/rewardhub/internal/domain"
	"github.com/rewardhub/rewardhub/internal/security"
)

// Converters between GORM models and ORM-free domain types. Field
// encryption is applied in the repositories, not here: converters move
// values verbatim.

func toJSONStrings(values []string) JSONB {
	b, _ := json.Marshal(values)
	if b == nil {
		b = []byte("[]")
	}
	return JSONB(b)
}

func fromJSONStrings(raw JSONB) []string {
	var values []string
	_ = json.Unmarshal(raw, &values)
	return values
}

// --- Tenant ---

func toTenantModel(t *domain.Tenant) TenantModel {
	return TenantModel{
		ID:        t.ID,
		Name:      t.Name,
		Slug:      t.Slug,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func toTenantDomain(m *TenantModel) *domain.Tenant {
	return &domain.Tenant{
		ID:        m.ID,
		Name:      m.Name,
		Slug:      m.Slug,
		Status:    domain.TenantStatus(m.Status),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// --- User ---

func toUserModel(u *domain.User) UserModel {
	return UserModel{
		ID:             u.ID,
		TenantID:       u.TenantID,
		Email:          u.Email,
		Name:           u.Name,
		PasswordHash:   u.PasswordHash,
		RoleNames:      toJSONStrings(u.RoleNames),
		IsSuperAdmin:   u.IsSuperAdmin,
		MFAEnabledAt:   u.MFAEnabled,
		MFASecret:      u.MFASecret,
		MFABackupCodes: toJSONStrings(u.MFABackupCodes),
		LastLoginAt:    u.LastLoginAt,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func toUserDomain(m *UserModel) *domain.User {
	return &domain.User{
		ID:             m.ID,
		TenantID:       m.TenantID,
		Email:          m.Email,
		Name:           m.Name,
		PasswordHash:   m.PasswordHash,
		RoleNames:      fromJSONStrings(m.RoleNames),
		IsSuperAdmin:   m.IsSuperAdmin,
		MFAEnabled:     m.MFAEnabledAt,
		MFASecret:      m.MFASecret,
		MFABackupCodes: fromJSONStrings(m.MFABackupCodes),
		LastLoginAt:    m.LastLoginAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// --- Role ---

func toRoleModel(r *domain.Role) RoleModel {
	return RoleModel{
		ID:          r.ID,
		TenantID:    r.TenantID,
		Name:        r.Name,
		Permissions: toJSONStrings(r.Permissions),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func toRoleDomain(m *RoleModel) *domain.Role {
	return &domain.Role{
		ID:          m.ID,
		TenantID:    m.TenantID,
		Name:        m.Name,
		Permissions: fromJSONStrings(m.Permissions),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// --- Session ---

func toSessionModel(s *domain.Session) SessionModel {
	return SessionModel{
		ID:        s.ID,
		TenantID:  s.TenantID,
		UserID:    s.UserID,
		TokenHash: s.TokenHash,
		MFAPassed: s.MFAPassed,
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
	}
}

func toSessionDomain(m *SessionModel) *domain.Session {
	return &domain.Session{
		ID:        m.ID,
		TenantID:  m.TenantID,
		UserID:    m.UserID,
		TokenHash: m.TokenHash,
		MFAPassed: m.MFAPassed,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
	}
}

// --- Campaign ---

func toCampaignModel(c *domain.Campaign) CampaignModel {
	return CampaignModel{
		ID:            c.ID,
		TenantID:      c.TenantID,
		Name:          c.Name,
		Description:   c.Description,
		PointsPerUnit: c.PointsPerUnit,
		StartsAt:      c.StartsAt,
		EndsAt:        c.EndsAt,
		Status:        string(c.Status),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func toCampaignDomain(m *CampaignModel) *domain.Campaign {
	return &domain.Campaign{
		ID:            m.ID,
		TenantID:      m.TenantID,
		Name:          m.Name,
		Description:   m.Description,
		PointsPerUnit: m.PointsPerUnit,
		StartsAt:      m.StartsAt,
		EndsAt:        m.EndsAt,
		Status:        domain.CampaignStatus(m.Status),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// --- Voucher ---

func toVoucherModel(v *domain.Voucher) VoucherModel {
	return VoucherModel{
		ID:          v.ID,
		TenantID:    v.TenantID,
		Code:        v.Code,
		Title:       v.Title,
		Description: v.Description,
		PointsCost:  v.PointsCost,
		Stock:       v.Stock,
		ExpiresAt:   v.ExpiresAt,
		Status:      string(v.Status),
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

func toVoucherDomain(m *VoucherModel) *domain.Voucher {
	return &domain.Voucher{
		ID:          m.ID,
		TenantID:    m.TenantID,
		Code:        m.Code,
		Title:       m.Title,
		Description: m.Description,
		PointsCost:  m.PointsCost,
		Stock:       m.Stock,
		ExpiresAt:   m.ExpiresAt,
		Status:      domain.VoucherStatus(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// --- Receipt ---

func toReceiptModel(r *domain.Receipt) ReceiptModel {
	return ReceiptModel{
		ID:            r.ID,
		TenantID:      r.TenantID,
		MemberID:      r.MemberID,
		CampaignID:    r.CampaignID,
		AmountCents:   r.AmountCents,
		PointsAwarded: r.PointsAwarded,
		SubmittedAt:   r.SubmittedAt,
		CreatedAt:     r.CreatedAt,
	}
}

func toReceiptDomain(m *ReceiptModel) *domain.Receipt {
	return &domain.Receipt{
		ID:            m.ID,
		TenantID:      m.TenantID,
		MemberID:      m.MemberID,
		CampaignID:    m.CampaignID,
		AmountCents:   m.AmountCents,
		PointsAwarded: m.PointsAwarded,
		SubmittedAt:   m.SubmittedAt,
		CreatedAt:     m.CreatedAt,
	}
}

// --- Redemption ---

func toRedemptionModel(r *domain.Redemption) RedemptionModel {
	return RedemptionModel{
		ID:          r.ID,
		TenantID:    r.TenantID,
		MemberID:    r.MemberID,
		VoucherID:   r.VoucherID,
		PointsSpent: r.PointsSpent,
		CreatedAt:   r.CreatedAt,
	}
}

func toRedemptionDomain(m *RedemptionModel) *domain.Redemption {
	return &domain.Redemption{
		ID:          m.ID,
		TenantID:    m.TenantID,
		MemberID:    m.MemberID,
		VoucherID:   m.VoucherID,
		PointsSpent: m.PointsSpent,
		CreatedAt:   m.CreatedAt,
	}
}

// --- Ad ---

func toAdModel(a *domain.Ad) AdModel {
	return AdModel{
		ID:        a.ID,
		TenantID:  a.TenantID,
		Title:     a.Title,
		ImageURL:  a.ImageURL,
		TargetURL: a.TargetURL,
		Enabled:   a.Enabled,
		StartsAt:  a.StartsAt,
		EndsAt:    a.EndsAt,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func toAdDomain(m *AdModel) *domain.Ad {
	return &domain.Ad{
		ID:        m.ID,
		TenantID:  m.TenantID,
		Title:     m.Title,
		ImageURL:  m.ImageURL,
		TargetURL: m.TargetURL,
		Enabled:   m.Enabled,
		StartsAt:  m.StartsAt,
		EndsAt:    m.EndsAt,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// --- SystemConfig ---

func toSystemConfigModel(c *domain.SystemConfig) SystemConfigModel {
	return SystemConfigModel{
		ID:          c.ID,
		TenantID:    c.TenantID,
		Key:         c.Key,
		Value:       c.Value,
		IsEncrypted: c.IsEncrypted,
		UpdatedAt:   c.UpdatedAt,
	}
}

func toSystemConfigDomain(m *SystemConfigModel) *domain.SystemConfig {
	return &domain.SystemConfig{
		ID:          m.ID,
		TenantID:    m.TenantID,
		Key:         m.Key,
		Value:       m.Value,
		IsEncrypted: m.IsEncrypted,
		UpdatedAt:   m.UpdatedAt,
	}
}

// --- Integration ---

func toIntegrationModel(i *domain.Integration) IntegrationModel {
	return IntegrationModel{
		ID:            i.ID,
		TenantID:      i.TenantID,
		Name:          i.Name,
		Kind:          i.Kind,
		Endpoint:      i.Endpoint,
		APIKey:        i.APIKey,
		WebhookSecret: i.WebhookSecret,
		Enabled:       i.Enabled,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	}
}

func toIntegrationDomain(m *IntegrationModel) *domain.Integration {
	return &domain.Integration{
		ID:            m.ID,
		TenantID:      m.TenantID,
		Name:          m.Name,
		Kind:          m.Kind,
		Endpoint:      m.Endpoint,
		APIKey:        m.APIKey,
		WebhookSecret: m.WebhookSecret,
		Enabled:       m.Enabled,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// --- LoginPage ---

func toLoginPageModel(p *domain.LoginPage) LoginPageModel {
	return LoginPageModel{
		ID:            p.ID,
		TenantID:      p.TenantID,
		Title:         p.Title,
		WelcomeText:   p.WelcomeText,
		LogoURL:       p.LogoURL,
		BackgroundURL: p.BackgroundURL,
		PrimaryColor:  p.PrimaryColor,
		SupportEmail:  p.SupportEmail,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toLoginPageDomain(m *LoginPageModel) *domain.LoginPage {
	return &domain.LoginPage{
		ID:            m.ID,
		TenantID:      m.TenantID,
		Title:         m.Title,
		WelcomeText:   m.WelcomeText,
		LogoURL:       m.LogoURL,
		BackgroundURL: m.BackgroundURL,
		PrimaryColor:  m.PrimaryColor,
		SupportEmail:  m.SupportEmail,
		UpdatedAt:     m.UpdatedAt,
	}
}

// --- PointsBalance ---

func toPointsBalanceDomain(m *PointsBalanceModel) *domain.PointsBalance {
	return &domain.PointsBalance{
		ID:        m.ID,
		TenantID:  m.TenantID,
		MemberID:  m.MemberID,
		Earned:    m.Earned,
		Spent:     m.Spent,
		UpdatedAt: m.UpdatedAt,
	}
}

// --- Audit ---

func toAuditModel(event security.AuditEvent) AuditEventModel {
	return AuditEventModel{
		ID:        uuid.New(),
		TenantID:  event.TenantID,
		UserID:    event.UserID,
		Action:    event.Action,
		Model:     event.Model,
		RecordID:  event.RecordID,
		Result:    event.Result,
		Error:     event.Error,
		CreatedAt: event.Timestamp,
	}
}

func toAuditDomain(m *AuditEventModel) security.AuditEvent {
	return security.AuditEvent{
		Timestamp: m.CreatedAt,
		TenantID:  m.TenantID,
		UserID:    m.UserID,
		Action:    m.Action,
		Model:     m.Model,
		RecordID:  m.RecordID,
		Result:    m.Result,
		Error:     m.Error,
	}
}
