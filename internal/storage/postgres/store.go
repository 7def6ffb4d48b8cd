package postgres

import (
	"context"
	"log/slog"
	"sync"

	"gorm.io/gorm"

	"github.com/rewardhub/rewardhub/internal/fieldcrypt"
	"github.com/rewardhub/rewardhub/internal/security"
	"github.com/rewardhub/rewardhub/internal/storage"
)

// Store implements storage.Store over a GORM connection. Sub-store
// repositories are created lazily and share one field-encryption codec and
// one audit sink. The SQLite backend reuses this type with a different
// driver name; GORM's dialect handles the SQL differences.
type Store struct {
	db     *gorm.DB
	codec  *fieldcrypt.Codec
	logger *slog.Logger
	driver string

	mu           sync.Mutex
	auditor      security.Auditor
	tenants      storage.TenantStore
	users        storage.UserStore
	roles        storage.RoleStore
	sessions     storage.SessionStore
	campaigns    storage.CampaignStore
	vouchers     storage.VoucherStore
	receipts     storage.ReceiptStore
	redemptions  storage.RedemptionStore
	ads          storage.AdStore
	configs      storage.SystemConfigStore
	integrations storage.IntegrationStore
	loginPages   storage.LoginPageStore
	points       storage.PointsStore
	audit        security.AuditStore
}

// NewStore wraps an opened postgres DB as a unified Store.
func NewStore(pgDB *DB, codec *fieldcrypt.Codec, logger *slog.Logger) *Store {
	return NewStoreWithDB(pgDB.GormDB(), codec, logger, storage.DriverPostgres)
}

// NewStoreWithDB builds a Store over an arbitrary GORM connection. Used by
// the SQLite backend and by tests.
func NewStoreWithDB(db *gorm.DB, codec *fieldcrypt.Codec, logger *slog.Logger, driver string) *Store {
	return &Store{db: db, codec: codec, logger: logger, driver: driver}
}

// Migrate runs GORM AutoMigrate for every model.
func (s *Store) Migrate(_ context.Context) error {
	return s.db.AutoMigrate(AllModels()...)
}

// Ping checks the database connection for health/readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the database connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Driver() string {
	return s.driver
}

// GormDB returns the underlying GORM DB for direct access when needed.
func (s *Store) GormDB() *gorm.DB {
	return s.db
}

// sink returns the shared audit sink, writing into this store's audit table.
// Must be called with s.mu held.
func (s *Store) sink() security.Auditor {
	if s.auditor == nil {
		if s.audit == nil {
			s.audit = NewAuditRepository(s.db)
		}
		s.auditor = security.NewStoreAuditor(s.audit, s.logger)
	}
	return s.auditor
}

// SetAuditor replaces the audit sink, e.g. with a file-backed logger.
// Must be called before first use of any sub-store.
func (s *Store) SetAuditor(a security.Auditor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditor = a
}

// --- Sub-store accessors ---

func (s *Store) Tenants() storage.TenantStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tenants == nil {
		s.tenants = NewTenantRepository(s.db, s.sink())
	}
	return s.tenants
}

func (s *Store) Users() storage.UserStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = NewUserRepository(s.db, s.codec, s.sink())
	}
	return s.users
}

func (s *Store) Roles() storage.RoleStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roles == nil {
		s.roles = NewRoleRepository(s.db, s.sink())
	}
	return s.roles
}

func (s *Store) Sessions() storage.SessionStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions == nil {
		s.sessions = NewSessionRepository(s.db)
	}
	return s.sessions
}

func (s *Store) Campaigns() storage.CampaignStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.campaigns == nil {
		s.campaigns = NewCampaignRepository(s.db, s.sink())
	}
	return s.campaigns
}

func (s *Store) Vouchers() storage.VoucherStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vouchers == nil {
		s.vouchers = NewVoucherRepository(s.db, s.sink())
	}
	return s.vouchers
}

func (s *Store) Receipts() storage.ReceiptStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.receipts == nil {
		s.receipts = NewReceiptRepository(s.db)
	}
	return s.receipts
}

func (s *Store) Redemptions() storage.RedemptionStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.redemptions == nil {
		s.redemptions = NewRedemptionRepository(s.db)
	}
	return s.redemptions
}

func (s *Store) Ads() storage.AdStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ads == nil {
		s.ads = NewAdRepository(s.db, s.sink())
	}
	return s.ads
}

func (s *Store) SystemConfigs() storage.SystemConfigStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.configs == nil {
		s.configs = NewSystemConfigRepository(s.db, s.codec, s.sink())
	}
	return s.configs
}

func (s *Store) Integrations() storage.IntegrationStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.integrations == nil {
		s.integrations = NewIntegrationRepository(s.db, s.codec, s.sink())
	}
	return s.integrations
}

func (s *Store) LoginPages() storage.LoginPageStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loginPages == nil {
		s.loginPages = NewLoginPageRepository(s.db, s.sink())
	}
	return s.loginPages
}

func (s *Store) Points() storage.PointsStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.points == nil {
		s.points = NewPointsRepository(s.db)
	}
	return s.points
}

func (s *Store) Audit() security.AuditStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.audit == nil {
		s.audit = NewAuditRepository(s.db)
	}
	return s.audit
}

// compile-time interface check
var _ storage.Store = (*Store)(nil)
