package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rewardhub/rewardhub/internal/domain"
	"github.com/rewardhub/rewardhub/internal/fieldcrypt"
	"github.com/rewardhub/rewardhub/internal/storage"
	pgstore "github.com/rewardhub/rewardhub/internal/storage/postgres"
	"github.com/rewardhub/rewardhub/internal/tenant"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

type fakeKV struct {
	mu      sync.Mutex
	data    map[string]string
	getErr  error
	setErr  error
	getHits int
	sets    int
	dels    int
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	val, ok := f.data[key]
	if !ok {
		return "", errMiss
	}
	f.getHits++
	return val, nil
}

func (f *fakeKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	f.sets++
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	f.dels++
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStore(t *testing.T) storage.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	codec, err := fieldcrypt.New(testKeyHex)
	if err != nil {
		t.Fatalf("building codec: %v", err)
	}
	store := pgstore.NewStoreWithDB(db, codec, discardLogger(), storage.DriverSQLite)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedTenantPage(t *testing.T, store storage.Store, slug string) uuid.UUID {
	t.Helper()
	super := tenant.WithContext(context.Background(), &tenant.Context{UserID: "root", IsSuperAdmin: true})
	tn := &domain.Tenant{Name: slug, Slug: slug, Status: domain.TenantActive}
	if err := store.Tenants().Create(super, tn); err != nil {
		t.Fatalf("creating tenant: %v", err)
	}
	scoped := tenant.WithContext(context.Background(), &tenant.Context{UserID: "seed", TenantID: &tn.ID})
	page := &domain.LoginPage{TenantID: tn.ID, Title: "Welcome to " + slug, PrimaryColor: "#336699"}
	if err := store.LoginPages().Upsert(scoped, page); err != nil {
		t.Fatalf("seeding login page: %v", err)
	}
	return tn.ID
}

func TestGetPopulatesAndHitsCache(t *testing.T) {
	store := testStore(t)
	seedTenantPage(t, store, "acme")
	kv := newFakeKV()
	pages := NewLoginPages(kv, store, time.Minute, discardLogger())

	page, err := pages.Get(context.Background(), "acme")
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	if page.Title != "Welcome to acme" {
		t.Fatalf("unexpected title %q", page.Title)
	}
	if kv.sets != 1 {
		t.Fatalf("expected one cache fill, got %d", kv.sets)
	}

	again, err := pages.Get(context.Background(), "acme")
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if again.Title != page.Title {
		t.Fatalf("cached title %q differs from %q", again.Title, page.Title)
	}
	if kv.getHits != 1 {
		t.Fatalf("expected the second read to hit the cache, hits=%d", kv.getHits)
	}
	if kv.sets != 1 {
		t.Fatalf("cache hit should not refill, sets=%d", kv.sets)
	}
}

func TestGetFallsBackWhenCacheUnavailable(t *testing.T) {
	store := testStore(t)
	seedTenantPage(t, store, "globex")
	kv := newFakeKV()
	kv.getErr = errors.New("connection refused")
	pages := NewLoginPages(kv, store, time.Minute, discardLogger())

	page, err := pages.Get(context.Background(), "globex")
	if err != nil {
		t.Fatalf("read with broken cache: %v", err)
	}
	if page.Title != "Welcome to globex" {
		t.Fatalf("unexpected title %q", page.Title)
	}
}

func TestGetWithoutCacheBackend(t *testing.T) {
	store := testStore(t)
	seedTenantPage(t, store, "initech")
	pages := NewLoginPages(nil, store, time.Minute, discardLogger())

	page, err := pages.Get(context.Background(), "initech")
	if err != nil {
		t.Fatalf("read without cache: %v", err)
	}
	if page.Title != "Welcome to initech" {
		t.Fatalf("unexpected title %q", page.Title)
	}
}

func TestGetUnknownSlug(t *testing.T) {
	store := testStore(t)
	pages := NewLoginPages(newFakeKV(), store, time.Minute, discardLogger())

	if _, err := pages.Get(context.Background(), "nobody"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInvalidateDropsEntry(t *testing.T) {
	store := testStore(t)
	tenantID := seedTenantPage(t, store, "umbrella")
	kv := newFakeKV()
	pages := NewLoginPages(kv, store, time.Minute, discardLogger())

	if _, err := pages.Get(context.Background(), "umbrella"); err != nil {
		t.Fatalf("priming cache: %v", err)
	}

	scoped := tenant.WithContext(context.Background(), &tenant.Context{UserID: "admin", TenantID: &tenantID})
	updated := &domain.LoginPage{TenantID: tenantID, Title: "Rebranded", PrimaryColor: "#000000"}
	if err := store.LoginPages().Upsert(scoped, updated); err != nil {
		t.Fatalf("updating page: %v", err)
	}
	pages.Invalidate(context.Background(), "umbrella")

	page, err := pages.Get(context.Background(), "umbrella")
	if err != nil {
		t.Fatalf("read after invalidation: %v", err)
	}
	if page.Title != "Rebranded" {
		t.Fatalf("expected fresh title after invalidation, got %q", page.Title)
	}
}

func TestCorruptCacheEntryIsDiscarded(t *testing.T) {
	store := testStore(t)
	seedTenantPage(t, store, "hooli")
	kv := newFakeKV()
	kv.data[cacheKey("hooli")] = "{not json"
	pages := NewLoginPages(kv, store, time.Minute, discardLogger())

	page, err := pages.Get(context.Background(), "hooli")
	if err != nil {
		t.Fatalf("read over corrupt entry: %v", err)
	}
	if page.Title != "Welcome to hooli" {
		t.Fatalf("unexpected title %q", page.Title)
	}
}
