// Package cache provides the Redis-backed login page cache. The public
// login page is read on every visit to a tenant's sign-in URL, far more
// often than it changes, so reads go cache-aside with a TTL and admin
// updates invalidate explicitly. The cache is an accelerator only: any
// Redis failure falls through to storage and is logged, never surfaced.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rewardhub/rewardhub/internal/domain"
	"github.com/rewardhub/rewardhub/internal/storage"
	"github.com/rewardhub/rewardhub/internal/tenant"
)

// errMiss signals an absent key, normalized across KV implementations.
var errMiss = errors.New("cache miss")

// KV is the minimal key/value surface the cache needs. Satisfied by
// RedisKV in production and by an in-memory map in tests.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// RedisKV adapts a go-redis client to KV.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV wraps an existing Redis client.
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

// OpenRedis connects a Redis client and verifies it with a ping.
func OpenRedis(ctx context.Context, addr, password string, db int) (*RedisKV, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return &RedisKV{client: client}, nil
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", errMiss
	}
	return val, err
}

func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

// Close releases the underlying client.
func (r *RedisKV) Close() error {
	return r.client.Close()
}

// LoginPages serves tenant login page branding with a cache-aside read path.
type LoginPages struct {
	kv     KV
	store  storage.Store
	ttl    time.Duration
	logger *slog.Logger
}

// NewLoginPages creates the cache. kv may be nil, in which case every read
// goes straight to storage.
func NewLoginPages(kv KV, store storage.Store, ttl time.Duration, logger *slog.Logger) *LoginPages {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &LoginPages{kv: kv, store: store, ttl: ttl, logger: logger}
}

func cacheKey(slug string) string {
	return "loginpage:" + slug
}

// cached is the wire form stored in Redis: the page plus the tenant it
// belongs to, so a hit avoids the tenant lookup entirely.
type cached struct {
	Page     domain.LoginPage `json:"page"`
	TenantID string           `json:"tenant_id"`
}

// Get returns the login page for a tenant slug. The read is public: it runs
// pre-auth under an anonymous identity, resolves the tenant by slug, then
// reads the page under that tenant's scope.
func (c *LoginPages) Get(ctx context.Context, slug string) (*domain.LoginPage, error) {
	if c.kv != nil {
		if raw, err := c.kv.Get(ctx, cacheKey(slug)); err == nil {
			var entry cached
			if err := json.Unmarshal([]byte(raw), &entry); err == nil {
				return &entry.Page, nil
			}
			// Unreadable entry: drop it and fall through.
			_ = c.kv.Del(ctx, cacheKey(slug))
		} else if !errors.Is(err, errMiss) {
			c.logger.WarnContext(ctx, "login page cache read failed",
				slog.String("slug", slug), slog.String("error", err.Error()))
		}
	}

	anonCtx := tenant.WithContext(ctx, &tenant.Context{UserID: "anonymous"})
	tn, err := c.store.Tenants().GetBySlug(anonCtx, slug)
	if err != nil {
		return nil, err
	}
	scoped := tenant.WithContext(ctx, &tenant.Context{UserID: "anonymous", TenantID: &tn.ID})
	page, err := c.store.LoginPages().Get(scoped)
	if err != nil {
		return nil, err
	}

	if c.kv != nil {
		raw, err := json.Marshal(cached{Page: *page, TenantID: tn.ID.String()})
		if err == nil {
			if err := c.kv.Set(ctx, cacheKey(slug), string(raw), c.ttl); err != nil {
				c.logger.WarnContext(ctx, "login page cache write failed",
					slog.String("slug", slug), slog.String("error", err.Error()))
			}
		}
	}
	return page, nil
}

// Invalidate drops the cached entry for a slug. Called after an admin
// updates the branding so the next visitor sees the change immediately.
func (c *LoginPages) Invalidate(ctx context.Context, slug string) {
	if c.kv == nil {
		return
	}
	if err := c.kv.Del(ctx, cacheKey(slug)); err != nil {
		c.logger.WarnContext(ctx, "login page cache invalidation failed",
			slog.String("slug", slug), slog.String("error", err.Error()))
	}
}
