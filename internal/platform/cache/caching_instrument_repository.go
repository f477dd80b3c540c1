// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"universe_backend/internal/feature/instruments/domain/entity"
	"universe_backend/internal/feature/instruments/usecase"
)

// CachingInstrumentRepository decorates an InstrumentRepository with Redis caching.
// It implements the decorator pattern, transparently adding caching without
// modifying the underlying repository.
type CachingInstrumentRepository struct {
	inner     usecase.InstrumentRepository
	rdb       *redis.Client
	ttl       func() time.Duration
	namespace string
}

var _ usecase.InstrumentRepository = (*CachingInstrumentRepository)(nil)

// NewCachingInstrumentRepository decorates an InstrumentRepository with Redis caching.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "instruments".
func NewCachingInstrumentRepository(rdb *redis.Client, ttl time.Duration, inner usecase.InstrumentRepository, namespace string) *CachingInstrumentRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "instruments"
	}
	return &CachingInstrumentRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       func() time.Duration { return ttl },
		namespace: safe(namespace),
	}
}

// WithTTLFunc makes the TTL of each cache write come from fn, for example the
// time until the next scheduled import.
func (c *CachingInstrumentRepository) WithTTLFunc(fn func() time.Duration) *CachingInstrumentRepository {
	if fn != nil {
		c.ttl = fn
	}
	return c
}

// Save writes through to the underlying repository and invalidates the cached snapshot.
func (c *CachingInstrumentRepository) Save(ctx context.Context, records []entity.Instrument) error {
	if err := c.inner.Save(ctx, records); err != nil {
		return err
	}
	if c.rdb == nil {
		return nil
	}
	// Best effort: a stale entry expires with its TTL
	if err := c.rdb.Del(ctx, c.cacheKey()).Err(); err != nil {
		slog.Warn("failed to invalidate snapshot cache", "key", c.cacheKey(), "error", err)
	}
	return nil
}

// Load returns the snapshot, checking the cache first then falling back to the store.
func (c *CachingInstrumentRepository) Load(ctx context.Context) ([]entity.Instrument, error) {
	// Bypass cache if Redis is not configured
	if c.rdb == nil {
		return c.inner.Load(ctx)
	}

	key := c.cacheKey()

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []entity.Instrument
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to the store
	out, err := c.inner.Load(ctx)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort)
	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl()).Err()
	}

	return out, nil
}

func (c *CachingInstrumentRepository) cacheKey() string {
	return c.namespace + ":snapshot"
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
