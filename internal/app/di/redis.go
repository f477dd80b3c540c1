// Package di provides dependency injection factories for creating application components.
package di

import (
	"context"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"universe_backend/internal/platform/redis"
)

// NewRedisClient returns a connected client, or nil when Redis is not
// configured or unreachable. Callers treat nil as "run without cache".
func NewRedisClient(ctx context.Context, cfg redis.Config) *goredis.Client {
	if !cfg.Enabled() {
		slog.Info("redis not configured, running without shared cache")
		return nil
	}
	rdb, err := redis.NewRedisClient(ctx, cfg)
	if err != nil {
		slog.Warn("redis unavailable, running without shared cache", "addr", cfg.Addr(), "error", err)
		return nil
	}
	return rdb
}
