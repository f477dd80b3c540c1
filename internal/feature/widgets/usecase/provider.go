// Package usecase implements the display widget provider: cached, coalesced,
// rate-limited upstream fetches that fall back to generated payloads.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"universe_backend/internal/feature/widgets/domain"
	"universe_backend/internal/feature/widgets/domain/entity"
)

// Source fetches the body for one widget kind from its upstream and knows
// how to synthesize a deterministic replacement when the upstream fails.
type Source interface {
	Fetch(ctx context.Context, param string) (any, error)
	Fallback(param string, now time.Time) any
}

// Limiter throttles upstream calls.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Recorder observes fallback payloads.
type Recorder interface {
	WidgetFallback(source string)
}

type registered struct {
	source Source
	cache  *expirable.LRU[string, entity.Payload]
}

type provider struct {
	sources  map[string]*registered
	group    singleflight.Group
	limiter  Limiter
	recorder Recorder
	timeout  time.Duration
	size     int
	now      func() time.Time
}

// NewProvider creates a provider. timeout bounds each upstream attempt,
// including the time spent waiting on the limiter; size bounds each kind's cache.
// limiter and recorder may be nil.
func NewProvider(limiter Limiter, recorder Recorder, timeout time.Duration, size int) *provider {
	if size <= 0 {
		size = 64
	}
	return &provider{
		sources:  make(map[string]*registered),
		limiter:  limiter,
		recorder: recorder,
		timeout:  timeout,
		size:     size,
		now:      time.Now,
	}
}

// Register attaches src to kind with its own cache TTL.
func (p *provider) Register(kind string, src Source, ttl time.Duration) {
	p.sources[kind] = &registered{
		source: src,
		cache:  expirable.NewLRU[string, entity.Payload](p.size, nil, ttl),
	}
}

// FetchDisplayPayload returns the payload for key. Upstream failures never
// surface as errors; only an invalid or unregistered key does.
func (p *provider) FetchDisplayPayload(ctx context.Context, key string) (entity.Payload, error) {
	kind, param, err := ParseKey(key)
	if err != nil {
		return entity.Payload{}, err
	}
	reg, ok := p.sources[kind]
	if !ok {
		return entity.Payload{}, fmt.Errorf("%w: no source for %q", domain.ErrInvalidKey, kind)
	}
	if payload, ok := reg.cache.Get(key); ok {
		return payload, nil
	}

	v, _, _ := p.group.Do(key, func() (any, error) {
		if payload, ok := reg.cache.Get(key); ok {
			return payload, nil
		}
		payload := p.fetch(ctx, kind, param, key, reg.source)
		// fallbacks are not cached so the next request retries the upstream
		if !payload.Fallback {
			reg.cache.Add(key, payload)
		}
		return payload, nil
	})
	return v.(entity.Payload), nil
}

func (p *provider) fetch(ctx context.Context, kind, param, key string, src Source) entity.Payload {
	// the shared call must not die with the first caller's request
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	now := p.now()
	payload := entity.Payload{Key: key, Source: kind, FetchedAt: now.UTC()}

	body, err := p.attempt(ctx, src, param)
	if err == nil {
		payload.Body = body
		return payload
	}

	slog.Warn("widget upstream failed, serving fallback", "key", key, "error", err)
	if p.recorder != nil {
		p.recorder.WidgetFallback(kind)
	}
	payload.Fallback = true
	payload.Body = src.Fallback(param, now)
	return payload
}

func (p *provider) attempt(ctx context.Context, src Source, param string) (any, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}
	return src.Fetch(ctx, param)
}
