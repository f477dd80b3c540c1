package di

import (
	"time"

	"universe_backend/internal/feature/widgets/adapters/reddit"
	"universe_backend/internal/feature/widgets/adapters/yahoo"
	"universe_backend/internal/feature/widgets/domain/entity"
	widgethandler "universe_backend/internal/feature/widgets/transport/handler"
	"universe_backend/internal/feature/widgets/usecase"
	"universe_backend/internal/platform/config"
	infrahttp "universe_backend/internal/platform/http"
	"universe_backend/internal/shared/ratelimiter"
)

// NewWidgetProvider wires the index and social widget sources behind one
// rate-limited, cached provider.
func NewWidgetProvider(cfg config.WidgetsConfig, recorder usecase.Recorder) widgethandler.WidgetProvider {
	client := infrahttp.NewHTTPClient(cfg.UpstreamTimeout, cfg.UserAgent)
	limiter := ratelimiter.NewRateLimiter(cfg.RequestsPerMin, time.Minute)

	p := usecase.NewProvider(limiter, recorder, cfg.UpstreamTimeout, cfg.CacheSize)
	p.Register(entity.KindIndex, yahoo.NewChartClient(client, cfg.YahooBaseURL, cfg.IndexSymbol), cfg.IndexTTL)
	p.Register(entity.KindSocial, reddit.NewClient(client, cfg.RedditBaseURL), cfg.SocialTTL)
	return p
}
