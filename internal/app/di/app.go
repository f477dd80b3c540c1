package di

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"universe_backend/internal/feature/instruments/domain/entity"
	"universe_backend/internal/feature/instruments/usecase"
	widgethandler "universe_backend/internal/feature/widgets/transport/handler"
	"universe_backend/internal/platform/cache"
	"universe_backend/internal/platform/config"
	"universe_backend/internal/platform/metrics"
)

// App holds the fully wired application services.
type App struct {
	Metrics     *metrics.Metrics
	Instruments *usecase.InstrumentUsecase
	Imports     *usecase.ImportUsecase
	Widgets     widgethandler.WidgetProvider

	closers []func() error
}

// NewApp wires stores, caches, publishers and usecases from cfg.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Metrics: metrics.New()}

	rdb := NewRedisClient(ctx, cfg.Redis)
	if rdb != nil {
		a.closers = append(a.closers, rdb.Close)
	}

	repo, closeRepo, err := NewInstrumentRepository(ctx, cfg, rdb)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeRepo)

	snapshots := cache.NewSnapshotCache[[]entity.Instrument](cfg.Store.CacheTTL)
	publisher, pubCloser := NewDeltaPublisher(cfg.Kafka)
	if pubCloser != nil {
		a.closers = append(a.closers, pubCloser.Close)
	}

	a.Imports, err = NewImportUsecase(cfg, repo, snapshots, publisher, a.Metrics)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Instruments = usecase.NewInstrumentUsecase(repo, snapshots, usecase.SystemClock{Location: cfg.Import.Location})
	a.Widgets = NewWidgetProvider(cfg.Widgets, a.Metrics)
	return a, nil
}

// Close releases connections in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		slog.Error("failed to release resources", "error", err)
		return err
	}
	return nil
}

var _ io.Closer = (*App)(nil)

