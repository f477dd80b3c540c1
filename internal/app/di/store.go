package di

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"universe_backend/internal/feature/instruments/adapters"
	"universe_backend/internal/feature/instruments/usecase"
	"universe_backend/internal/platform/cache"
	"universe_backend/internal/platform/config"
	"universe_backend/internal/platform/db"
)

// NewInstrumentRepository creates the snapshot store selected by STORE_DRIVER.
// When rdb is non-nil the store is wrapped in a Redis cache whose entries
// expire at the next scheduled import. The returned close function releases
// the underlying connection and is never nil.
func NewInstrumentRepository(ctx context.Context, cfg *config.Config, rdb *goredis.Client) (usecase.InstrumentRepository, func() error, error) {
	var (
		repo     usecase.InstrumentRepository
		closeFn  = func() error { return nil }
		location = cfg.Import.Location
	)

	switch cfg.Store.Driver {
	case config.StoreFile:
		repo = adapters.NewFileRepository(cfg.Store.SnapshotPath)
	case config.StoreSQLite, config.StorePostgres:
		gdb, err := db.Open(cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		repo = adapters.NewInstrumentRepository(gdb)
		closeFn = sqlDB.Close
	case config.StoreS3:
		client, err := adapters.NewS3Client(ctx, adapters.S3Config(cfg.S3))
		if err != nil {
			return nil, nil, err
		}
		repo = adapters.NewS3Repository(client, cfg.S3.Bucket, cfg.S3.Key)
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if rdb == nil {
		return repo, closeFn, nil
	}
	cached := cache.NewCachingInstrumentRepository(rdb, cfg.Store.CacheTTL, repo, cfg.Store.Namespace).
		WithTTLFunc(func() time.Duration {
			return cache.TimeUntilNext(time.Now(), cfg.Import.Hour, location)
		})
	return cached, closeFn, nil
}

// NewImportUsecase builds the import pipeline around repo.
func NewImportUsecase(cfg *config.Config, repo usecase.InstrumentRepository, snapshots usecase.SnapshotCache,
	publisher usecase.DeltaPublisher, recorder usecase.ImportRecorder) (*usecase.ImportUsecase, error) {
	policy, err := usecase.ParseDuplicatePolicy(cfg.Import.DuplicatePolicy)
	if err != nil {
		return nil, err
	}
	clock := usecase.SystemClock{Location: cfg.Import.Location}
	return usecase.NewImportUsecase(repo, snapshots, usecase.NewReconciler(policy), publisher, recorder, clock), nil
}
