package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"universe_backend/internal/feature/instruments/domain"
	"universe_backend/internal/feature/instruments/domain/entity"
)

// DeltaPublisher announces the changes of a completed import to other systems.
type DeltaPublisher interface {
	Publish(ctx context.Context, report entity.ImportReport) error
}

// ImportRecorder receives import outcomes for metrics.
type ImportRecorder interface {
	ObserveImport(report entity.ImportReport, took time.Duration)
	ImportFailed(stage string)
}

// Import stages reported to ImportRecorder.ImportFailed.
const (
	StageLoad      = "load"
	StageParse     = "parse"
	StageReconcile = "reconcile"
	StageSave      = "save"
)

// ImportUsecase runs one snapshot import: parse, reconcile against the stored
// records, save, then invalidate caches and announce the delta.
type ImportUsecase struct {
	mu         sync.Mutex
	repo       InstrumentRepository
	cache      SnapshotCache
	reconciler *Reconciler
	publisher  DeltaPublisher
	recorder   ImportRecorder
	clock      Clock
	newRunID   func() string
}

// NewImportUsecase creates an ImportUsecase. cache, publisher and recorder may be nil.
func NewImportUsecase(repo InstrumentRepository, cache SnapshotCache, reconciler *Reconciler,
	publisher DeltaPublisher, recorder ImportRecorder, clock Clock) *ImportUsecase {
	if reconciler == nil {
		reconciler = NewReconciler(DuplicatesKeep)
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &ImportUsecase{
		repo:       repo,
		cache:      cache,
		reconciler: reconciler,
		publisher:  publisher,
		recorder:   recorder,
		clock:      clock,
		newRunID:   uuid.NewString,
	}
}

// Import reads one snapshot from r and merges it into the stored records.
// With dryRun set the result is computed and reported but not saved or published.
// On any error the previously stored snapshot is left untouched.
func (u *ImportUsecase) Import(ctx context.Context, r io.Reader, format entity.Format, dryRun bool) (entity.ImportReport, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	started := u.clock.Now()
	runID := u.newRunID()
	logger := slog.With("run_id", runID, "dry_run", dryRun)

	previous, err := u.repo.Load(ctx)
	if err != nil {
		u.failed(StageLoad)
		return entity.ImportReport{}, fmt.Errorf("load previous snapshot: %w", err)
	}

	rows, err := Parse(r, format)
	if err != nil {
		u.failed(StageParse)
		return entity.ImportReport{}, err
	}
	if len(rows) > 0 && !anyIdentifier(rows) {
		u.failed(StageParse)
		return entity.ImportReport{}, fmt.Errorf("%w: no identifier column found", domain.ErrMalformedInput)
	}

	records, delta, err := u.reconciler.Reconcile(rows, previous, started.Format(entity.DateLayout))
	if err != nil {
		u.failed(StageReconcile)
		return entity.ImportReport{}, err
	}

	report := entity.ImportReport{
		RunID:         runID,
		ImportedAt:    started,
		DryRun:        dryRun,
		Total:         len(records),
		Added:         delta.Added,
		Removed:       delta.Removed,
		Reinstated:    delta.Reinstated,
		Duplicates:    delta.Duplicates,
		EmptySnapshot: len(rows) == 0 && len(previous) > 0,
	}
	if report.EmptySnapshot {
		logger.Warn("snapshot has no rows; every stored instrument is marked removed",
			"format", format,
			"previous", len(previous),
			"removed", len(report.Removed))
	}
	if dryRun {
		logger.Info("dry-run import finished", "rows", len(rows), "added", len(report.Added), "removed", len(report.Removed))
		return report, nil
	}

	if err := u.repo.Save(ctx, records); err != nil {
		u.failed(StageSave)
		return entity.ImportReport{}, fmt.Errorf("save snapshot: %w", err)
	}
	if u.cache != nil {
		u.cache.Invalidate()
	}
	if u.recorder != nil {
		u.recorder.ObserveImport(report, u.clock.Now().Sub(started))
	}
	if u.publisher != nil {
		// 保存済みのスナップショットが正となるため、配信失敗はインポート失敗にしない
		if err := u.publisher.Publish(ctx, report); err != nil {
			logger.Warn("failed to publish import delta", "error", err)
		}
	}

	logger.Info("import finished",
		"rows", len(rows),
		"total", report.Total,
		"added", len(report.Added),
		"removed", len(report.Removed),
		"reinstated", len(report.Reinstated),
		"duplicates", len(report.Duplicates))
	return report, nil
}

func (u *ImportUsecase) failed(stage string) {
	if u.recorder != nil {
		u.recorder.ImportFailed(stage)
	}
}

func anyIdentifier(rows []entity.ParsedRow) bool {
	for _, r := range rows {
		if r.Identifier != "" {
			return true
		}
	}
	return false
}
