package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"universe_backend/internal/feature/instruments/domain"
	"universe_backend/internal/feature/instruments/domain/entity"
	"universe_backend/internal/feature/instruments/usecase"
)

// mockPublisher はDeltaPublisherインターフェースのモック実装です。
type mockPublisher struct {
	PublishFunc func(ctx context.Context, report entity.ImportReport) error
	Reports     []entity.ImportReport
}

func (m *mockPublisher) Publish(ctx context.Context, report entity.ImportReport) error {
	m.Reports = append(m.Reports, report)
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, report)
	}
	return nil
}

// mockRecorder はImportRecorderインターフェースのモック実装です。
type mockRecorder struct {
	Observed []entity.ImportReport
	Failed   []string
}

func (m *mockRecorder) ObserveImport(report entity.ImportReport, took time.Duration) {
	m.Observed = append(m.Observed, report)
}

func (m *mockRecorder) ImportFailed(stage string) { m.Failed = append(m.Failed, stage) }

// memoryRepo は保存内容を次回のLoadで返すリポジトリです。
func memoryRepo(initial []entity.Instrument) *mockInstrumentRepository {
	repo := &mockInstrumentRepository{}
	stored := initial
	repo.LoadFunc = func(ctx context.Context) ([]entity.Instrument, error) { return stored, nil }
	repo.SaveFunc = func(ctx context.Context, records []entity.Instrument) error {
		stored = records
		return nil
	}
	return repo
}

// TestImportUsecase_Import は解析から保存・キャッシュ無効化・配信までの一連の流れを検証します。
func TestImportUsecase_Import(t *testing.T) {
	t.Parallel()

	repo := memoryRepo(nil)
	cache := &mockSnapshotCache{}
	pub := &mockPublisher{}
	rec := &mockRecorder{}
	uc := usecase.NewImportUsecase(repo, cache, nil, pub, rec, clockAt("2025-09-01"))

	report, err := uc.Import(context.Background(),
		strings.NewReader("name,isin\nApple,US0378331005\nTesla,US88160R1014\n"), entity.FormatCSV, false)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.False(t, report.DryRun)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, []string{"Apple", "Tesla"}, names(report.Added))
	assert.Equal(t, []entity.Instrument{
		{ID: 1, Identifier: "US0378331005", Name: "Apple", AddedOn: "2025-09-01"},
		{ID: 2, Identifier: "US88160R1014", Name: "Tesla", AddedOn: "2025-09-01"},
	}, repo.Saved)
	assert.Equal(t, 1, cache.Invalidated)
	require.Len(t, pub.Reports, 1)
	assert.Equal(t, report.RunID, pub.Reports[0].RunID)
	assert.Len(t, rec.Observed, 1)
	assert.Empty(t, rec.Failed)

	// 2回目: Teslaが消え、BASFが追加される
	uc2 := usecase.NewImportUsecase(repo, cache, nil, pub, rec, clockAt("2025-09-26"))
	report, err = uc2.Import(context.Background(),
		strings.NewReader(`[{"name":"Apple","isin":"US0378331005"},{"name":"BASF","isin":"DE000BASF111"}]`), entity.FormatAuto, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"BASF"}, names(report.Added))
	assert.Equal(t, []string{"Tesla"}, names(report.Removed))
	assert.Equal(t, []entity.Instrument{
		{ID: 1, Identifier: "US0378331005", Name: "Apple", AddedOn: "2025-09-01"},
		{ID: 3, Identifier: "DE000BASF111", Name: "BASF", AddedOn: "2025-09-26"},
		{ID: 2, Identifier: "US88160R1014", Name: "Tesla", AddedOn: "2025-09-01", Removed: true},
	}, repo.Saved)
}

// TestImportUsecase_DryRun はドライランで保存・配信が行われないことを検証します。
func TestImportUsecase_DryRun(t *testing.T) {
	t.Parallel()

	repo := memoryRepo(nil)
	cache := &mockSnapshotCache{}
	pub := &mockPublisher{}
	uc := usecase.NewImportUsecase(repo, cache, nil, pub, nil, clockAt("2025-09-01"))

	report, err := uc.Import(context.Background(), strings.NewReader("name,isin\nApple,US0378331005\n"), entity.FormatCSV, true)
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Len(t, report.Added, 1)
	assert.Zero(t, repo.SaveCalls)
	assert.Zero(t, cache.Invalidated)
	assert.Empty(t, pub.Reports)
}

// TestImportUsecase_Failures は各段階の失敗で保存が行われず、失敗段階が記録されることを検証します。
func TestImportUsecase_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		repo      func() *mockInstrumentRepository
		input     string
		policy    usecase.DuplicatePolicy
		wantErr   error
		wantStage string
	}{
		{
			name: "load failure aborts before parsing",
			repo: func() *mockInstrumentRepository {
				return &mockInstrumentRepository{
					LoadFunc: func(ctx context.Context) ([]entity.Instrument, error) { return nil, errStore },
				}
			},
			input:     "name,isin\nApple,US0378331005\n",
			wantErr:   errStore,
			wantStage: usecase.StageLoad,
		},
		{
			name:      "malformed input",
			repo:      func() *mockInstrumentRepository { return memoryRepo(nil) },
			input:     "name,isin\nApple,US0378331005,extra\n",
			wantErr:   domain.ErrMalformedInput,
			wantStage: usecase.StageParse,
		},
		{
			name:      "rows without any identifier",
			repo:      func() *mockInstrumentRepository { return memoryRepo(nil) },
			input:     "name,price\nApple,10\n",
			wantErr:   domain.ErrMalformedInput,
			wantStage: usecase.StageParse,
		},
		{
			name:      "duplicates rejected",
			repo:      func() *mockInstrumentRepository { return memoryRepo(nil) },
			input:     "name,isin\nApple,US0378331005\nApple,US0378331005\n",
			policy:    usecase.DuplicatesReject,
			wantErr:   domain.ErrDuplicateIdentifier,
			wantStage: usecase.StageReconcile,
		},
		{
			name: "save failure",
			repo: func() *mockInstrumentRepository {
				repo := memoryRepo(nil)
				repo.SaveFunc = func(ctx context.Context, records []entity.Instrument) error { return errStore }
				return repo
			},
			input:     "name,isin\nApple,US0378331005\n",
			wantErr:   errStore,
			wantStage: usecase.StageSave,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := tt.repo()
			cache := &mockSnapshotCache{}
			pub := &mockPublisher{}
			rec := &mockRecorder{}
			uc := usecase.NewImportUsecase(repo, cache, usecase.NewReconciler(tt.policy), pub, rec, clockAt("2025-09-01"))

			_, err := uc.Import(context.Background(), strings.NewReader(tt.input), entity.FormatCSV, false)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, []string{tt.wantStage}, rec.Failed)
			assert.Zero(t, cache.Invalidated)
			assert.Empty(t, pub.Reports)
			if tt.wantStage != usecase.StageSave {
				assert.Zero(t, repo.SaveCalls)
			}
		})
	}
}

// TestImportUsecase_PublishFailure は配信失敗がインポート結果に影響しないことを検証します。
func TestImportUsecase_PublishFailure(t *testing.T) {
	t.Parallel()

	repo := memoryRepo(nil)
	pub := &mockPublisher{
		PublishFunc: func(ctx context.Context, report entity.ImportReport) error { return errors.New("broker down") },
	}
	uc := usecase.NewImportUsecase(repo, nil, nil, pub, nil, clockAt("2025-09-01"))

	report, err := uc.Import(context.Background(), strings.NewReader("name,isin\nApple,US0378331005\n"), entity.FormatCSV, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, repo.SaveCalls)
}

// TestImportUsecase_EmptySnapshot は空のスナップショットで全銘柄が削除扱いになることを検証します。
func TestImportUsecase_EmptySnapshot(t *testing.T) {
	t.Parallel()

	repo := memoryRepo([]entity.Instrument{{ID: 1, Name: "Apple", Identifier: "US1", AddedOn: "2025-09-01"}})
	uc := usecase.NewImportUsecase(repo, nil, nil, nil, nil, clockAt("2025-09-26"))

	report, err := uc.Import(context.Background(), strings.NewReader("name,isin\n"), entity.FormatCSV, false)
	require.NoError(t, err)

	assert.Equal(t, []entity.Instrument{{ID: 1, Name: "Apple", Identifier: "US1", AddedOn: "2025-09-01", Removed: true}}, repo.Saved)
	assert.Len(t, report.Removed, 1)
	assert.True(t, report.EmptySnapshot)
}

// TestImportUsecase_EmptySnapshotFlag は0行の入力で既存銘柄がある場合のみフラグが立つことを検証します。
func TestImportUsecase_EmptySnapshotFlag(t *testing.T) {
	t.Parallel()

	stored := []entity.Instrument{{ID: 1, Name: "Apple", Identifier: "US0378331005", AddedOn: "2025-09-01"}}

	tests := []struct {
		name     string
		previous []entity.Instrument
		input    string
		format   entity.Format
		expected bool
	}{
		{name: "text without identifier lines", previous: stored, input: "no identifiers here\n", format: entity.FormatText, expected: true},
		{name: "header only csv", previous: stored, input: "name,isin\n", format: entity.FormatCSV, expected: true},
		{name: "empty store", previous: nil, input: "name,isin\n", format: entity.FormatCSV, expected: false},
		{name: "rows present", previous: stored, input: "name,isin\nApple,US0378331005\n", format: entity.FormatCSV, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			uc := usecase.NewImportUsecase(memoryRepo(tt.previous), nil, nil, nil, nil, clockAt("2025-09-26"))

			report, err := uc.Import(context.Background(), strings.NewReader(tt.input), tt.format, true)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, report.EmptySnapshot)
			if tt.expected {
				assert.Len(t, report.Removed, len(tt.previous))
			}
		})
	}
}
