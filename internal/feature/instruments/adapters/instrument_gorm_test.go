package adapters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"universe_backend/internal/feature/instruments/domain/entity"
)

// setupTestDB prepares an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err, "failed to initialize test database")

	// :memory: は接続ごとに別のDBになるため1接続に固定する
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&InstrumentModel{})
	require.NoError(t, err, "failed to migrate table")

	return db
}

func TestNewInstrumentRepository(t *testing.T) {
	db := setupTestDB(t)

	repo := NewInstrumentRepository(db)

	assert.NotNil(t, repo, "repository is nil")
	assert.NotNil(t, repo.db, "database connection is nil")
}

func TestInstrumentGorm_LoadEmpty(t *testing.T) {
	t.Parallel()

	repo := NewInstrumentRepository(setupTestDB(t))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestInstrumentGorm_SaveAndLoad(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewInstrumentRepository(db)
	ctx := context.Background()

	first := []entity.Instrument{
		{ID: 2, Identifier: "US88160R1014", Name: "Tesla", AddedOn: "2025-09-01"},
		{ID: 1, Identifier: "US0378331005", Name: "Apple", AddedOn: "2025-09-01"},
		{ID: 3, Identifier: "US0378331005", Name: "Apple (dup)", AddedOn: "2025-09-01"},
	}
	require.NoError(t, repo.Save(ctx, first))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, got, "order and duplicates must be preserved")

	// 2回目の保存は前回の内容を完全に置き換える
	second := []entity.Instrument{
		{ID: 1, Identifier: "US0378331005", Name: "Apple", AddedOn: "2025-09-01"},
		{ID: 2, Identifier: "US88160R1014", Name: "Tesla", AddedOn: "2025-09-01", Removed: true},
	}
	require.NoError(t, repo.Save(ctx, second))

	got, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	var count int64
	db.Model(&InstrumentModel{}).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestInstrumentGorm_SaveEmpty(t *testing.T) {
	t.Parallel()

	repo := NewInstrumentRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, []entity.Instrument{{ID: 1, Identifier: "X1", Name: "A", AddedOn: "2025-09-01"}}))
	require.NoError(t, repo.Save(ctx, nil))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInstrumentGorm_LoadError(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	require.NoError(t, db.Migrator().DropTable(&InstrumentModel{}))

	_, err := NewInstrumentRepository(db).Load(context.Background())
	assert.Error(t, err)
}
