// Package usecase implements snapshot parsing, reconciliation and querying
// for the instruments feature.
package usecase

import (
	"context"

	"universe_backend/internal/feature/instruments/domain/entity"
)

// InstrumentRepository abstracts the persisted instrument snapshot.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type InstrumentRepository interface {
	// Load returns the stored snapshot, or an empty list when none has been
	// saved yet. Any read or decode failure is returned as an error.
	Load(ctx context.Context) ([]entity.Instrument, error)
	// Save replaces the stored snapshot atomically.
	Save(ctx context.Context, records []entity.Instrument) error
}

// SnapshotCache holds the last loaded snapshot in process.
// Set only stores the value if no invalidation happened since gen was read.
type SnapshotCache interface {
	Get() ([]entity.Instrument, bool)
	Generation() uint64
	Set(gen uint64, records []entity.Instrument) bool
	Invalidate()
}
