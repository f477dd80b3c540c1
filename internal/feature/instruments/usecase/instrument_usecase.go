package usecase

import (
	"context"
	"fmt"
	"time"

	"universe_backend/internal/feature/instruments/domain"
	"universe_backend/internal/feature/instruments/domain/entity"
)

// InstrumentUsecase serves read queries over the current snapshot.
type InstrumentUsecase struct {
	repo  InstrumentRepository
	cache SnapshotCache
	clock Clock
}

// NewInstrumentUsecase creates an InstrumentUsecase. cache may be nil, in which
// case every read goes to the repository.
func NewInstrumentUsecase(repo InstrumentRepository, cache SnapshotCache, clock Clock) *InstrumentUsecase {
	if clock == nil {
		clock = SystemClock{}
	}
	return &InstrumentUsecase{repo: repo, cache: cache, clock: clock}
}

// List returns one page of the snapshot filtered by opts.
func (u *InstrumentUsecase) List(ctx context.Context, opts entity.ListOptions) (entity.Page, error) {
	records, err := u.snapshot(ctx)
	if err != nil {
		return entity.Page{}, err
	}
	if opts.Today == "" {
		opts.Today = Today(u.clock)
	}
	return Query(records, opts)
}

// Get returns the instrument with the given id or domain.ErrInstrumentNotFound.
func (u *InstrumentUsecase) Get(ctx context.Context, id uint) (entity.Instrument, error) {
	records, err := u.snapshot(ctx)
	if err != nil {
		return entity.Instrument{}, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
	}
	return entity.Instrument{}, domain.ErrInstrumentNotFound
}

// Changes returns the instruments added on date together with every
// instrument currently flagged as removed. An empty date means today.
func (u *InstrumentUsecase) Changes(ctx context.Context, date string) (entity.Changes, error) {
	if date == "" {
		date = Today(u.clock)
	}
	if _, err := time.Parse(entity.DateLayout, date); err != nil {
		return entity.Changes{}, fmt.Errorf("%w: %q", domain.ErrInvalidDate, date)
	}

	records, err := u.snapshot(ctx)
	if err != nil {
		return entity.Changes{}, err
	}
	out := entity.Changes{Date: date, Added: []entity.Instrument{}, Removed: []entity.Instrument{}}
	for _, r := range records {
		switch {
		case r.Removed:
			out.Removed = append(out.Removed, r)
		case r.AddedOn == date:
			out.Added = append(out.Added, r)
		}
	}
	return out, nil
}

// Ready reports whether the snapshot can currently be loaded.
func (u *InstrumentUsecase) Ready(ctx context.Context) error {
	_, err := u.snapshot(ctx)
	return err
}

func (u *InstrumentUsecase) snapshot(ctx context.Context) ([]entity.Instrument, error) {
	if u.cache == nil {
		return u.load(ctx)
	}
	if records, ok := u.cache.Get(); ok {
		return records, nil
	}
	gen := u.cache.Generation()
	records, err := u.load(ctx)
	if err != nil {
		return nil, err
	}
	u.cache.Set(gen, records)
	return records, nil
}

func (u *InstrumentUsecase) load(ctx context.Context) ([]entity.Instrument, error) {
	records, err := u.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return records, nil
}
