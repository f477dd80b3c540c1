package usecase

import (
	"time"

	"universe_backend/internal/feature/instruments/domain/entity"
)

// Clock abstracts the current time for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock reports wall-clock time in a fixed location.
type SystemClock struct {
	Location *time.Location
}

// Now returns the current time in the clock's location (UTC if unset).
func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}

// Today formats the clock's current date as YYYY-MM-DD.
func Today(c Clock) string {
	return c.Now().Format(entity.DateLayout)
}
