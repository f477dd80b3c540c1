// Package domain defines domain-level errors for the instruments feature.
package domain

import "errors"

// Domain errors for instrument imports and queries.
var (
	// ErrMalformedInput indicates that an import could not be decoded as tabular data.
	// The previous snapshot stays authoritative when this is returned.
	ErrMalformedInput = errors.New("malformed input")

	// ErrInstrumentNotFound indicates that no instrument matches the requested id.
	ErrInstrumentNotFound = errors.New("instrument not found")

	// ErrDuplicateIdentifier is returned by the reject duplicate policy when a
	// snapshot lists the same identifier more than once.
	ErrDuplicateIdentifier = errors.New("duplicate identifier in snapshot")

	// ErrInvalidSort indicates an unknown sortBy value.
	ErrInvalidSort = errors.New("invalid sort order")

	// ErrInvalidDate indicates a date that is not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("invalid date")
)
