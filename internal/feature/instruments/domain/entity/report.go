package entity

import "time"

// ImportReport summarizes one snapshot import.
type ImportReport struct {
	RunID      string
	ImportedAt time.Time
	DryRun     bool
	Total      int          // number of records in the stored snapshot
	Added      []Instrument // identifiers seen for the first time
	Removed    []Instrument // identifiers that disappeared in this import
	Reinstated []Instrument // previously removed identifiers listed again
	Duplicates []string     // identifiers listed more than once in the snapshot

	// EmptySnapshot is set when the input held no rows while records were stored,
	// so every stored record was marked removed.
	EmptySnapshot bool
}
