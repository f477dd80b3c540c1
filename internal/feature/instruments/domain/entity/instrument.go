// Package entity defines the domain models for the instruments feature.
package entity

// DateLayout is the calendar-date format used for AddedOn and import dates.
const DateLayout = "2006-01-02"

// Instrument represents one tradable instrument tracked across snapshot imports.
// ID is assigned once when the identifier is first observed and is never
// reassigned. AddedOn keeps the date of the first snapshot that listed it.
// Removed flips to true once a later snapshot no longer lists the identifier;
// the record itself is retained.
type Instrument struct {
	ID         uint   `json:"id"`
	Identifier string `json:"identifier"` // ISIN or similar external code
	Name       string `json:"name"`
	AddedOn    string `json:"addedOn"` // YYYY-MM-DD
	Removed    bool   `json:"removed"`
}

// ParsedRow is a single normalized row of an imported snapshot.
type ParsedRow struct {
	Name       string
	Identifier string
}

// Format identifies the encoding of a raw snapshot import.
type Format string

const (
	// FormatAuto lets the parser detect the encoding from the content.
	FormatAuto Format = ""
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	// FormatText is a plain-text universe listing with one "ISIN Name" entry per line.
	FormatText Format = "text"
)
