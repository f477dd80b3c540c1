package entity

// SortBy selects the ordering of a list query.
type SortBy string

const (
	SortNewest SortBy = "newest"
	SortOldest SortBy = "oldest"
	SortName   SortBy = "name"
	// SortPriority puts instruments added today first, then removed ones,
	// then everything else by AddedOn descending.
	SortPriority SortBy = "priority"
)

// ListOptions describes a paginated, searchable, sorted list query.
type ListOptions struct {
	Page   int
	Limit  int
	Search string
	SortBy SortBy
	// Today is the reference date for SortPriority. Filled by the service
	// layer so that the query itself stays a pure function of its inputs.
	Today string
}

// Pagination reports where a page sits within the filtered result set.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

// Page is one slice of a list query together with its pagination metadata.
type Page struct {
	Items      []Instrument
	Pagination Pagination
}

// Changes lists the instruments added on a given date and those currently removed.
type Changes struct {
	Date    string
	Added   []Instrument
	Removed []Instrument
}
