// Package entity defines the display payloads served by the widget endpoints.
package entity

import "time"

// Widget kinds. A payload key is "<kind>:<param>", e.g. "index:1D" or "social:finanzen".
const (
	KindIndex  = "index"
	KindSocial = "social"
)

// Timespans supported by the index series widget.
var Timespans = []string{"1D", "5D", "1M", "6M", "YTD", "2Y", "7Y"}

// DefaultTimespan is used when a request does not name one.
const DefaultTimespan = "1D"

// Payload is a display-ready widget response. Fallback is true when the body
// was generated locally because the upstream could not be reached.
type Payload struct {
	Key       string    `json:"key"`
	Source    string    `json:"source"`
	Fallback  bool      `json:"fallback"`
	FetchedAt time.Time `json:"fetchedAt"`
	Body      any       `json:"body"`
}

// IndexSeries is a market index price series for one timespan.
type IndexSeries struct {
	Symbol        string        `json:"symbol"`
	Timespan      string        `json:"timespan"`
	Price         float64       `json:"price"`
	Change        float64       `json:"change"`
	ChangePercent float64       `json:"changePercent"`
	History       []SeriesPoint `json:"history"`
}

// DateLayoutDay is the calendar-date format of SeriesPoint.Date.
const DateLayoutDay = "2006-01-02"

// SeriesPoint is one close in an IndexSeries, oldest first.
type SeriesPoint struct {
	Time  string  `json:"time"` // RFC 3339, UTC
	Date  string  `json:"date"` // YYYY-MM-DD
	Value float64 `json:"value"`
}

// TopPost is the first non-pinned post of a subreddit's hot listing.
type TopPost struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	Score     int    `json:"score"`
	URL       string `json:"url"`
	Created   int64  `json:"created"` // unix milliseconds
	Permalink string `json:"permalink"`
}
