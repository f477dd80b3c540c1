package usecase

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"universe_backend/internal/feature/instruments/domain"
	"universe_backend/internal/feature/instruments/domain/entity"
)

const (
	// DefaultPage is the page returned when none is requested.
	DefaultPage = 1
	// DefaultLimit is the page size used by the card grid.
	DefaultLimit = 24
	// MaxLimit caps the page size of a single query.
	MaxLimit = 200
)

// nameCollation orders names the way the German-language site presents them.
var nameCollation = language.German

// ParseSortBy converts a query value into an entity.SortBy.
// An empty value selects entity.SortNewest.
func ParseSortBy(s string) (entity.SortBy, error) {
	switch sb := entity.SortBy(strings.ToLower(strings.TrimSpace(s))); sb {
	case "":
		return entity.SortNewest, nil
	case entity.SortNewest, entity.SortOldest, entity.SortName, entity.SortPriority:
		return sb, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidSort, s)
	}
}

// Query filters, sorts and paginates records. It does not modify records and
// depends on nothing but its arguments.
func Query(records []entity.Instrument, opts entity.ListOptions) (entity.Page, error) {
	sortBy, err := ParseSortBy(string(opts.SortBy))
	if err != nil {
		return entity.Page{}, err
	}
	page := opts.Page
	if page < 1 {
		page = DefaultPage
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	filtered := filter(records, opts.Search)
	sortRecords(filtered, sortBy, opts.Today)

	total := len(filtered)
	totalPages := (total + limit - 1) / limit
	items := []entity.Instrument{}
	// page comes from the query string unbounded; compare page numbers before
	// multiplying so (page-1)*limit cannot overflow.
	if page <= totalPages {
		start := (page - 1) * limit
		items = filtered[start:min(start+limit, total)]
	}

	return entity.Page{
		Items: items,
		Pagination: entity.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
			HasMore:    page < totalPages,
		},
	}, nil
}

// filter returns a copy of the records whose name or identifier contains search,
// ignoring case.
func filter(records []entity.Instrument, search string) []entity.Instrument {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]entity.Instrument, 0, len(records))
	for _, r := range records {
		if needle == "" ||
			strings.Contains(strings.ToLower(r.Name), needle) ||
			strings.Contains(strings.ToLower(r.Identifier), needle) {
			out = append(out, r)
		}
	}
	return out
}

// sortRecords sorts in place. Every ordering is stable, so equal keys keep
// their input order. AddedOn is YYYY-MM-DD and therefore compares as a string.
func sortRecords(records []entity.Instrument, sortBy entity.SortBy, today string) {
	switch sortBy {
	case entity.SortOldest:
		slices.SortStableFunc(records, func(a, b entity.Instrument) int {
			return cmp.Compare(a.AddedOn, b.AddedOn)
		})
	case entity.SortName:
		col := collate.New(nameCollation)
		slices.SortStableFunc(records, func(a, b entity.Instrument) int {
			return col.CompareString(a.Name, b.Name)
		})
	case entity.SortPriority:
		slices.SortStableFunc(records, func(a, b entity.Instrument) int {
			ra, rb := priorityRank(a, today), priorityRank(b, today)
			if ra != rb {
				return cmp.Compare(ra, rb)
			}
			if ra == 2 {
				return cmp.Compare(b.AddedOn, a.AddedOn)
			}
			return 0
		})
	default:
		slices.SortStableFunc(records, func(a, b entity.Instrument) int {
			return cmp.Compare(b.AddedOn, a.AddedOn)
		})
	}
}

func priorityRank(r entity.Instrument, today string) int {
	switch {
	case today != "" && r.AddedOn == today:
		return 0
	case r.Removed:
		return 1
	default:
		return 2
	}
}
