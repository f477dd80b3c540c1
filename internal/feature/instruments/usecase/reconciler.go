package usecase

import (
	"fmt"
	"log/slog"
	"strings"

	"universe_backend/internal/feature/instruments/domain"
	"universe_backend/internal/feature/instruments/domain/entity"
)

// DuplicatePolicy controls how an identifier listed more than once in one
// snapshot is handled.
type DuplicatePolicy string

const (
	// DuplicatesKeep keeps every occurrence as its own record with its own id.
	DuplicatesKeep DuplicatePolicy = "keep"
	// DuplicatesMerge keeps only the first occurrence.
	DuplicatesMerge DuplicatePolicy = "merge"
	// DuplicatesReject fails the reconciliation with domain.ErrDuplicateIdentifier.
	DuplicatesReject DuplicatePolicy = "reject"
)

// ParseDuplicatePolicy converts a configuration value into a DuplicatePolicy.
// An empty value selects DuplicatesKeep.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return DuplicatesKeep, nil
	case DuplicatesKeep, DuplicatesMerge, DuplicatesReject:
		return p, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy %q", s)
	}
}

// Delta describes what changed between the previous records and a new snapshot.
type Delta struct {
	Added      []entity.Instrument
	Removed    []entity.Instrument
	Reinstated []entity.Instrument
	Duplicates []string
}

// Reconciler merges a freshly parsed snapshot into the previously stored records.
type Reconciler struct {
	policy DuplicatePolicy
}

// NewReconciler creates a Reconciler with the given duplicate policy.
func NewReconciler(policy DuplicatePolicy) *Reconciler {
	if policy == "" {
		policy = DuplicatesKeep
	}
	return &Reconciler{policy: policy}
}

// Reconcile returns the records for the new snapshot followed by the records
// that disappeared from it.
//
// The k-th occurrence of an identifier in rows inherits the id and AddedOn of
// the k-th previous record with that identifier, so ids stay stable across
// imports. Occurrences without a previous counterpart get ids above the
// highest previous id, in input order. Previous records not matched by any row
// are kept with Removed set; nothing is ever dropped.
func (r *Reconciler) Reconcile(rows []entity.ParsedRow, previous []entity.Instrument, today string) ([]entity.Instrument, Delta, error) {
	var delta Delta

	prevByIdentifier := make(map[string][]entity.Instrument, len(previous))
	var maxID uint
	for _, p := range previous {
		prevByIdentifier[p.Identifier] = append(prevByIdentifier[p.Identifier], p)
		if p.ID > maxID {
			maxID = p.ID
		}
	}

	nextID := maxID
	seen := make(map[string]int, len(rows))
	current := make([]entity.Instrument, 0, len(rows)+len(previous))

	for _, row := range rows {
		n := seen[row.Identifier]
		if n == 1 {
			delta.Duplicates = append(delta.Duplicates, row.Identifier)
		}
		if n > 0 {
			switch r.policy {
			case DuplicatesReject:
				return nil, Delta{}, fmt.Errorf("%w: %q", domain.ErrDuplicateIdentifier, row.Identifier)
			case DuplicatesMerge:
				seen[row.Identifier]++
				continue
			}
		}
		seen[row.Identifier]++

		rec := entity.Instrument{
			Identifier: row.Identifier,
			Name:       row.Name,
			AddedOn:    today,
		}
		prevs := prevByIdentifier[row.Identifier]
		switch {
		case n < len(prevs):
			p := prevs[n]
			rec.ID = p.ID
			rec.AddedOn = p.AddedOn
			if p.Removed {
				delta.Reinstated = append(delta.Reinstated, rec)
			}
		default:
			nextID++
			rec.ID = nextID
			if len(prevs) > 0 {
				rec.AddedOn = prevs[0].AddedOn
			} else if n == 0 {
				delta.Added = append(delta.Added, rec)
			}
		}
		current = append(current, rec)
	}

	matched := make(map[string]int, len(seen))
	for id, n := range seen {
		if r.policy == DuplicatesMerge && n > 1 {
			n = 1
		}
		matched[id] = n
	}

	occurrence := make(map[string]int, len(prevByIdentifier))
	for _, p := range previous {
		k := occurrence[p.Identifier]
		occurrence[p.Identifier]++
		if k < matched[p.Identifier] {
			continue
		}
		if !p.Removed {
			p.Removed = true
			delta.Removed = append(delta.Removed, p)
		}
		current = append(current, p)
	}

	if len(delta.Duplicates) > 0 {
		slog.Warn("snapshot lists duplicate identifiers",
			"count", len(delta.Duplicates),
			"policy", string(r.policy),
			"identifiers", delta.Duplicates)
	}

	return current, delta, nil
}
