package blogs

import (
	"sort"
	"strings"
	"time"
)

// SortOrder selects the display ordering of a projection.
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
)

// Query is the view selection applied to a cache snapshot.
type Query struct {
	// Search is a free-text term matched case-insensitively as a
	// substring of title, shortDescription, content, slug, category or
	// any tag. Empty keeps all records.
	Search string
	// Category filters on exact (case-sensitive) category equality.
	// The CategoryRecommended sentinel selects recommended records
	// instead. Empty keeps all records.
	Category string
	// Sort defaults to SortNewest.
	Sort SortOrder
}

// Project derives the display sequence for a query from a cache
// snapshot. Pure: the input slice is never reordered or mutated, and
// identical inputs yield identical output.
//
// Records with a missing or unparseable publishedAt always sort after
// all dated records, regardless of sort order; ties keep their input
// order (stable sort).
func Project(records []Record, q Query) []Record {
	type keyed struct {
		rec   Record
		t     time.Time
		valid bool
	}

	kept := make([]keyed, 0, len(records))
	for _, rec := range records {
		if !matchesCategory(rec, q.Category) {
			continue
		}
		if !matchesSearch(rec, q.Search) {
			continue
		}
		t, ok := publishedTime(rec.Value)
		kept = append(kept, keyed{rec: rec, t: t, valid: ok})
	}

	oldest := q.Sort == SortOldest
	sort.SliceStable(kept, func(i, j int) bool {
		ki, kj := kept[i], kept[j]
		switch {
		case ki.valid && !kj.valid:
			return true
		case !ki.valid:
			return false
		case oldest:
			return ki.t.Before(kj.t)
		default:
			return kj.t.Before(ki.t)
		}
	})

	out := make([]Record, len(kept))
	for i, k := range kept {
		out[i] = k.rec
	}
	return out
}

func matchesCategory(rec Record, category string) bool {
	switch category {
	case "":
		return true
	case CategoryRecommended:
		return rec.Value.Recommended
	default:
		return rec.Value.Category == category
	}
}

func matchesSearch(rec Record, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}

	v := rec.Value
	for _, field := range []string{v.Title, v.ShortDescription, v.Content, v.Slug, v.Category} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	for _, tag := range v.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}
