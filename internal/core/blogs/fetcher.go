package blogs

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/romiojoseph/at-protocol/internal/atproto/pds"
)

// DefaultPageSize is the listRecords limit used when callers pass 0.
// The PDS caps limit at 100.
const DefaultPageSize = 50

// DefaultPageBudget bounds a fetch-all walk against a misbehaving or
// enormous repository.
const DefaultPageBudget = 100

// Fetcher drives cursor pagination over one author's blog collection.
// It is stateless; cursor ownership stays with the caller (the cache
// session for load-more UIs, the internal loop for FetchAll).
type Fetcher struct {
	store      RecordStore
	collection string
}

// NewFetcher creates a fetcher over the given store and collection.
// An empty collection selects DefaultCollection.
func NewFetcher(store RecordStore, collection string) *Fetcher {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Fetcher{
		store:      store,
		collection: collection,
	}
}

// Collection returns the collection NSID this fetcher reads.
func (f *Fetcher) Collection() string {
	return f.collection
}

// Page is one fetched page plus the cursor to resume from.
type Page struct {
	Records []Record
	Cursor  string
	// Final is true when this page terminates the walk: the store
	// returned no cursor, or the page came back short of the requested
	// limit.
	Final bool
}

// FetchResult is the outcome of a full pagination walk.
type FetchResult struct {
	Records    []Record
	Categories map[string]struct{}
	// Cursor resumes the walk when Complete is false (page budget hit).
	Cursor string
	// Complete is true once the store reported cursor exhaustion.
	Complete bool
}

// FetchPage fetches a single page of the author's collection, newest
// first. Records that fail to decode are skipped with a warning rather
// than aborting the page.
func (f *Fetcher) FetchPage(ctx context.Context, repo string, limit int, cursor string) (*Page, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	resp, err := f.store.ListRecords(ctx, repo, f.collection, limit, cursor)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(resp.Records))
	for _, entry := range resp.Records {
		rec, decodeErr := RecordFromEntry(entry)
		if decodeErr != nil {
			log.Printf("[FETCH] Warning: skipping undecodable record %s: %v", entry.URI, decodeErr)
			continue
		}
		records = append(records, rec)
	}

	// A short page means the collection is exhausted even if the store
	// still handed back a cursor. The exception is an empty-but-cursored page,
	// which can happen when every record on it was just deleted; the walk
	// must keep going until the cursor truly disappears. Uses
	// len(resp.Records), not len(records): decode skips must not fake a
	// short page.
	final := resp.Cursor == ""
	if n := len(resp.Records); n > 0 && n < limit {
		final = true
	}

	return &Page{
		Records: records,
		Cursor:  resp.Cursor,
		Final:   final,
	}, nil
}

// FetchAll walks the author's entire collection page by page until the
// cursor disappears, a short page arrives, or pageBudget pages have been
// fetched. On any page failure the walk's partial result is discarded and
// a *FetchError is returned; whatever a prior successful call already
// merged into a cache stays valid.
//
// An empty page that still carries a cursor does not terminate the walk
// (all records on it may have just been deleted).
func (f *Fetcher) FetchAll(ctx context.Context, repo string, limit, pageBudget int) (*FetchResult, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if pageBudget <= 0 {
		pageBudget = DefaultPageBudget
	}

	result := &FetchResult{
		Categories: make(map[string]struct{}),
	}

	cursor := ""
	for page := 0; page < pageBudget; page++ {
		p, err := f.FetchPage(ctx, repo, limit, cursor)
		if err != nil {
			// The source treats a 400/404 on the very first page as
			// "no posts yet" to smooth over first use. Kept as-is.
			if page == 0 && (errors.Is(err, pds.ErrBadRequest) || errors.Is(err, pds.ErrNotFound)) {
				result.Complete = true
				return result, nil
			}
			return nil, &FetchError{Page: page, Err: err}
		}

		result.Records = append(result.Records, p.Records...)
		for _, rec := range p.Records {
			if cat := strings.TrimSpace(rec.Value.Category); cat != "" {
				result.Categories[cat] = struct{}{}
			}
		}

		if p.Final {
			result.Complete = true
			return result, nil
		}
		cursor = p.Cursor
	}

	// Budget exhausted mid-walk; hand the cursor back for resumption.
	result.Cursor = cursor
	return result, nil
}
