package blogs

import (
	"sort"
	"strings"
	"sync"
)

// Cache is an order-preserving, URI-keyed collection of fetched records
// plus the distinct categories observed so far. Internal order is
// insertion order; display order is always recomputed by Project, never
// read off the cache implicitly.
//
// A Cache is safe for use from multiple goroutines (the webhook bot and
// web front end mutate per-session caches from handler goroutines).
type Cache struct {
	mu         sync.Mutex
	records    []Record
	index      map[string]int // uri -> position in records
	categories map[string]struct{}
	complete   bool
	cursor     string
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	c := &Cache{}
	c.resetLocked()
	return c
}

func (c *Cache) resetLocked() {
	c.records = nil
	c.index = make(map[string]int)
	c.categories = make(map[string]struct{})
	c.complete = false
	c.cursor = ""
}

// Reset clears records, categories, cursor and the completion flag.
// Invoked on logout or when the viewed author changes.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// Append merges records by URI, skipping any URI already present, so
// overlapping or repeated pages are idempotent.
func (c *Cache) Append(records []Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, rec := range records {
		if _, exists := c.index[rec.URI]; exists {
			continue
		}
		c.index[rec.URI] = len(c.records)
		c.records = append(c.records, rec)
		c.noteCategoryLocked(rec)
	}
}

// Replace swaps the entry for rec.URI in place, preserving its position.
// An absent URI behaves as an insert.
func (c *Cache) Replace(rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pos, exists := c.index[rec.URI]; exists {
		c.records[pos] = rec
	} else {
		c.index[rec.URI] = len(c.records)
		c.records = append(c.records, rec)
	}
	c.noteCategoryLocked(rec)
}

// InsertNewest inserts a just-created record at the front so a
// newest-first view shows it without a re-fetch. A duplicate URI is
// ignored.
func (c *Cache) InsertNewest(rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.index[rec.URI]; exists {
		return
	}

	c.records = append([]Record{rec}, c.records...)
	c.index = make(map[string]int, len(c.records))
	for i, r := range c.records {
		c.index[r.URI] = i
	}
	c.noteCategoryLocked(rec)
}

// Remove drops the entry for uri. Removing an absent URI is a no-op.
func (c *Cache) Remove(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pos, exists := c.index[uri]
	if !exists {
		return
	}

	c.records = append(c.records[:pos:pos], c.records[pos+1:]...)
	delete(c.index, uri)
	for i := pos; i < len(c.records); i++ {
		c.index[c.records[i].URI] = i
	}
	// The category set never shrinks within a session (only Reset
	// clears it), so no category bookkeeping here.
}

// Get returns the cached record for uri.
func (c *Cache) Get(uri string) (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pos, exists := c.index[uri]
	if !exists {
		return Record{}, false
	}
	return c.records[pos], true
}

// All returns a copy of the cached records in insertion order.
func (c *Cache) All() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Categories returns the distinct trimmed category values observed so
// far, sorted, with the synthetic Recommended pseudo-category first when
// any cached record is flagged recommended.
func (c *Cache) Categories() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.categories))
	for cat := range c.categories {
		names = append(names, cat)
	}
	sort.Strings(names)

	for _, rec := range c.records {
		if rec.Value.Recommended {
			return append([]string{CategoryRecommended}, names...)
		}
	}
	return names
}

// MergeCategories folds category labels from a fetch walk into the set.
func (c *Cache) MergeCategories(categories map[string]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for cat := range categories {
		if cat = strings.TrimSpace(cat); cat != "" {
			c.categories[cat] = struct{}{}
		}
	}
}

// SetComplete records that a fetch walk reported cursor exhaustion.
func (c *Cache) SetComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.complete = true
	c.cursor = ""
}

// IsComplete reports whether the full collection has been fetched during
// this cache's lifetime.
func (c *Cache) IsComplete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.complete
}

// SetCursor stores the resumption cursor for the next load-more call.
func (c *Cache) SetCursor(cursor string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor = cursor
}

// Cursor returns the stored resumption cursor.
func (c *Cache) Cursor() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

func (c *Cache) noteCategoryLocked(rec Record) {
	if cat := strings.TrimSpace(rec.Value.Category); cat != "" {
		c.categories[cat] = struct{}{}
	}
}
