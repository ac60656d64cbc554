package blogs

import (
	"context"
	"sync"
)

// ViewState is the user-adjustable view selection plus load progress for
// one viewing session.
type ViewState struct {
	SearchTerm     string
	CategoryFilter string
	SortOrder      SortOrder
	AllLoaded      bool
	IsLoadingMore  bool
}

// Session owns the cache and view state for one viewed author. Each
// active viewer (CLI invocation, bot chat, web login) holds its own
// Session; there is deliberately no process-wide instance.
//
// Only one fetch walk may be in flight per session: LoadMore and LoadAll
// return immediately without touching the store while another call runs.
type Session struct {
	fetcher    *Fetcher
	cache      *Cache
	pageSize   int
	pageBudget int

	mu       sync.Mutex
	repo     string
	view     ViewState
	inFlight bool
}

// NewSession creates a session over the given fetcher. pageSize and
// pageBudget fall back to the package defaults when zero.
func NewSession(fetcher *Fetcher, pageSize, pageBudget int) *Session {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageBudget <= 0 {
		pageBudget = DefaultPageBudget
	}
	return &Session{
		fetcher:    fetcher,
		cache:      NewCache(),
		pageSize:   pageSize,
		pageBudget: pageBudget,
		view:       ViewState{SortOrder: SortNewest},
	}
}

// Cache exposes the session's cache for write-path updates
// (InsertNewest/Replace/Remove after successful service calls).
func (s *Session) Cache() *Cache {
	return s.cache
}

// Repo returns the DID of the currently viewed author.
func (s *Session) Repo() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo
}

// SetAuthor switches the viewed author. Changing identity resets the
// cache and view state; setting the same author is a no-op.
func (s *Session) SetAuthor(repo string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == repo {
		return
	}
	s.repo = repo
	s.cache.Reset()
	s.view = ViewState{SortOrder: SortNewest}
}

// Reset clears the session back to its initial state (logout).
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.repo = ""
	s.cache.Reset()
	s.view = ViewState{SortOrder: SortNewest}
}

// begin claims the single-flight slot. Returns false when a walk is
// already running.
func (s *Session) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight {
		return false
	}
	s.inFlight = true
	s.view.IsLoadingMore = true
	return true
}

func (s *Session) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inFlight = false
	s.view.IsLoadingMore = false
	s.view.AllLoaded = s.cache.IsComplete()
}

// LoadAll fetches the author's entire collection into the cache. A call
// while another walk is in flight is a no-op returning nil. A failed
// walk leaves previously cached pages intact.
func (s *Session) LoadAll(ctx context.Context) error {
	if !s.begin() {
		return nil
	}
	defer s.finish()

	if s.cache.IsComplete() {
		return nil
	}

	result, err := s.fetcher.FetchAll(ctx, s.Repo(), s.pageSize, s.pageBudget)
	if err != nil {
		return err
	}

	s.cache.Append(result.Records)
	s.cache.MergeCategories(result.Categories)
	if result.Complete {
		s.cache.SetComplete()
	} else {
		s.cache.SetCursor(result.Cursor)
	}

	return nil
}

// LoadMore fetches the next page, resuming from the stored cursor. The
// return reports whether this call performed a fetch: false means either
// another walk was in flight or everything is already loaded.
func (s *Session) LoadMore(ctx context.Context) (bool, error) {
	if !s.begin() {
		return false, nil
	}
	defer s.finish()

	if s.cache.IsComplete() {
		return false, nil
	}

	page, err := s.fetcher.FetchPage(ctx, s.Repo(), s.pageSize, s.cache.Cursor())
	if err != nil {
		return false, &FetchError{Err: err}
	}

	s.cache.Append(page.Records)
	if page.Final {
		s.cache.SetComplete()
	} else {
		s.cache.SetCursor(page.Cursor)
	}

	return true, nil
}

// SetSearch updates the free-text filter.
func (s *Session) SetSearch(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.SearchTerm = term
}

// SetCategory updates the category filter ("" clears it).
func (s *Session) SetCategory(category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.CategoryFilter = category
}

// SetSort updates the sort order.
func (s *Session) SetSort(order SortOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.SortOrder = order
}

// View returns a snapshot of the view state.
func (s *Session) View() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := s.view
	view.AllLoaded = s.cache.IsComplete()
	return view
}

// Visible projects the current cache through the view state.
func (s *Session) Visible() []Record {
	s.mu.Lock()
	view := s.view
	s.mu.Unlock()

	return Project(s.cache.All(), Query{
		Search:   view.SearchTerm,
		Category: view.CategoryFilter,
		Sort:     view.SortOrder,
	})
}
