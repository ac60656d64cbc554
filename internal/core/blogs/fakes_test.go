package blogs

import (
	"context"
	"fmt"
	"sync"

	"github.com/romiojoseph/at-protocol/internal/atproto/pds"
	"github.com/romiojoseph/at-protocol/internal/atproto/profile"
)

// fakePage scripts one listRecords response (or failure).
type fakePage struct {
	records []pds.RecordEntry
	cursor  string
	err     error
}

// fakeStore implements RecordStore with scripted list pages and recorded
// writes.
type fakeStore struct {
	mu        sync.Mutex
	did       string
	pages     []fakePage
	listCalls int
	// gate, when non-nil, blocks ListRecords until released; used to
	// hold a fetch walk in flight.
	gate chan struct{}

	createErr error
	putErr    error
	deleteErr error
	created   []string // rkeys
	put       []string
	deleted   []string
	nextCID   int
}

func (f *fakeStore) ListRecords(ctx context.Context, repo, collection string, limit int, cursor string) (*pds.ListRecordsResponse, error) {
	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listCalls >= len(f.pages) {
		return &pds.ListRecordsResponse{}, nil
	}
	page := f.pages[f.listCalls]
	f.listCalls++

	if page.err != nil {
		return nil, page.err
	}
	return &pds.ListRecordsResponse{
		Records: page.records,
		Cursor:  page.cursor,
	}, nil
}

func (f *fakeStore) GetRecord(ctx context.Context, repo, collection, rkey string) (*pds.RecordResponse, error) {
	return nil, pds.ErrNotFound
}

func (f *fakeStore) CreateRecord(ctx context.Context, collection, rkey string, record any) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return "", "", f.createErr
	}
	f.created = append(f.created, rkey)
	f.nextCID++
	return fmt.Sprintf("at://%s/%s/%s", f.did, collection, rkey), fmt.Sprintf("bafy%d", f.nextCID), nil
}

func (f *fakeStore) PutRecord(ctx context.Context, collection, rkey string, record any, swapCID string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.putErr != nil {
		return "", "", f.putErr
	}
	f.put = append(f.put, rkey)
	f.nextCID++
	return fmt.Sprintf("at://%s/%s/%s", f.did, collection, rkey), fmt.Sprintf("bafy%d", f.nextCID), nil
}

func (f *fakeStore) DeleteRecord(ctx context.Context, collection, rkey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, rkey)
	return nil
}

func (f *fakeStore) DID() string { return f.did }

// fakeProfiles implements profile.Lookup with a fixed directory.
type fakeProfiles struct {
	profiles map[string]*profile.Profile
	err      error
	calls    int
}

func (f *fakeProfiles) GetProfile(ctx context.Context, actor string) (*profile.Profile, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if prof, ok := f.profiles[actor]; ok {
		out := *prof
		return &out, nil
	}
	return nil, &profile.ErrProfileNotFound{Actor: actor}
}

// entry builds a list entry with the given uri suffix and value fields.
func entry(rkey, title, category, publishedAt string) pds.RecordEntry {
	return pds.RecordEntry{
		URI: "at://did:plc:author/" + DefaultCollection + "/" + rkey,
		CID: "cid-" + rkey,
		Value: map[string]any{
			"title":            title,
			"shortDescription": "about " + title,
			"authorHandle":     "alice.test",
			"authorDid":        "did:plc:author",
			"slug":             rkey,
			"category":         category,
			"content":          "content of " + title,
			"publishedAt":      publishedAt,
		},
	}
}

// rec builds a cache-ready Record.
func rec(rkey, title, category, publishedAt string) Record {
	return Record{
		URI: "at://did:plc:author/" + DefaultCollection + "/" + rkey,
		CID: "cid-" + rkey,
		Value: Value{
			Title:            title,
			ShortDescription: "about " + title,
			AuthorHandle:     "alice.test",
			AuthorDID:        "did:plc:author",
			Slug:             rkey,
			Category:         category,
			Content:          "content of " + title,
			PublishedAt:      publishedAt,
		},
	}
}
