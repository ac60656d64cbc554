package blogs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romiojoseph/at-protocol/internal/atproto/pds"
	"github.com/romiojoseph/at-protocol/internal/atproto/profile"
)

func newTestService(store *fakeStore) *Service {
	profiles := &fakeProfiles{profiles: map[string]*profile.Profile{
		"alice.test": {DID: "did:plc:author", Handle: "alice.test", DisplayName: "Alice"},
	}}
	return NewService(store, profiles, nil, "")
}

func validCreateRequest() CreateRequest {
	return CreateRequest{
		Title:            "My First Post",
		ShortDescription: "A short description",
		AuthorHandle:     "alice.test",
		Slug:             "  My First Post!! ",
		Category:         "tech",
		Content:          "Hello, world.",
		PublishedAt:      "2024-06-01T12:00:00Z",
		Tags:             []string{"go", " atproto ", ""},
	}
}

func TestCreate(t *testing.T) {
	store := &fakeStore{did: "did:plc:author"}
	svc := newTestService(store)

	created, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, "at://did:plc:author/"+DefaultCollection+"/my-first-post", created.URI)
	assert.NotEmpty(t, created.CID)

	v := created.Value
	assert.Equal(t, DefaultCollection, v.Type)
	assert.Equal(t, "my-first-post", v.Slug, "slug is sanitized and used as the record key")
	assert.Equal(t, "did:plc:author", v.AuthorDID, "derived from profile lookup")
	assert.Equal(t, "Alice", v.AuthorDisplayName)
	assert.Equal(t, "2024-06-01T12:00:00Z", v.PublishedAt)
	assert.Equal(t, []string{"go", "atproto"}, v.Tags, "tags are trimmed, empties dropped")
	assert.Empty(t, v.UpdatedAt, "updatedAt is absent on creation")
	assert.Equal(t, []string{"my-first-post"}, store.created)
}

func TestCreate_ValidationBeforeNetwork(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateRequest)
		field  string
	}{
		{"empty title", func(r *CreateRequest) { r.Title = " " }, "title"},
		{"empty short description", func(r *CreateRequest) { r.ShortDescription = "" }, "shortDescription"},
		{"overlong short description", func(r *CreateRequest) {
			for len(r.ShortDescription) <= MaxShortDescriptionLen {
				r.ShortDescription += "xxxxxxxxxx"
			}
		}, "shortDescription"},
		{"empty handle", func(r *CreateRequest) { r.AuthorHandle = "" }, "authorHandle"},
		{"unsalvageable slug", func(r *CreateRequest) { r.Slug = "!!!" }, "slug"},
		{"empty category", func(r *CreateRequest) { r.Category = "" }, "category"},
		{"category with comma", func(r *CreateRequest) { r.Category = "a,b" }, "category"},
		{"reserved category", func(r *CreateRequest) { r.Category = CategoryRecommended }, "category"},
		{"empty content", func(r *CreateRequest) { r.Content = "" }, "content"},
		{"bad published date", func(r *CreateRequest) { r.PublishedAt = "yesterday" }, "publishedAt"},
		{"bad comments link", func(r *CreateRequest) { r.BskyCommentsPostURI = "gopher://x" }, "bskyCommentsPostUri"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{did: "did:plc:author"}
			svc := newTestService(store)

			req := validCreateRequest()
			tt.mutate(&req)

			_, err := svc.Create(context.Background(), req)

			var valErr *ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Equal(t, tt.field, valErr.Field)
			assert.Empty(t, store.created, "validation failures must not reach the store")
		})
	}
}

func TestCreate_UnknownAuthorHandle(t *testing.T) {
	store := &fakeStore{did: "did:plc:author"}
	svc := newTestService(store)

	req := validCreateRequest()
	req.AuthorHandle = "ghost.test"

	_, err := svc.Create(context.Background(), req)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "authorHandle", valErr.Field)
}

func TestCreate_DuplicateSlug(t *testing.T) {
	store := &fakeStore{
		did:       "did:plc:author",
		createErr: fmt.Errorf("createRecord: %w: record exists", pds.ErrConflict),
	}
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), validCreateRequest())
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestCreate_RequiresSession(t *testing.T) {
	svc := newTestService(&fakeStore{})
	_, err := svc.Create(context.Background(), validCreateRequest())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func currentRecord() Record {
	r := rec("my-first-post", "My First Post", "tech", "2024-06-01T12:00:00Z")
	r.Value.CoverImage = "https://example.com/cover.png"
	return r
}

func TestUpdate_FieldChanges(t *testing.T) {
	store := &fakeStore{did: "did:plc:author"}
	svc := newTestService(store)

	before := time.Now().UTC().Add(-time.Second)
	updated, err := svc.Update(context.Background(), currentRecord(), UpdateRequest{
		Title:      Set("New Title"),
		CoverImage: Clear[string](),
		Tags:       Set([]string{"updated"}),
	})
	require.NoError(t, err)

	v := updated.Value
	assert.Equal(t, "New Title", v.Title)
	assert.Empty(t, v.CoverImage, "cleared optional field is structurally absent")
	assert.Equal(t, []string{"updated"}, v.Tags)
	assert.Equal(t, "tech", v.Category, "unchanged fields keep their value")

	// updatedAt is set to now as a business rule
	require.NotEmpty(t, v.UpdatedAt)
	parsed, err := ParseDate(v.UpdatedAt)
	require.NoError(t, err)
	assert.True(t, parsed.After(before))

	assert.Equal(t, []string{"my-first-post"}, store.put)
	assert.Equal(t, updated.URI, currentRecord().URI, "update never changes the URI")
}

func TestUpdate_ExplicitUpdatedAt(t *testing.T) {
	store := &fakeStore{did: "did:plc:author"}
	svc := newTestService(store)

	updated, err := svc.Update(context.Background(), currentRecord(), UpdateRequest{
		Content:   Set("revised"),
		UpdatedAt: Set("2024-07-01T00:00:00Z"),
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-07-01T00:00:00Z", updated.Value.UpdatedAt)
}

func TestUpdate_RequiredFieldCannotBeCleared(t *testing.T) {
	store := &fakeStore{did: "did:plc:author"}
	svc := newTestService(store)

	_, err := svc.Update(context.Background(), currentRecord(), UpdateRequest{
		Title: Clear[string](),
	})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "title", valErr.Field)
	assert.Empty(t, store.put)
}

func TestUpdate_FailedWriteReportsError(t *testing.T) {
	store := &fakeStore{did: "did:plc:author", putErr: pds.ErrRateLimited}
	svc := newTestService(store)

	_, err := svc.Update(context.Background(), currentRecord(), UpdateRequest{
		Content: Set("revised"),
	})
	assert.ErrorIs(t, err, pds.ErrRateLimited)
}

func TestDelete(t *testing.T) {
	store := &fakeStore{did: "did:plc:author"}
	svc := newTestService(store)

	err := svc.Delete(context.Background(), "at://did:plc:author/"+DefaultCollection+"/my-first-post")
	require.NoError(t, err)
	assert.Equal(t, []string{"my-first-post"}, store.deleted)
}

func TestDelete_MalformedURI(t *testing.T) {
	store := &fakeStore{did: "did:plc:author"}
	svc := newTestService(store)

	err := svc.Delete(context.Background(), "nonsense")
	assert.True(t, IsValidationError(err))
	assert.Empty(t, store.deleted)
}

func TestCreateThenDeleteLeavesCacheClean(t *testing.T) {
	// Scenario: create then immediate delete before any re-fetch.
	store := &fakeStore{did: "did:plc:author"}
	svc := newTestService(store)
	cache := NewCache()

	created, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	cache.InsertNewest(*created)

	require.NoError(t, svc.Delete(context.Background(), created.URI))
	cache.Remove(created.URI)

	assert.Equal(t, 0, cache.Len())
}
