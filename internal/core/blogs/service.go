package blogs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/romiojoseph/at-protocol/internal/atproto/aturi"
	"github.com/romiojoseph/at-protocol/internal/atproto/identity"
	"github.com/romiojoseph/at-protocol/internal/atproto/pds"
	"github.com/romiojoseph/at-protocol/internal/atproto/profile"
)

// Service implements the write path: create, update (replace-by-key) and
// delete of blog post records. Validation happens before any network
// call; a failed remote write leaves no local trace, so callers only
// touch their cache after a method returns nil error.
type Service struct {
	store      RecordStore
	profiles   profile.Lookup
	resolver   identity.Resolver
	collection string
}

// NewService creates the blog write service. resolver may be nil when no
// comment-thread URLs need canonicalizing (e.g. the bot's read-mostly
// flows); an empty collection selects DefaultCollection.
func NewService(store RecordStore, profiles profile.Lookup, resolver identity.Resolver, collection string) *Service {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Service{
		store:      store,
		profiles:   profiles,
		resolver:   resolver,
		collection: collection,
	}
}

// Collection returns the collection NSID this service writes to.
func (s *Service) Collection() string {
	return s.collection
}

// CreateRequest carries the user-entered fields of a new post. The
// derived author fields are filled by the service from a profile lookup,
// never accepted from the caller.
type CreateRequest struct {
	Title            string
	ShortDescription string
	AuthorHandle     string
	Slug             string
	Category         string
	Content          string
	// PublishedAt is parsed with ParseDate; empty means "now".
	PublishedAt string

	CoverImage string
	Tags       []string
	// BskyCommentsPostURI may be an at:// URI or a bsky.app post URL;
	// it is canonicalized before storage.
	BskyCommentsPostURI string
	Recommended         bool
}

// Create validates, resolves the author, writes the record and returns
// it. The slug doubles as the record key, so a duplicate slug surfaces
// as ErrAlreadyExists.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Record, error) {
	if s.store.DID() == "" {
		return nil, ErrNotAuthenticated
	}

	req.Slug = FinalizeSlug(req.Slug)

	value := Value{
		Type:             s.collection,
		Title:            strings.TrimSpace(req.Title),
		ShortDescription: strings.TrimSpace(req.ShortDescription),
		AuthorHandle:     strings.TrimSpace(strings.TrimPrefix(req.AuthorHandle, "@")),
		Slug:             req.Slug,
		Category:         strings.TrimSpace(req.Category),
		Content:          req.Content,
		CoverImage:       strings.TrimSpace(req.CoverImage),
		Tags:             cleanTags(req.Tags),
		Recommended:      req.Recommended,
	}

	publishedAt := time.Now().UTC()
	if req.PublishedAt != "" {
		t, err := ParseDate(req.PublishedAt)
		if err != nil {
			return nil, NewValidationError("publishedAt", err.Error())
		}
		publishedAt = t.UTC()
	}
	value.PublishedAt = publishedAt.Format(time.RFC3339)

	if err := validateValue(value); err != nil {
		return nil, err
	}

	if req.BskyCommentsPostURI != "" {
		canonical, err := aturi.Canonicalize(ctx, req.BskyCommentsPostURI, s.resolver)
		if err != nil {
			return nil, NewValidationError("bskyCommentsPostUri", err.Error())
		}
		value.BskyCommentsPostURI = canonical
	}

	prof, err := s.lookupAuthor(ctx, value.AuthorHandle)
	if err != nil {
		return nil, err
	}
	value.AuthorDID = prof.DID
	value.AuthorDisplayName = prof.DisplayName

	uri, cid, err := s.store.CreateRecord(ctx, s.collection, value.Slug, value)
	if err != nil {
		if errors.Is(err, pds.ErrConflict) {
			return nil, fmt.Errorf("%w: slug %q", ErrAlreadyExists, value.Slug)
		}
		return nil, fmt.Errorf("create post: %w", err)
	}

	return &Record{URI: uri, CID: cid, Value: value}, nil
}

// UpdateRequest carries per-field edit intent for an existing post.
// Required fields reject Clear at validation time.
type UpdateRequest struct {
	Title            FieldChange[string]
	ShortDescription FieldChange[string]
	AuthorHandle     FieldChange[string]
	Slug             FieldChange[string]
	Category         FieldChange[string]
	Content          FieldChange[string]
	PublishedAt      FieldChange[string]

	CoverImage          FieldChange[string]
	Tags                FieldChange[[]string]
	BskyCommentsPostURI FieldChange[string]
	Recommended         FieldChange[bool]

	// UpdatedAt is set to "now" on every edit unless explicitly
	// supplied. This is a business rule, not a parse fallback.
	UpdatedAt FieldChange[string]
}

// Update applies req to current and replaces the stored record. The
// record key (and therefore the URI) never changes on update; editing
// the slug field only changes the document. Last write wins; no swap CID
// is sent.
func (s *Service) Update(ctx context.Context, current Record, req UpdateRequest) (*Record, error) {
	if s.store.DID() == "" {
		return nil, ErrNotAuthenticated
	}

	rkey := aturi.RKey(current.URI)
	if rkey == "" {
		return nil, NewValidationError("uri", fmt.Sprintf("malformed record URI %q", current.URI))
	}

	for field, change := range map[string]FieldChange[string]{
		"title":            req.Title,
		"shortDescription": req.ShortDescription,
		"authorHandle":     req.AuthorHandle,
		"slug":             req.Slug,
		"category":         req.Category,
		"content":          req.Content,
		"publishedAt":      req.PublishedAt,
	} {
		if change.IsClear() {
			return nil, NewValidationError(field, "required field cannot be cleared")
		}
	}

	value := current.Value
	value.Type = s.collection
	value.Title = strings.TrimSpace(req.Title.Apply(value.Title))
	value.ShortDescription = strings.TrimSpace(req.ShortDescription.Apply(value.ShortDescription))
	value.Category = strings.TrimSpace(req.Category.Apply(value.Category))
	value.Content = req.Content.Apply(value.Content)
	value.CoverImage = strings.TrimSpace(req.CoverImage.Apply(value.CoverImage))
	value.Tags = cleanTags(req.Tags.Apply(value.Tags))
	value.Recommended = req.Recommended.Apply(value.Recommended)

	if slug, ok := req.Slug.Get(); ok {
		value.Slug = FinalizeSlug(slug)
	}

	if published, ok := req.PublishedAt.Get(); ok {
		t, err := ParseDate(published)
		if err != nil {
			return nil, NewValidationError("publishedAt", err.Error())
		}
		value.PublishedAt = t.UTC().Format(time.RFC3339)
	}

	if updated, ok := req.UpdatedAt.Get(); ok {
		t, err := ParseDate(updated)
		if err != nil {
			return nil, NewValidationError("updatedAt", err.Error())
		}
		value.UpdatedAt = t.UTC().Format(time.RFC3339)
	} else {
		value.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	if err := validateValue(value); err != nil {
		return nil, err
	}

	switch {
	case req.BskyCommentsPostURI.IsClear():
		value.BskyCommentsPostURI = ""
	default:
		if commentsURI, ok := req.BskyCommentsPostURI.Get(); ok {
			canonical, err := aturi.Canonicalize(ctx, commentsURI, s.resolver)
			if err != nil {
				return nil, NewValidationError("bskyCommentsPostUri", err.Error())
			}
			value.BskyCommentsPostURI = canonical
		}
	}

	if handle, ok := req.AuthorHandle.Get(); ok {
		handle = strings.TrimSpace(strings.TrimPrefix(handle, "@"))
		prof, err := s.lookupAuthor(ctx, handle)
		if err != nil {
			return nil, err
		}
		value.AuthorHandle = handle
		value.AuthorDID = prof.DID
		value.AuthorDisplayName = prof.DisplayName
	}

	uri, cid, err := s.store.PutRecord(ctx, s.collection, rkey, value, "")
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}

	return &Record{URI: uri, CID: cid, Value: value}, nil
}

// Delete removes the record behind uri from the store.
func (s *Service) Delete(ctx context.Context, uri string) error {
	if s.store.DID() == "" {
		return ErrNotAuthenticated
	}

	rkey := aturi.RKey(uri)
	if rkey == "" {
		return NewValidationError("uri", fmt.Sprintf("malformed record URI %q", uri))
	}

	if err := s.store.DeleteRecord(ctx, s.collection, rkey); err != nil {
		if errors.Is(err, pds.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, uri)
		}
		return fmt.Errorf("delete post: %w", err)
	}

	return nil
}

func (s *Service) lookupAuthor(ctx context.Context, handle string) (*profile.Profile, error) {
	if s.profiles == nil {
		return nil, fmt.Errorf("no profile lookup configured")
	}

	prof, err := s.profiles.GetProfile(ctx, handle)
	if err != nil {
		var notFound *profile.ErrProfileNotFound
		if errors.As(err, &notFound) {
			return nil, NewValidationError("authorHandle", fmt.Sprintf("no account found for %q", handle))
		}
		return nil, fmt.Errorf("resolve author %q: %w", handle, err)
	}

	return prof, nil
}

func validateValue(v Value) error {
	if v.Title == "" {
		return NewValidationError("title", "title is required")
	}
	if v.ShortDescription == "" {
		return NewValidationError("shortDescription", "short description is required")
	}
	if len([]rune(v.ShortDescription)) > MaxShortDescriptionLen {
		return NewValidationError("shortDescription",
			fmt.Sprintf("must be at most %d characters", MaxShortDescriptionLen))
	}
	if v.AuthorHandle == "" {
		return NewValidationError("authorHandle", "author handle is required")
	}
	if !ValidSlug(v.Slug) {
		return NewValidationError("slug",
			fmt.Sprintf("%q must match lowercase words separated by single hyphens", v.Slug))
	}
	if v.Category == "" {
		return NewValidationError("category", "category is required")
	}
	if strings.Contains(v.Category, ",") {
		return NewValidationError("category", "category must be a single value without commas")
	}
	if v.Category == CategoryRecommended {
		return NewValidationError("category",
			fmt.Sprintf("%q is reserved; use the recommended flag instead", CategoryRecommended))
	}
	if v.Content == "" {
		return NewValidationError("content", "content is required")
	}
	return nil
}

func cleanTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
