// Package blogs implements the blog post domain: the record schema and its
// validation, the cursor-pagination fetch engine, the client-side post
// cache with filter/sort projection, and the write path against the PDS.
package blogs

import (
	"encoding/json"
	"fmt"

	"github.com/romiojoseph/at-protocol/internal/atproto/pds"
)

// DefaultCollection is the NSID blog post records are stored under.
const DefaultCollection = "com.romio.blog.post"

// MaxShortDescriptionLen caps the shortDescription field.
const MaxShortDescriptionLen = 160

// CategoryRecommended is the synthetic pseudo-category selecting records
// flagged recommended. It is never stored on a record.
const CategoryRecommended = "Recommended"

// Value is the blog post document stored in the record. Optional fields
// are structurally absent from the JSON when unset, never null.
type Value struct {
	Type                string   `json:"$type,omitempty"`
	Title               string   `json:"title"`
	ShortDescription    string   `json:"shortDescription"`
	AuthorHandle        string   `json:"authorHandle"`
	AuthorDID           string   `json:"authorDid"`
	AuthorDisplayName   string   `json:"authorDisplayName,omitempty"`
	Slug                string   `json:"slug"`
	Category            string   `json:"category"`
	Content             string   `json:"content"`
	PublishedAt         string   `json:"publishedAt"`
	CoverImage          string   `json:"coverImage,omitempty"`
	Tags                []string `json:"tags,omitempty"`
	UpdatedAt           string   `json:"updatedAt,omitempty"`
	BskyCommentsPostURI string   `json:"bskyCommentsPostUri,omitempty"`
	Recommended         bool     `json:"recommended,omitempty"`
}

// Record is one persisted blog post: the document plus the identifiers the
// store assigned to it. URI is the primary key for cache deduplication;
// CID changes on every update and is display-only.
type Record struct {
	URI   string `json:"uri"`
	CID   string `json:"cid"`
	Value Value  `json:"value"`
}

// RecordFromEntry decodes a raw list/get entry into a typed Record.
// Unknown fields in the stored document are dropped.
func RecordFromEntry(entry pds.RecordEntry) (Record, error) {
	raw, err := json.Marshal(entry.Value)
	if err != nil {
		return Record{}, fmt.Errorf("encode record value: %w", err)
	}

	var value Value
	if err := json.Unmarshal(raw, &value); err != nil {
		return Record{}, fmt.Errorf("decode record %s: %w", entry.URI, err)
	}

	return Record{
		URI:   entry.URI,
		CID:   entry.CID,
		Value: value,
	}, nil
}
