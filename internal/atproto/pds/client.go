// Package pds wraps indigo's atclient.APIClient for the record-repository
// calls this project needs: cursor-paginated listing plus create, replace and
// delete of blog post records. Errors coming back from the PDS are mapped to
// typed sentinel errors so callers can use errors.Is() instead of string
// matching.
package pds

import (
	"context"
	"errors"
	"fmt"

	"github.com/bluesky-social/indigo/atproto/atclient"
	"github.com/bluesky-social/indigo/atproto/syntax"
)

// Client provides access to a repository on a PDS. Read operations accept an
// explicit repo DID because readers can browse any author's collection;
// writes always target the authenticated account.
type Client interface {
	// ListRecords lists one page of records in a collection, newest first.
	// An empty repo defaults to the authenticated account. The returned
	// cursor is empty once the final page has been served.
	ListRecords(ctx context.Context, repo, collection string, limit int, cursor string) (*ListRecordsResponse, error)

	// GetRecord retrieves a single record by collection and rkey.
	GetRecord(ctx context.Context, repo, collection, rkey string) (*RecordResponse, error)

	// CreateRecord creates a record in the authenticated account's
	// repository. If rkey is empty the PDS generates a TID.
	CreateRecord(ctx context.Context, collection, rkey string, record any) (uri string, cid string, err error)

	// PutRecord replaces (or creates) the record at rkey. If swapCID is
	// non-empty the PDS rejects the write unless the current CID matches.
	PutRecord(ctx context.Context, collection, rkey string, record any, swapCID string) (uri string, cid string, err error)

	// DeleteRecord deletes a record from the authenticated account's
	// repository.
	DeleteRecord(ctx context.Context, collection, rkey string) error

	// DID returns the authenticated account's DID, or empty for a
	// read-only client.
	DID() string

	// HostURL returns the PDS host URL.
	HostURL() string
}

// ListRecordsResponse contains one page of a ListRecords walk.
type ListRecordsResponse struct {
	Records []RecordEntry
	Cursor  string
}

// RecordEntry is a single record as returned by a list operation.
type RecordEntry struct {
	URI   string
	CID   string
	Value map[string]any
}

// RecordResponse contains a single record retrieved from the PDS.
type RecordResponse struct {
	URI   string
	CID   string
	Value map[string]any
}

type client struct {
	apiClient *atclient.APIClient
	did       string
	host      string
}

var _ Client = (*client)(nil)

// wrapAPIError maps atclient errors onto our typed errors so callers get
// reliable errors.Is() behavior.
func wrapAPIError(err error, operation string) error {
	if err == nil {
		return nil
	}

	var apiErr *atclient.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 400:
			return fmt.Errorf("%s: %w: %s", operation, ErrBadRequest, apiErr.Message)
		case 401:
			return fmt.Errorf("%s: %w: %s", operation, ErrUnauthorized, apiErr.Message)
		case 403:
			return fmt.Errorf("%s: %w: %s", operation, ErrForbidden, apiErr.Message)
		case 404:
			return fmt.Errorf("%s: %w: %s", operation, ErrNotFound, apiErr.Message)
		case 409:
			return fmt.Errorf("%s: %w: %s", operation, ErrConflict, apiErr.Message)
		case 429:
			return fmt.Errorf("%s: %w: %s", operation, ErrRateLimited, apiErr.Message)
		}
	}

	return fmt.Errorf("%s failed: %w", operation, err)
}

func (c *client) DID() string {
	return c.did
}

func (c *client) HostURL() string {
	return c.host
}

// ListRecords lists one page of records in a collection.
func (c *client) ListRecords(ctx context.Context, repo, collection string, limit int, cursor string) (*ListRecordsResponse, error) {
	if repo == "" {
		repo = c.did
	}
	if repo == "" {
		return nil, fmt.Errorf("listRecords: %w: no repo given and client is not authenticated", ErrBadRequest)
	}

	params := map[string]any{
		"repo":       repo,
		"collection": collection,
		"limit":      limit,
	}
	if cursor != "" {
		params["cursor"] = cursor
	}

	var result struct {
		Cursor  string `json:"cursor"`
		Records []struct {
			URI   string         `json:"uri"`
			CID   string         `json:"cid"`
			Value map[string]any `json:"value"`
		} `json:"records"`
	}

	err := c.apiClient.Get(ctx, syntax.NSID("com.atproto.repo.listRecords"), params, &result)
	if err != nil {
		return nil, wrapAPIError(err, "listRecords")
	}

	response := &ListRecordsResponse{
		Cursor:  result.Cursor,
		Records: make([]RecordEntry, len(result.Records)),
	}
	for i, rec := range result.Records {
		response.Records[i] = RecordEntry{
			URI:   rec.URI,
			CID:   rec.CID,
			Value: rec.Value,
		}
	}

	return response, nil
}

// GetRecord retrieves a single record by collection and rkey.
func (c *client) GetRecord(ctx context.Context, repo, collection, rkey string) (*RecordResponse, error) {
	if repo == "" {
		repo = c.did
	}

	params := map[string]any{
		"repo":       repo,
		"collection": collection,
		"rkey":       rkey,
	}

	var result struct {
		URI   string         `json:"uri"`
		CID   string         `json:"cid"`
		Value map[string]any `json:"value"`
	}

	err := c.apiClient.Get(ctx, syntax.NSID("com.atproto.repo.getRecord"), params, &result)
	if err != nil {
		return nil, wrapAPIError(err, "getRecord")
	}

	return &RecordResponse{
		URI:   result.URI,
		CID:   result.CID,
		Value: result.Value,
	}, nil
}

// CreateRecord creates a record in the authenticated account's repository.
func (c *client) CreateRecord(ctx context.Context, collection, rkey string, record any) (string, string, error) {
	if c.did == "" {
		return "", "", fmt.Errorf("createRecord: %w", ErrUnauthorized)
	}

	payload := map[string]any{
		"repo":       c.did,
		"collection": collection,
		"record":     record,
	}
	// PDS generates a TID when rkey is omitted
	if rkey != "" {
		payload["rkey"] = rkey
	}

	var result struct {
		URI string `json:"uri"`
		CID string `json:"cid"`
	}

	err := c.apiClient.Post(ctx, syntax.NSID("com.atproto.repo.createRecord"), payload, &result)
	if err != nil {
		return "", "", wrapAPIError(err, "createRecord")
	}

	return result.URI, result.CID, nil
}

// PutRecord replaces or creates the record at rkey.
func (c *client) PutRecord(ctx context.Context, collection, rkey string, record any, swapCID string) (string, string, error) {
	if c.did == "" {
		return "", "", fmt.Errorf("putRecord: %w", ErrUnauthorized)
	}

	payload := map[string]any{
		"repo":       c.did,
		"collection": collection,
		"rkey":       rkey,
		"record":     record,
	}
	if swapCID != "" {
		payload["swapRecord"] = swapCID
	}

	var result struct {
		URI string `json:"uri"`
		CID string `json:"cid"`
	}

	err := c.apiClient.Post(ctx, syntax.NSID("com.atproto.repo.putRecord"), payload, &result)
	if err != nil {
		return "", "", wrapAPIError(err, "putRecord")
	}

	return result.URI, result.CID, nil
}

// DeleteRecord deletes a record from the authenticated account's repository.
func (c *client) DeleteRecord(ctx context.Context, collection, rkey string) error {
	if c.did == "" {
		return fmt.Errorf("deleteRecord: %w", ErrUnauthorized)
	}

	payload := map[string]any{
		"repo":       c.did,
		"collection": collection,
		"rkey":       rkey,
	}

	// deleteRecord returns an empty response on success
	err := c.apiClient.Post(ctx, syntax.NSID("com.atproto.repo.deleteRecord"), payload, nil)
	if err != nil {
		return wrapAPIError(err, "deleteRecord")
	}

	return nil
}
