package identity

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	indigoIdentity "github.com/bluesky-social/indigo/atproto/identity"
	"github.com/bluesky-social/indigo/atproto/syntax"
)

// baseResolver implements Resolver using Indigo's identity resolution
type baseResolver struct {
	directory indigoIdentity.Directory
}

// newBaseResolver creates a new base resolver using Indigo's BaseDirectory,
// which handles DNS and HTTPS handle resolution plus PLC lookups.
func newBaseResolver(plcURL string, httpClient *http.Client) Resolver {
	dir := &indigoIdentity.BaseDirectory{
		PLCURL:     plcURL,
		HTTPClient: *httpClient,
	}

	return &baseResolver{
		directory: dir,
	}
}

// Resolve resolves a handle or DID to complete identity information
func (r *baseResolver) Resolve(ctx context.Context, identifier string) (*Identity, error) {
	identifier = strings.TrimSpace(identifier)

	if identifier == "" {
		return nil, &ErrInvalidIdentifier{
			Identifier: identifier,
			Reason:     "identifier cannot be empty",
		}
	}

	atID, err := syntax.ParseAtIdentifier(identifier)
	if err != nil {
		return nil, &ErrInvalidIdentifier{
			Identifier: identifier,
			Reason:     fmt.Sprintf("invalid identifier format: %v", err),
		}
	}

	ident, err := r.directory.Lookup(ctx, atID)
	if err != nil {
		// Indigo doesn't expose typed not-found errors here
		errStr := err.Error()
		if strings.Contains(errStr, "not found") ||
			strings.Contains(errStr, "NoRecordsFound") ||
			strings.Contains(errStr, "404") {
			return nil, &ErrNotFound{
				Identifier: identifier,
				Reason:     errStr,
			}
		}

		return nil, &ErrResolutionFailed{
			Identifier: identifier,
			Reason:     errStr,
		}
	}

	return &Identity{
		DID:        ident.DID.String(),
		Handle:     ident.Handle.String(),
		PDSURL:     ident.PDSEndpoint(),
		ResolvedAt: time.Now().UTC(),
		Method:     MethodNetwork,
	}, nil
}

// ResolveHandle specifically resolves a handle to DID and PDS URL
func (r *baseResolver) ResolveHandle(ctx context.Context, handle string) (did, pdsURL string, err error) {
	ident, err := r.Resolve(ctx, handle)
	if err != nil {
		return "", "", err
	}

	return ident.DID, ident.PDSURL, nil
}

// Purge is a no-op for base resolver (no caching)
func (r *baseResolver) Purge(ctx context.Context, identifier string) error {
	return nil
}
