// Package identity resolves atProto handles and DIDs to full identity
// information (DID, handle, PDS endpoint), with an in-process cache in
// front of network resolution.
package identity

import "context"

// Resolver provides methods for resolving atProto identities
type Resolver interface {
	// Resolve resolves a handle or DID to complete identity information.
	// The identifier can be either:
	// - A handle (e.g., "alice.bsky.social")
	// - A DID (e.g., "did:plc:abc123")
	Resolve(ctx context.Context, identifier string) (*Identity, error)

	// ResolveHandle specifically resolves a handle to DID and PDS URL.
	// This is a convenience method for handle-only resolution.
	ResolveHandle(ctx context.Context, handle string) (did, pdsURL string, err error)

	// Purge removes an identifier from the cache
	Purge(ctx context.Context, identifier string) error
}

// Cache provides caching for resolved identities
type Cache interface {
	// Get retrieves a cached identity by handle or DID
	Get(ctx context.Context, identifier string) (*Identity, error)

	// Set caches an identity under both its handle and DID
	Set(ctx context.Context, identity *Identity) error

	// Purge removes all cache entries associated with an identifier
	// (both handle and DID if applicable)
	Purge(ctx context.Context, identifier string) error
}
