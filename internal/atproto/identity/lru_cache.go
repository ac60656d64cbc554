package identity

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// lruCache implements Cache with an in-process expiring LRU. Entries are
// stored bidirectionally (handle and DID both key the same identity) so a
// lookup by either form hits.
type lruCache struct {
	entries *expirable.LRU[string, *Identity]
}

// NewLRUCache creates an in-process identity cache holding up to size
// entries, each expiring after ttl.
func NewLRUCache(size int, ttl time.Duration) Cache {
	return &lruCache{
		entries: expirable.NewLRU[string, *Identity](size, nil, ttl),
	}
}

// Get retrieves a cached identity by handle or DID
func (c *lruCache) Get(_ context.Context, identifier string) (*Identity, error) {
	ident, ok := c.entries.Get(identifier)
	if !ok {
		return nil, &ErrCacheMiss{Identifier: identifier}
	}

	// Copy so callers mutating Method don't poison the cache
	out := *ident
	return &out, nil
}

// Set caches an identity under both its handle and DID
func (c *lruCache) Set(_ context.Context, identity *Identity) error {
	if identity.DID != "" {
		c.entries.Add(identity.DID, identity)
	}
	if identity.Handle != "" {
		c.entries.Add(identity.Handle, identity)
	}
	return nil
}

// Purge removes both keys associated with an identifier
func (c *lruCache) Purge(ctx context.Context, identifier string) error {
	ident, ok := c.entries.Get(identifier)
	if !ok {
		return nil
	}

	c.entries.Remove(ident.DID)
	c.entries.Remove(ident.Handle)
	return nil
}
