package profile

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// cachedLookup wraps a Lookup with an expiring LRU keyed by actor.
// Negative results are not cached so a typo'd handle can be retried
// immediately after the user fixes it.
type cachedLookup struct {
	base    Lookup
	entries *expirable.LRU[string, *Profile]
}

// NewCached wraps base with an in-process cache of up to size profiles,
// each expiring after ttl.
func NewCached(base Lookup, size int, ttl time.Duration) Lookup {
	return &cachedLookup{
		base:    base,
		entries: expirable.NewLRU[string, *Profile](size, nil, ttl),
	}
}

func (c *cachedLookup) GetProfile(ctx context.Context, actor string) (*Profile, error) {
	if cached, ok := c.entries.Get(actor); ok {
		out := *cached
		return &out, nil
	}

	prof, err := c.base.GetProfile(ctx, actor)
	if err != nil {
		return nil, err
	}

	c.entries.Add(actor, prof)
	// Also key by the canonical forms so repeat lookups by DID or
	// normalized handle hit
	if prof.DID != "" && prof.DID != actor {
		c.entries.Add(prof.DID, prof)
	}
	if prof.Handle != "" && prof.Handle != actor {
		c.entries.Add(prof.Handle, prof)
	}

	return prof, nil
}
