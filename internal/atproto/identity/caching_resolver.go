package identity

import (
	"context"
	"log"
)

// cachingResolver wraps a base resolver with caching
type cachingResolver struct {
	base  Resolver
	cache Cache
}

func newCachingResolver(base Resolver, cache Cache) Resolver {
	return &cachingResolver{
		base:  base,
		cache: cache,
	}
}

// Resolve resolves a handle or DID, checking the cache first
func (r *cachingResolver) Resolve(ctx context.Context, identifier string) (*Identity, error) {
	cached, err := r.cache.Get(ctx, identifier)
	if err == nil {
		cached.Method = MethodCache
		return cached, nil
	}

	identity, err := r.base.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}

	// Cache errors are logged, never surfaced
	if cacheErr := r.cache.Set(ctx, identity); cacheErr != nil {
		log.Printf("[IDENTITY] Warning: failed to cache identity for %s: %v", identifier, cacheErr)
	}

	return identity, nil
}

// ResolveHandle specifically resolves a handle to DID and PDS URL
func (r *cachingResolver) ResolveHandle(ctx context.Context, handle string) (did, pdsURL string, err error) {
	identity, err := r.Resolve(ctx, handle)
	if err != nil {
		return "", "", err
	}

	return identity.DID, identity.PDSURL, nil
}

// Purge removes an identifier from the cache and propagates to base
func (r *cachingResolver) Purge(ctx context.Context, identifier string) error {
	if err := r.cache.Purge(ctx, identifier); err != nil {
		return err
	}

	return r.base.Purge(ctx, identifier)
}
