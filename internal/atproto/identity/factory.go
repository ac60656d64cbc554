package identity

import (
	"net/http"
	"time"
)

// Config holds configuration for the identity resolver
type Config struct {
	HTTPClient *http.Client
	PLCURL     string
	CacheSize  int
	CacheTTL   time.Duration
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		PLCURL:     "https://plc.directory",
		CacheSize:  1024,
		CacheTTL:   24 * time.Hour,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewResolver creates a new identity resolver with an in-process LRU cache
func NewResolver(config Config) Resolver {
	if config.PLCURL == "" {
		config.PLCURL = "https://plc.directory"
	}
	if config.CacheSize == 0 {
		config.CacheSize = 1024
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = 24 * time.Hour
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	base := newBaseResolver(config.PLCURL, config.HTTPClient)
	cache := NewLRUCache(config.CacheSize, config.CacheTTL)

	return newCachingResolver(base, cache)
}
