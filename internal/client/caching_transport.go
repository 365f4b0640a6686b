package client

import (
	"net/http"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
)

// NewCachingHTTPClient creates an HTTP client that honours Cache-Control on responses.
// An empty cacheDir keeps the cache in memory; otherwise it persists on disk across restarts.
func NewCachingHTTPClient(cacheDir string, timeout time.Duration) *http.Client {
	var cache httpcache.Cache = httpcache.NewMemoryCache()
	if cacheDir != "" {
		cache = diskcache.New(cacheDir)
	}

	transport := httpcache.NewTransport(cache)
	// Responses served from the cache carry X-From-Cache: 1.
	transport.MarkCachedResponses = true

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
