package client

import (
	"net/http"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"golang.org/x/oauth2"
)

// NewDownloadClient creates the HTTP client used for game downloads. Every
// request carries the bearer token from ts, and responses are cached in
// cacheDir, or in memory when cacheDir is empty, honouring Cache-Control.
func NewDownloadClient(ts oauth2.TokenSource, cacheDir string, actionTimeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: downloadTimeout(actionTimeout),
		Transport: &oauth2.Transport{
			Source: ts,
			Base:   newCachingTransport(cacheDir),
		},
	}
}

func newCachingTransport(cacheDir string) http.RoundTripper {
	if cacheDir == "" {
		return httpcache.NewTransport(httpcache.NewMemoryCache())
	}

	// Use disk-based cache for persistence across restarts
	return httpcache.NewTransport(diskcache.New(cacheDir))
}

// downloadTimeout bounds a whole download rather than a single action.
func downloadTimeout(actionTimeout time.Duration) time.Duration {
	if actionTimeout <= 0 {
		return 0
	}
	return 30 * actionTimeout
}
