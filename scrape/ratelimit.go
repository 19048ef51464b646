package scrape

import (
	"context"
	"time"

	"github.com/vladiconcure/euctr"
	"golang.org/x/time/rate"
)

// DefaultRequestInterval is the default spacing between register
// requests. The register throttles aggressive clients.
const DefaultRequestInterval = 10 * time.Second

var _ euctr.Fetcher = (*RateLimitedFetcher)(nil)

// RateLimitedFetcher decorates a Fetcher with a token bucket so that
// requests are spaced out regardless of how many goroutines share it.
// Burst is 1: no bursting allowed.
type RateLimitedFetcher struct {
	fetcher euctr.Fetcher
	limiter *rate.Limiter
}

// NewRateLimitedFetcher wraps fetcher so that successive fetches are at
// least interval apart.
func NewRateLimitedFetcher(fetcher euctr.Fetcher, interval time.Duration) *RateLimitedFetcher {
	return &RateLimitedFetcher{
		fetcher: fetcher,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Fetch waits for the rate limit, then delegates. Returns early when the
// context is canceled during the wait.
func (f *RateLimitedFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", euctr.Errorf(euctr.ECOLLABORATOR, "rate limit wait for %s: %v", url, err)
	}
	return f.fetcher.Fetch(ctx, url)
}

// Close delegates to the wrapped fetcher.
func (f *RateLimitedFetcher) Close() error {
	return f.fetcher.Close()
}
