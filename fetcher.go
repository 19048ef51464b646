package euctr

import "context"

// Fetcher retrieves raw HTML from URLs.
// Implementations hide transport details: headers, timeouts, rate
// limiting, logging.
type Fetcher interface {
	// Fetch retrieves the page at url and returns its HTML.
	// The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (html string, err error)

	// Close releases transport resources.
	Close() error
}
