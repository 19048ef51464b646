// Package http provides the HTTP-based implementation of euctr.Fetcher
// used to retrieve register pages. The register serves static HTML, so a
// plain client with browser-like headers is sufficient.
package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/vladiconcure/euctr"
)

// DefaultFetchTimeout is the default timeout for HTTP requests. Register
// result pages can run to several megabytes, so it is generous.
const DefaultFetchTimeout = 30 * time.Second

// Ensure Fetcher implements euctr.Fetcher at compile time.
var _ euctr.Fetcher = (*Fetcher)(nil)

// DefaultHeaders are sent with every request. The register occasionally
// rejects clients without a browser user agent. Accept-Encoding is left
// to the transport so gzip decompression stays transparent.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept":     "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/88.0.4324.150 Safari/537.36",
	}
}

// Fetcher retrieves HTML content from URLs over plain HTTP requests.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
	headers map[string]string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the timeout for HTTP requests.
// Defaults to DefaultFetchTimeout if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithHeaders replaces the default request headers.
func WithHeaders(headers map[string]string) Option {
	return func(f *Fetcher) {
		f.headers = headers
	}
}

// WithClient replaces the underlying HTTP client. The timeout option is
// ignored when a client is supplied.
func WithClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout: DefaultFetchTimeout,
		headers: DefaultHeaders(),
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = &http.Client{
			Timeout: f.timeout,
		}
	}

	return f
}

// Fetch retrieves the HTML content from the given URL. Any transport
// failure or non-200 status is a collaborator error.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", euctr.Errorf(euctr.EINVALID, "invalid fetch request for %s: %v", url, err)
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", euctr.Errorf(euctr.ECOLLABORATOR, "fetch %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", euctr.Errorf(euctr.ECOLLABORATOR, "fetch %s: HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", euctr.Errorf(euctr.ECOLLABORATOR, "fetch %s: read body: %v", url, err)
	}

	return string(body), nil
}

// Close releases resources. A no-op for the plain HTTP fetcher.
func (f *Fetcher) Close() error {
	return nil
}
