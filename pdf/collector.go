// Package pdf implements euctr.PDFCollector for the register's results
// PDF downloads. The register serves each results PDF wrapped in a zip
// archive with a single member.
package pdf

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/vladiconcure/euctr"
)

// DefaultDownloadTimeout is the default timeout for archive downloads.
const DefaultDownloadTimeout = 60 * time.Second

// Ensure Collector implements euctr.PDFCollector at compile time.
var _ euctr.PDFCollector = (*Collector)(nil)

// Collector downloads a results PDF archive and extracts its plain text
// and per-page row content.
type Collector struct {
	client  *http.Client
	timeout time.Duration
}

// Option configures a Collector.
type Option func(*Collector)

// WithTimeout sets the timeout for archive downloads.
// Defaults to DefaultDownloadTimeout if not specified.
func WithTimeout(d time.Duration) Option {
	return func(c *Collector) {
		c.timeout = d
	}
}

// WithClient replaces the underlying HTTP client. The timeout option is
// ignored when a client is supplied.
func WithClient(client *http.Client) Option {
	return func(c *Collector) {
		c.client = client
	}
}

// NewCollector creates a Collector.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		timeout: DefaultDownloadTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.client == nil {
		c.client = &http.Client{
			Timeout: c.timeout,
		}
	}

	return c
}

// Collect downloads the archive at url and returns the contained PDF's
// text and row content. Download failures are collaborator errors; a
// malformed archive or PDF is a structural error.
func (c *Collector) Collect(ctx context.Context, url string) (*euctr.PDFContent, error) {
	archive, err := c.download(ctx, url)
	if err != nil {
		return nil, err
	}

	raw, err := extractArchive(archive)
	if err != nil {
		return nil, euctr.Errorf(euctr.ESTRUCTURAL, "results archive %s: %v", url, err)
	}

	text, tables, err := extractPDF(raw)
	if err != nil {
		return nil, euctr.Errorf(euctr.ESTRUCTURAL, "results pdf %s: %v", url, err)
	}

	return &euctr.PDFContent{URL: url, Text: text, Tables: tables}, nil
}

func (c *Collector) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, euctr.Errorf(euctr.EINVALID, "invalid download request for %s: %v", url, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, euctr.Errorf(euctr.ECOLLABORATOR, "download %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, euctr.Errorf(euctr.ECOLLABORATOR, "download %s: HTTP %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, euctr.Errorf(euctr.ECOLLABORATOR, "download %s: read body: %v", url, err)
	}
	return data, nil
}

// extractArchive returns the first member of the zip archive.
func extractArchive(data []byte) ([]byte, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	if len(r.File) == 0 {
		return nil, euctr.Errorf(euctr.ESTRUCTURAL, "archive has no members")
	}

	member, err := r.File[0].Open()
	if err != nil {
		return nil, err
	}
	defer member.Close()

	return io.ReadAll(member)
}

// extractPDF reads the PDF's plain text and one row table per page.
// Pages the reader cannot decode are skipped rather than failing the
// whole document.
func extractPDF(data []byte) (string, [][][]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, err
	}

	var text strings.Builder
	var tables [][][]string

	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		plain, err := page.GetPlainText(nil)
		if err == nil {
			text.WriteString(plain)
			text.WriteString("\n")
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var pageRows [][]string
		for _, row := range rows {
			var words []string
			for _, word := range row.Content {
				if s := strings.TrimSpace(word.S); s != "" {
					words = append(words, s)
				}
			}
			if len(words) > 0 {
				pageRows = append(pageRows, words)
			}
		}
		if len(pageRows) > 0 {
			tables = append(tables, pageRows)
		}
	}

	return text.String(), tables, nil
}
