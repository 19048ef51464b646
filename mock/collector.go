package mock

import (
	"context"

	"github.com/vladiconcure/euctr"
)

var _ euctr.PDFCollector = (*PDFCollector)(nil)

// PDFCollector is a mock implementation of euctr.PDFCollector.
type PDFCollector struct {
	CollectFn func(ctx context.Context, url string) (*euctr.PDFContent, error)
}

func (c *PDFCollector) Collect(ctx context.Context, url string) (*euctr.PDFContent, error) {
	return c.CollectFn(ctx, url)
}
