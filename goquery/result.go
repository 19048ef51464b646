package goquery

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/vladiconcure/euctr"
)

// Labels anchoring the results page scan. Like the card layout, the
// results markup identifies its rows only by visible label text.
const (
	otherVersionsLabel      = "Other versions"
	resultsVersionLabel     = "Results version number"
	eudractNumberLabel      = "EudraCT number"
	trialProtocolLabel      = "Trial prot"
	globalEndDateLabel      = "Global end"
	resultsInformationLabel = "Results information"
)

// jumperTrailingLinks is the number of trailing non-data navigation
// entries in the jump-to-section block.
const jumperTrailingLinks = 2

// ResultExtractor parses one results page into a version-keyed document,
// following "other versions" links when a fetcher is configured.
type ResultExtractor struct {
	fetcher euctr.Fetcher
	pdfs    euctr.PDFCollector
	base    *url.URL
	pageURL string
	version string
}

// ResultOption configures a ResultExtractor.
type ResultOption func(*ResultExtractor)

// WithFetcher supplies the fetch capability used to follow linked result
// versions. Without it, a page carrying version links fails with a
// collaborator error for each link.
func WithFetcher(f euctr.Fetcher) ResultOption {
	return func(e *ResultExtractor) { e.fetcher = f }
}

// WithPDFCollector supplies the collector used for the results PDF
// download. Without it, a PDF link is recorded but not collected.
func WithPDFCollector(c euctr.PDFCollector) ResultOption {
	return func(e *ResultExtractor) { e.pdfs = c }
}

// WithPageURL records the URL the page was fetched from; it is stored in
// the version summary.
func WithPageURL(u string) ResultOption {
	return func(e *ResultExtractor) { e.pageURL = u }
}

// WithVersion pre-supplies the version label. Used on recursive re-entry
// for a linked version; it also disables further other-versions
// expansion.
func WithVersion(label string) ResultOption {
	return func(e *ResultExtractor) { e.version = label }
}

// NewResultExtractor creates a ResultExtractor resolving links against
// baseURL.
func NewResultExtractor(baseURL string, opts ...ResultOption) (*ResultExtractor, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, euctr.Errorf(euctr.EINVALID, "invalid base URL: %v", err)
	}
	e := &ResultExtractor{base: base}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Extract converts a results page into a ResultsDocument holding one
// entry per reachable version. Failures scoped to single versions do not
// abort the remaining versions: Extract returns the accumulated document
// together with the joined version-scoped errors, and the caller decides
// whether to keep the partial accumulation.
func (e *ResultExtractor) Extract(ctx context.Context, doc *goquery.Document) (*euctr.ResultsDocument, error) {
	out := euctr.NewResultsDocument()
	var errs []error

	// Linked versions are expanded only at the initial call; recursive
	// re-entries carry a pre-supplied label and stop here.
	if e.version == "" {
		errs = e.expandOtherVersions(ctx, doc, out)
	}

	label := e.version
	if label == "" {
		detected, err := detectVersion(doc)
		if err != nil {
			return out, errors.Join(append(errs, err)...)
		}
		label = detected
	}

	entry, err := e.extractVersion(ctx, doc, label)
	if err != nil {
		errs = append(errs, err)
	} else if !out.Has(label) {
		out.Add(label, entry)
	}

	return out, errors.Join(errs...)
}

// versionLink is one linked results version, enumerated upfront from the
// entry page.
type versionLink struct {
	label string
	url   string
}

// expandOtherVersions fetches every linked version and merges its
// extraction into out. The link set is enumerated once from the current
// page and deduplicated by label, so each version is visited at most once
// per top-level call even when version pages cross-link.
func (e *ResultExtractor) expandOtherVersions(ctx context.Context, doc *goquery.Document, out *euctr.ResultsDocument) []error {
	labelCell := findLabelCell(doc, otherVersionsLabel)
	if labelCell.Length() == 0 {
		return nil
	}

	visited := make(map[string]bool)
	var links []versionLink
	nextCell(labelCell).Find("a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		label := labelText(a.Text())
		if visited[label] {
			return
		}
		visited[label] = true
		links = append(links, versionLink{label: label, url: resolveURL(e.base, href)})
	})

	var errs []error
	for _, link := range links {
		if out.Has(link.label) {
			continue
		}
		sub, err := e.extractLinkedVersion(ctx, link)
		if sub != nil {
			out.Merge(sub)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// extractLinkedVersion fetches and extracts one linked version with its
// label pre-supplied.
func (e *ResultExtractor) extractLinkedVersion(ctx context.Context, link versionLink) (*euctr.ResultsDocument, error) {
	if e.fetcher == nil {
		return nil, euctr.Errorf(euctr.ECOLLABORATOR, "results version %q: no fetcher configured for %s", link.label, link.url)
	}

	html, err := e.fetcher.Fetch(ctx, link.url)
	if err != nil {
		return nil, euctr.Errorf(euctr.ECOLLABORATOR, "results version %q: fetch %s: %v", link.label, link.url, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, euctr.Errorf(euctr.ESTRUCTURAL, "results version %q: parse %s: %v", link.label, link.url, err)
	}

	sub := &ResultExtractor{
		fetcher: e.fetcher,
		pdfs:    e.pdfs,
		base:    e.base,
		pageURL: link.url,
		version: link.label,
	}
	return sub.Extract(ctx, doc)
}

// detectVersion reads the current page's own version label.
func detectVersion(doc *goquery.Document) (string, error) {
	labelCell := findLabelCell(doc, resultsVersionLabel)
	if labelCell.Length() == 0 {
		return "", euctr.Errorf(euctr.ESTRUCTURAL, "results version number not found")
	}
	value := nextCell(labelCell)
	if value.Length() == 0 {
		return "", euctr.Errorf(euctr.ESTRUCTURAL, "results version number has no value cell")
	}
	return labelText(value.Text()), nil
}

// extractVersion reads all per-version fields from the current page.
// Errors are scoped to the version label.
func (e *ResultExtractor) extractVersion(ctx context.Context, doc *goquery.Document, label string) (*euctr.ResultVersion, error) {
	// Capture the page before closed-table removal mutates the tree; the
	// archived markup is independent of the structured extraction.
	html, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return nil, versionScoped(label, euctr.Errorf(euctr.EINTERNAL, "serialize page: %v", err))
	}

	summary, err := e.summary(doc)
	if err != nil {
		return nil, versionScoped(label, err)
	}

	info, err := resultsInformation(doc)
	if err != nil {
		return nil, versionScoped(label, err)
	}

	removeClosedTables(doc)

	pdf, err := e.pdfData(ctx, doc)
	if err != nil {
		return nil, versionScoped(label, err)
	}

	return &euctr.ResultVersion{
		Summary:            summary,
		ResultsInformation: info,
		AdditionalInfo:     e.additionalInfo(doc),
		PDF:                pdf,
		HTML:               html,
	}, nil
}

// versionScoped tags err with the version label it is fatal to.
func versionScoped(label string, err error) error {
	return euctr.Errorf(euctr.ErrorCode(err), "results version %q: %s", label, euctr.ErrorMessage(err))
}

// summary scans the first result-content table for the labelled summary
// fields. The protocol row is required; the EudraCT number and global end
// date are legitimately absent on some versions.
func (e *ResultExtractor) summary(doc *goquery.Document) (*euctr.ResultSummary, error) {
	table := doc.Find("div#resultContent table").First()
	if table.Length() == 0 {
		return nil, euctr.Errorf(euctr.ESTRUCTURAL, "results summary table not found")
	}

	out := &euctr.ResultSummary{URL: e.pageURL, TrialProtocol: []string{}}
	var protocolCell *goquery.Selection

	table.Find("td").Each(func(_ int, td *goquery.Selection) {
		text := strings.TrimSpace(td.Text())
		switch {
		case text == eudractNumberLabel && out.EudractNumber == nil:
			if value := nextCell(td); value.Length() > 0 {
				v := cleanText(value.Text())
				out.EudractNumber = &v
			}
		case strings.Contains(text, trialProtocolLabel) && protocolCell == nil:
			if value := nextCell(td); value.Length() > 0 {
				protocolCell = value
			}
		case strings.Contains(text, globalEndDateLabel) && out.GlobalEndDate == nil:
			if value := nextCell(td); value.Length() > 0 {
				v := cleanText(value.Text())
				out.GlobalEndDate = &v
			}
		}
	})

	if protocolCell == nil {
		return nil, euctr.Errorf(euctr.ESTRUCTURAL, "trial protocol row not found in results summary")
	}
	protocolCell.Find("a").Each(func(_ int, a *goquery.Selection) {
		out.TrialProtocol = append(out.TrialProtocol, cleanText(a.Text()))
	})

	return out, nil
}

// resultsInformation reads the cells after the "Results information"
// label as alternating label/value pairs until the end of the containing
// table, dropping the introductory pseudo-pair.
func resultsInformation(doc *goquery.Document) (*euctr.Fields, error) {
	table := doc.Find("div#resultContent table").First()
	if table.Length() == 0 {
		return nil, euctr.Errorf(euctr.ESTRUCTURAL, "results information table not found")
	}

	cells := table.Find("td")
	start := -1
	cells.EachWithBreak(func(i int, td *goquery.Selection) bool {
		if strings.TrimSpace(td.Text()) == resultsInformationLabel {
			start = i
			return false
		}
		return true
	})
	if start < 0 {
		return nil, euctr.Errorf(euctr.ESTRUCTURAL, "results information block not found")
	}
	if (cells.Length()-start)%2 != 0 {
		return nil, euctr.Errorf(euctr.ESTRUCTURAL, "results information block has an unpaired cell")
	}

	info := euctr.NewFields()
	for i := start; i < cells.Length(); i += 2 {
		key := cleanText(cells.Eq(i).Text())
		value := cleanText(cells.Eq(i + 1).Text())
		info.Set(key, euctr.String(value))
	}
	info.Delete(resultsInformationLabel)
	return info, nil
}

// removeClosedTables drops every table whose identifier ends in the
// closed marker. These are collapsed duplicate UI state and must not
// contribute rows to the additional-information scan.
func removeClosedTables(doc *goquery.Document) {
	doc.Find("table[id$='Closed']").Remove()
}

// additionalInfo walks the tables following the jump-to-section block.
// A table matching an anchor target opens that anchor's section; a
// non-matching table continues the currently open one. Every table is
// normalized with the section title as boilerplate filter.
func (e *ResultExtractor) additionalInfo(doc *goquery.Document) *euctr.Fields {
	info := euctr.NewFields()

	jumper := doc.Find("div#jumperLinks").First()
	if jumper.Length() == 0 {
		return info
	}

	links := jumper.Find("a[href]")
	if links.Length() <= jumperTrailingLinks {
		return info
	}
	links = links.Slice(0, links.Length()-jumperTrailingLinks)

	var ids, titles []string
	links.Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		ids = append(ids, strings.TrimPrefix(href, "#"))
		titles = append(titles, strings.TrimSpace(a.Text()))
	})

	current := -1
	jumper.NextAllFiltered("table").Each(func(_ int, table *goquery.Selection) {
		id, _ := table.Attr("id")
		if idx := indexOf(ids, id); idx >= 0 {
			current = idx
			block := euctr.List(NormalizeTable(table, titles[current])...)
			info.Set(titles[current], euctr.List(block))
			return
		}
		if current < 0 {
			return
		}
		title := titles[current]
		block := euctr.List(NormalizeTable(table, title)...)
		existing, _ := info.Get(title)
		info.Set(title, existing.Append(block))
	})

	return info
}

func indexOf(items []string, s string) int {
	for i, item := range items {
		if item == s {
			return i
		}
	}
	return -1
}

// pdfData collects the results PDF when the page links one. With no
// collector configured the link is still recorded, with empty text and
// tables.
func (e *ResultExtractor) pdfData(ctx context.Context, doc *goquery.Document) (*euctr.PDFContent, error) {
	link := doc.Find("a#downloadResultPdf").First()
	if link.Length() == 0 {
		return nil, nil
	}
	href, ok := link.Attr("href")
	if !ok {
		return nil, nil
	}
	pdfURL := resolveURL(e.base, href)

	if e.pdfs == nil {
		return &euctr.PDFContent{URL: pdfURL}, nil
	}

	content, err := e.pdfs.Collect(ctx, pdfURL)
	if err != nil {
		return nil, euctr.Errorf(euctr.ECOLLABORATOR, "collect results pdf %s: %v", pdfURL, err)
	}
	content.URL = pdfURL
	return content, nil
}
