// Package scrape orchestrates register scraping: paginated search,
// per-trial card extraction, protocol page collection, and results
// collection, with bounded concurrency within each results page.
package scrape

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"github.com/vladiconcure/euctr"
	eugoquery "github.com/vladiconcure/euctr/goquery"
	"golang.org/x/sync/errgroup"
)

// DefaultBaseURL is the register's public base URL.
const DefaultBaseURL = "https://www.clinicaltrialsregister.eu"

// DefaultConcurrency bounds how many trials of one search page are
// processed at once.
const DefaultConcurrency = 4

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressCompleted
	ProgressFailed
	ProgressFinished
)

// ProgressEvent reports progress during a scrape operation.
type ProgressEvent struct {
	Type          ProgressType
	Completed     int
	Total         int
	EudractNumber string
	Error         error
}

// ProgressFunc is a callback for reporting scrape progress.
type ProgressFunc func(event ProgressEvent)

// Result holds the outcome of one scrape operation. Errors carries every
// non-fatal failure encountered along the way: failed trials, failed
// protocol pages, and failed result versions of trials that were still
// kept.
type Result struct {
	Trials []*euctr.Trial
	Errors []error
	Found  int
	Pages  int
}

// Scraper coordinates the register collaborators. The zero value is not
// usable; Fetcher is required, PDFs is optional and disables PDF
// collection when nil.
type Scraper struct {
	Fetcher     euctr.Fetcher
	PDFs        euctr.PDFCollector
	BaseURL     string
	Concurrency int
}

// trialResult holds the outcome of processing a single trial card.
type trialResult struct {
	position int
	trial    *euctr.Trial
	errs     []error
}

// ScrapeRange scrapes every trial the register lists for the inclusive
// date range. A failing search page is recorded and skipped; a failing
// trial is recorded and does not stop its siblings. The returned error is
// reserved for failures that prevent the scrape from starting at all.
func (s *Scraper) ScrapeRange(ctx context.Context, dateFrom, dateTo string, progress ProgressFunc) (*Result, error) {
	base := s.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	cards, err := eugoquery.NewCardExtractor(base)
	if err != nil {
		return nil, err
	}

	result := &Result{}

	doc, err := s.searchPage(ctx, base, dateFrom, dateTo, 0)
	if err != nil {
		return nil, err
	}

	outcome, ok := ParseOutcome(doc)
	if !ok {
		// No banner means no results for the range.
		return result, nil
	}
	result.Found = outcome.Results
	result.Pages = outcome.Pages

	if progress != nil {
		progress(ProgressEvent{Type: ProgressStarted, Total: outcome.Results})
	}

	var completed atomic.Int64
	s.scrapePage(ctx, base, cards, doc, result, &completed, outcome.Results, progress)

	for page := 2; page <= outcome.Pages; page++ {
		doc, err := s.searchPage(ctx, base, dateFrom, dateTo, page)
		if err != nil {
			result.Errors = append(result.Errors, euctr.Errorf(euctr.ErrorCode(err), "search page %d: %s", page, euctr.ErrorMessage(err)))
			continue
		}
		s.scrapePage(ctx, base, cards, doc, result, &completed, outcome.Results, progress)
	}

	if progress != nil {
		progress(ProgressEvent{Type: ProgressFinished, Completed: int(completed.Load()), Total: outcome.Results})
	}

	return result, nil
}

// searchPage fetches and parses one search results page.
func (s *Scraper) searchPage(ctx context.Context, base, dateFrom, dateTo string, page int) (*goquery.Document, error) {
	url := SearchURL(base, dateFrom, dateTo, page)
	html, err := s.Fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, euctr.Errorf(euctr.ESTRUCTURAL, "parse search page %s: %v", url, err)
	}
	return doc, nil
}

// scrapePage processes every trial card of one search page with bounded
// concurrency, appending trials and errors to result in card order.
func (s *Scraper) scrapePage(ctx context.Context, base string, cards *eugoquery.CardExtractor, doc *goquery.Document, result *Result, completed *atomic.Int64, total int, progress ProgressFunc) {
	sel := doc.Find("div#tabs table.result")

	results := make([]trialResult, sel.Length())

	g, gctx := errgroup.WithContext(ctx)
	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	g.SetLimit(concurrency)

	sel.Each(func(i int, card *goquery.Selection) {
		g.Go(func() error {
			trial, errs := s.scrapeTrial(gctx, base, cards, card)
			results[i] = trialResult{position: i, trial: trial, errs: errs}
			return nil
		})
	})
	_ = g.Wait()

	for _, r := range results {
		result.Errors = append(result.Errors, r.errs...)
		if r.trial == nil {
			if progress != nil {
				progress(ProgressEvent{
					Type:      ProgressFailed,
					Completed: int(completed.Add(1)),
					Total:     total,
					Error:     errorsHead(r.errs),
				})
			}
			continue
		}
		result.Trials = append(result.Trials, r.trial)
		if progress != nil {
			progress(ProgressEvent{
				Type:          ProgressCompleted,
				Completed:     int(completed.Add(1)),
				Total:         total,
				EudractNumber: r.trial.Card.EudractNumber,
			})
		}
	}
}

// scrapeTrial assembles one trial from its card: the card fields, every
// linked protocol page, and the results document when the card links one.
// A failed card or results page is fatal to the trial; a failed protocol
// page or result version is recorded and the trial is kept.
func (s *Scraper) scrapeTrial(ctx context.Context, base string, cards *eugoquery.CardExtractor, sel *goquery.Selection) (*euctr.Trial, []error) {
	card, err := cards.Extract(sel)
	if err != nil {
		return nil, []error{err}
	}

	trial := &euctr.Trial{Card: card}
	var errs []error

	protocols := eugoquery.NewProtocolExtractor()
	for _, ref := range card.TrialProtocols {
		if ref.ProtocolURL == "" {
			continue
		}
		p, err := s.scrapeProtocol(ctx, protocols, ref.ProtocolURL)
		if err != nil {
			errs = append(errs, euctr.Errorf(euctr.ErrorCode(err), "trial %s: protocol %s: %s", card.EudractNumber, ref.ProtocolURL, euctr.ErrorMessage(err)))
			continue
		}
		trial.Protocols = append(trial.Protocols, p)
	}

	if card.TrialResultsLink != nil {
		results, resultErrs, err := s.scrapeResults(ctx, base, *card.TrialResultsLink)
		for _, re := range resultErrs {
			errs = append(errs, euctr.Errorf(euctr.ErrorCode(re), "trial %s: %s", card.EudractNumber, euctr.ErrorMessage(re)))
		}
		if err != nil {
			errs = append(errs, euctr.Errorf(euctr.ErrorCode(err), "trial %s: results %s: %s", card.EudractNumber, *card.TrialResultsLink, euctr.ErrorMessage(err)))
			return nil, errs
		}
		trial.Results = results
	}

	return trial, errs
}

// scrapeProtocol fetches and extracts one protocol page.
func (s *Scraper) scrapeProtocol(ctx context.Context, protocols *eugoquery.ProtocolExtractor, url string) (*euctr.ProtocolDocument, error) {
	html, err := s.Fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, euctr.Errorf(euctr.ESTRUCTURAL, "parse protocol page: %v", err)
	}
	p, err := protocols.Extract(doc)
	if err != nil {
		return nil, err
	}
	p.URL = url
	return p, nil
}

// scrapeResults fetches and extracts the results document. Version-scoped
// extraction failures come back in the error slice with the partial
// document; the final error is fatal and means no document at all.
func (s *Scraper) scrapeResults(ctx context.Context, base, url string) (*euctr.ResultsDocument, []error, error) {
	html, err := s.Fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, euctr.Errorf(euctr.ESTRUCTURAL, "parse results page: %v", err)
	}

	extractor, err := eugoquery.NewResultExtractor(base,
		eugoquery.WithFetcher(s.Fetcher),
		eugoquery.WithPDFCollector(s.PDFs),
		eugoquery.WithPageURL(url),
	)
	if err != nil {
		return nil, nil, err
	}

	results, err := extractor.Extract(ctx, doc)
	if err != nil {
		if results != nil && results.Len() > 0 {
			return results, []error{err}, nil
		}
		return nil, nil, err
	}
	return results, nil, nil
}

func errorsHead(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}
