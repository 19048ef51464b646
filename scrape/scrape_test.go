package scrape_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vladiconcure/euctr"
	"github.com/vladiconcure/euctr/mock"
	"github.com/vladiconcure/euctr/scrape"
)

const testBase = "https://register.test"

// cardHTML builds a minimal trial card. resultsLink may be empty for a
// trial without published results.
func cardHTML(eudract, protocolHref, resultsHref string) string {
	resultsCell := "Trial results:"
	if resultsHref != "" {
		resultsCell = fmt.Sprintf(`Trial results: <a href="%s">View results</a>`, resultsHref)
	}
	return fmt.Sprintf(`<table class="result">
<tbody>
<tr>
	<td>EudraCT Number: %s</td>
	<td>Sponsor Protocol Number: SP-1</td>
	<td>Start Date*: 2020-01-01</td>
</tr>
<tr><td>Sponsor Name: Acme</td></tr>
<tr><td>Full Title: A study</td></tr>
<tr><td>Medical condition: Migraine</td></tr>
<tr><td>Disease:</td></tr>
<tr><td>Population Age: Adults</td><td>Gender: Female</td></tr>
<tr><td>Trial protocol: <a href="%s">AT</a><span>(Completed)</span></td></tr>
<tr><td>%s</td></tr>
</tbody>
</table>`, eudract, protocolHref, resultsCell)
}

func searchPage(banner string, cards ...string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html><body>
<div id="tabs">
<div id="tabs-1"><div class="outcome">%s</div></div>
%s
</div>
</body></html>`, banner, strings.Join(cards, "\n"))
}

const protocolPage = `<html><body>
<table class="section summary"><tbody>
<tr><td>EudraCT Number:</td><td>x</td></tr>
</tbody></table>
<table id="section-a" class="section">
<thead><tr><th>A. Protocol Information</th></tr></thead>
<tbody><tr><td>A.1</td><td>Member State Concerned</td><td>Austria - BASG</td></tr></tbody>
</table>
</body></html>`

const resultsPage = `<html><body>
<div id="resultContent"><table><tbody>
<tr><td class="labelColumn">EudraCT number</td><td>2020-111</td></tr>
<tr><td class="labelColumn">Trial protocol</td><td><a href="/t/AT">AT</a></td></tr>
<tr><td class="labelColumn">Results version number</td><td>v1</td></tr>
<tr><td class="labelColumn">Results information</td><td></td></tr>
<tr><td>Analysis stage</td><td>Final</td></tr>
</tbody></table></div>
</body></html>`

// routes builds a fetcher serving fixed pages by URL.
func routes(t *testing.T, pages map[string]string) *mock.Fetcher {
	t.Helper()
	return &mock.Fetcher{
		FetchFn: func(_ context.Context, url string) (string, error) {
			page, ok := pages[url]
			if !ok {
				return "", fmt.Errorf("unexpected fetch: %s", url)
			}
			return page, nil
		},
	}
}

func TestScraper_ScrapeRange(t *testing.T) {
	t.Parallel()

	t.Run("assembles cards, protocols, and results", func(t *testing.T) {
		t.Parallel()

		pages := map[string]string{
			scrape.SearchURL(testBase, "2020-01-01", "2020-01-01", 0): searchPage(
				"2 result(s) found. Displaying page 1 of 1.",
				cardHTML("2020-111", "/ctr-search/trial/2020-111/AT", "/ctr-search/trial/2020-111/results"),
				cardHTML("2020-222", "/ctr-search/trial/2020-222/AT", ""),
			),
			testBase + "/ctr-search/trial/2020-111/AT":      protocolPage,
			testBase + "/ctr-search/trial/2020-222/AT":      protocolPage,
			testBase + "/ctr-search/trial/2020-111/results": resultsPage,
		}

		s := &scrape.Scraper{Fetcher: routes(t, pages), BaseURL: testBase}
		result, err := s.ScrapeRange(context.Background(), "2020-01-01", "2020-01-01", nil)
		require.NoError(t, err)

		assert.Empty(t, result.Errors)
		assert.Equal(t, 2, result.Found)
		assert.Equal(t, 1, result.Pages)
		require.Len(t, result.Trials, 2)

		first := result.Trials[0]
		assert.Equal(t, "2020-111", first.Card.EudractNumber)
		require.Len(t, first.Protocols, 1)
		assert.Equal(t, testBase+"/ctr-search/trial/2020-111/AT", first.Protocols[0].URL)
		require.NotNil(t, first.Results)
		assert.Equal(t, []string{"v1"}, first.Results.Versions())

		second := result.Trials[1]
		assert.Equal(t, "2020-222", second.Card.EudractNumber)
		assert.Nil(t, second.Results)
	})

	t.Run("walks every search page", func(t *testing.T) {
		t.Parallel()

		pages := map[string]string{
			scrape.SearchURL(testBase, "2020-01-01", "2020-01-02", 0): searchPage(
				"2 result(s) found. Displaying page 1 of 2.",
				cardHTML("2020-111", "/p1", ""),
			),
			scrape.SearchURL(testBase, "2020-01-01", "2020-01-02", 2): searchPage(
				"2 result(s) found. Displaying page 2 of 2.",
				cardHTML("2020-222", "/p2", ""),
			),
			testBase + "/p1": protocolPage,
			testBase + "/p2": protocolPage,
		}

		s := &scrape.Scraper{Fetcher: routes(t, pages), BaseURL: testBase}
		result, err := s.ScrapeRange(context.Background(), "2020-01-01", "2020-01-02", nil)
		require.NoError(t, err)

		require.Len(t, result.Trials, 2)
		assert.Equal(t, "2020-111", result.Trials[0].Card.EudractNumber)
		assert.Equal(t, "2020-222", result.Trials[1].Card.EudractNumber)
	})

	t.Run("range without results is empty", func(t *testing.T) {
		t.Parallel()

		pages := map[string]string{
			scrape.SearchURL(testBase, "2020-01-01", "2020-01-01", 0): `<html><body><div id="tabs"><div id="tabs-1"></div></div></body></html>`,
		}

		s := &scrape.Scraper{Fetcher: routes(t, pages), BaseURL: testBase}
		result, err := s.ScrapeRange(context.Background(), "2020-01-01", "2020-01-01", nil)
		require.NoError(t, err)

		assert.Empty(t, result.Trials)
		assert.Empty(t, result.Errors)
		assert.Zero(t, result.Found)
	})

	t.Run("unreachable search page fails the scrape", func(t *testing.T) {
		t.Parallel()

		fetcher := &mock.Fetcher{
			FetchFn: func(context.Context, string) (string, error) {
				return "", euctr.Errorf(euctr.ECOLLABORATOR, "register unreachable")
			},
		}

		s := &scrape.Scraper{Fetcher: fetcher, BaseURL: testBase}
		_, err := s.ScrapeRange(context.Background(), "2020-01-01", "2020-01-01", nil)
		require.Error(t, err)
		assert.Equal(t, euctr.ECOLLABORATOR, euctr.ErrorCode(err))
	})

	t.Run("failed protocol page keeps the trial", func(t *testing.T) {
		t.Parallel()

		searchURL := scrape.SearchURL(testBase, "2020-01-01", "2020-01-01", 0)
		fetcher := &mock.Fetcher{
			FetchFn: func(_ context.Context, url string) (string, error) {
				if url == searchURL {
					return searchPage("1 result(s) found. Displaying page 1 of 1.",
						cardHTML("2020-111", "/broken", "")), nil
				}
				return "", errors.New("connection reset")
			},
		}

		s := &scrape.Scraper{Fetcher: fetcher, BaseURL: testBase}
		result, err := s.ScrapeRange(context.Background(), "2020-01-01", "2020-01-01", nil)
		require.NoError(t, err)

		require.Len(t, result.Trials, 1)
		assert.Empty(t, result.Trials[0].Protocols)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0].Error(), "2020-111")
	})

	t.Run("failed results page drops the trial", func(t *testing.T) {
		t.Parallel()

		searchURL := scrape.SearchURL(testBase, "2020-01-01", "2020-01-01", 0)
		protocolURL := testBase + "/ok"
		fetcher := &mock.Fetcher{
			FetchFn: func(_ context.Context, url string) (string, error) {
				switch url {
				case searchURL:
					return searchPage("1 result(s) found. Displaying page 1 of 1.",
						cardHTML("2020-111", "/ok", "/results")), nil
				case protocolURL:
					return protocolPage, nil
				default:
					return "", errors.New("connection reset")
				}
			},
		}

		s := &scrape.Scraper{Fetcher: fetcher, BaseURL: testBase}
		result, err := s.ScrapeRange(context.Background(), "2020-01-01", "2020-01-01", nil)
		require.NoError(t, err)

		assert.Empty(t, result.Trials)
		require.NotEmpty(t, result.Errors)
	})

	t.Run("reports progress per trial", func(t *testing.T) {
		t.Parallel()

		pages := map[string]string{
			scrape.SearchURL(testBase, "2020-01-01", "2020-01-01", 0): searchPage(
				"1 result(s) found. Displaying page 1 of 1.",
				cardHTML("2020-111", "/p", ""),
			),
			testBase + "/p": protocolPage,
		}

		var events []scrape.ProgressEvent
		s := &scrape.Scraper{Fetcher: routes(t, pages), BaseURL: testBase}
		_, err := s.ScrapeRange(context.Background(), "2020-01-01", "2020-01-01", func(e scrape.ProgressEvent) {
			events = append(events, e)
		})
		require.NoError(t, err)

		require.Len(t, events, 3)
		assert.Equal(t, scrape.ProgressStarted, events[0].Type)
		assert.Equal(t, 1, events[0].Total)
		assert.Equal(t, scrape.ProgressCompleted, events[1].Type)
		assert.Equal(t, "2020-111", events[1].EudractNumber)
		assert.Equal(t, scrape.ProgressFinished, events[2].Type)
	})
}
