package scrape

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// outcomePattern matches the register's result count banner, e.g.
// "123 result(s) found ... Displaying page 1 of 7.".
var outcomePattern = regexp.MustCompile(`(\d+) result\(s\) found.*page \d+ of (\d+)`)

// SearchURL builds the date-bounded search URL. Dates use the register's
// YYYY-MM-DD form. Page zero means the unpaginated first page.
func SearchURL(base, dateFrom, dateTo string, page int) string {
	u := fmt.Sprintf("%s/ctr-search/search?query=&dateFrom=%s&dateTo=%s",
		strings.TrimSuffix(base, "/"), dateFrom, dateTo)
	if page > 0 {
		u += fmt.Sprintf("&page=%d", page)
	}
	return u
}

// Outcome is the result count banner of a search page.
type Outcome struct {
	Results int
	Pages   int
}

// ParseOutcome reads the search page's outcome banner. The second return
// is false when the page carries no banner, which the register uses for
// an empty result set.
func ParseOutcome(doc *goquery.Document) (*Outcome, bool) {
	banner := doc.Find("div#tabs-1 div.outcome").First()
	if banner.Length() == 0 {
		return nil, false
	}

	// Thousands separators would split the count across match groups.
	text := strings.Join(strings.Fields(strings.ReplaceAll(banner.Text(), ",", "")), " ")
	m := outcomePattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}

	results, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, false
	}
	pages, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, false
	}
	return &Outcome{Results: results, Pages: pages}, true
}
