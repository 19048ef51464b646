// Package goquery implements the register extractors over parsed HTML
// documents: trial cards, protocol pages, and results pages. The register
// markup is positionally organized with few stable identifiers, so the
// extractors recover fields by row/cell position and by label scanning.
package goquery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// cleanText trims the text and removes embedded newlines.
func cleanText(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "")
}

// compactText collapses all internal whitespace runs to single spaces.
func compactText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// labelText trims the text and folds newlines to spaces, the form used
// for version labels and link texts.
func labelText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

// resolveURL resolves href against base, returning an absolute URL.
// Relative URLs never escape the extractors.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// ownRows returns the rows belonging to table itself, excluding rows of
// nested tables.
func ownRows(table *goquery.Selection) *goquery.Selection {
	node := table.Get(0)
	return table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		closest := tr.Closest("table")
		return closest.Length() == 1 && closest.Get(0) == node
	})
}

// findLabelCell returns the first label cell whose text contains label.
func findLabelCell(doc *goquery.Document, label string) *goquery.Selection {
	return doc.Find("td.labelColumn").FilterFunction(func(_ int, td *goquery.Selection) bool {
		return strings.Contains(td.Text(), label)
	}).First()
}

// nextCell returns the first following sibling cell of sel.
func nextCell(sel *goquery.Selection) *goquery.Selection {
	return sel.NextAllFiltered("td").First()
}
