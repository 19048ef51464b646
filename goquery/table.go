package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/vladiconcure/euctr"
)

// NormalizeTable converts a table, possibly containing nested tables,
// into an ordered list of row results. contextTitle is the enclosing
// section title; cells repeating it (or the "top of page" navigation
// text) are boilerplate and suppressed, case-insensitively.
//
// A cell holding a nested table contributes the recursively normalized
// table as a list entry. A text cell in a multi-cell row contributes a
// single-key map from the row's first cell text to the texts of all
// subsequent cells; in a single-cell row it contributes the bare text.
// Rows that produce no entries are dropped.
func NormalizeTable(table *goquery.Selection, contextTitle string) []euctr.Value {
	banned := map[string]bool{
		strings.ToLower(contextTitle): true,
		"top of page":                 true,
	}
	return normalizeTable(table, banned)
}

func normalizeTable(table *goquery.Selection, banned map[string]bool) []euctr.Value {
	var out []euctr.Value

	ownRows(table).Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("th, td")
		var entries []euctr.Value
		valid := false

		cells.Each(func(_ int, cell *goquery.Selection) {
			if nested := cell.Find("table").First(); nested.Length() > 0 {
				nestedRows := normalizeTable(nested, banned)
				entries = append(entries, euctr.List(nestedRows...))
				if len(nestedRows) > 0 {
					valid = true
				}
				return
			}

			text := compactText(cell.Text())
			if text == "" || banned[strings.ToLower(text)] {
				return
			}
			if cells.Length() > 1 {
				entries = append(entries, rowEntry(cells))
			} else {
				entries = append(entries, euctr.String(text))
			}
			valid = true
		})

		if valid {
			out = append(out, euctr.List(entries...))
		}
	})

	return out
}

// rowEntry collapses a multi-cell row into a single-key map from the
// first cell's text to the texts of all subsequent cells.
func rowEntry(cells *goquery.Selection) euctr.Value {
	var rest []string
	cells.Slice(1, cells.Length()).Each(func(_ int, cell *goquery.Selection) {
		rest = append(rest, compactText(cell.Text()))
	})
	entry := euctr.NewFields()
	entry.Set(compactText(cells.Eq(0).Text()), euctr.Strings(rest))
	return euctr.Map(entry)
}
