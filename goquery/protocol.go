package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/vladiconcure/euctr"
)

// ProtocolExtractor parses one protocol page into its summary and
// per-section field maps.
type ProtocolExtractor struct{}

// NewProtocolExtractor creates a ProtocolExtractor.
func NewProtocolExtractor() *ProtocolExtractor {
	return &ProtocolExtractor{}
}

// Extract converts a protocol page into a ProtocolDocument. A page
// without the summary table is a structural error.
func (e *ProtocolExtractor) Extract(doc *goquery.Document) (*euctr.ProtocolDocument, error) {
	summary, err := e.summary(doc)
	if err != nil {
		return nil, err
	}

	sections, err := e.sections(doc)
	if err != nil {
		return nil, err
	}

	return &euctr.ProtocolDocument{Summary: summary, Sections: sections}, nil
}

// summary reads the uniquely identified summary table as two-cell
// key/value rows. Labels and values are cleaned of newlines and colons.
func (e *ProtocolExtractor) summary(doc *goquery.Document) (*euctr.Fields, error) {
	body := doc.Find("table.section.summary tbody").First()
	if body.Length() == 0 {
		return nil, euctr.Errorf(euctr.ESTRUCTURAL, "protocol summary table not found")
	}

	summary := euctr.NewFields()
	var rowErr error
	body.Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 2 {
			rowErr = euctr.Errorf(euctr.ESTRUCTURAL, "protocol summary row %d has %d cells, want 2", i, cells.Length())
			return false
		}
		key := summaryText(cells.Eq(0).Text())
		value := summaryText(cells.Eq(1).Text())
		summary.Set(key, euctr.String(value))
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return summary, nil
}

// summaryText trims, then removes newlines and trailing-colon noise.
func summaryText(s string) string {
	return strings.ReplaceAll(cleanText(s), ":", "")
}

// sections reads every table whose identifier matches the section naming
// pattern. The heading cell gives the section key; a section without body
// rows yields a null entry.
func (e *ProtocolExtractor) sections(doc *goquery.Document) (*euctr.Fields, error) {
	sections := euctr.NewFields()
	var sectionErr error

	doc.Find("table[id*='section-']").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		heading := table.Find("th").First()
		if heading.Length() == 0 {
			id, _ := table.Attr("id")
			sectionErr = euctr.Errorf(euctr.ESTRUCTURAL, "protocol section table %q has no heading", id)
			return false
		}
		title := cleanText(heading.Text())
		sections.Set(title, sectionData(table))
		return true
	})
	if sectionErr != nil {
		return nil, sectionErr
	}
	return sections, nil
}

// sectionData converts one section table into a field map. In a
// multi-cell row the second cell is the key and cells from the third
// onward are the values; single-element value lists unwrap to a scalar
// and rows with no values are dropped. A bodyless section is null.
func sectionData(table *goquery.Selection) euctr.Value {
	body := table.Find("tbody").First()
	if body.Length() == 0 {
		return euctr.Null()
	}
	rows := body.Find("tr")
	if rows.Length() == 0 {
		return euctr.Null()
	}

	data := euctr.NewFields()
	rows.Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		key := cleanText(cells.Eq(1).Text())
		var values []string
		cells.Slice(2, cells.Length()).Each(func(_ int, cell *goquery.Selection) {
			values = append(values, cleanText(cell.Text()))
		})
		switch len(values) {
		case 0:
			// no value cells, drop the row
		case 1:
			data.Set(key, euctr.String(values[0]))
		default:
			data.Set(key, euctr.Strings(values))
		}
	})
	return euctr.Map(data)
}
