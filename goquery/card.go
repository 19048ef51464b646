package goquery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/vladiconcure/euctr"
)

// cardPos addresses one card field by row and cell index. A negative row
// counts from the last row. Row indexing is in document order over all
// descendant rows, nested table rows included, because that is how the
// register's card markup is laid out.
type cardPos struct {
	row   int
	cell  int
	label string
}

// cardLayout pins the positional coordinates of every card field in one
// place. The card markup carries no stable identifiers, so recovery is by
// position; when the register shifts its layout, adjust it here.
var cardLayout = struct {
	EudractNumber         cardPos
	SponsorProtocolNumber cardPos
	StartDate             cardPos
	SponsorName           cardPos
	FullTitle             cardPos
	MedicalCondition      cardPos
	PopulationAge         cardPos
	Gender                cardPos
	TrialProtocols        cardPos
	TrialResultsLink      cardPos
}{
	EudractNumber:         cardPos{row: 0, cell: 0, label: "EudraCT Number:"},
	SponsorProtocolNumber: cardPos{row: 0, cell: 1, label: "Sponsor Protocol Number:"},
	StartDate:             cardPos{row: 0, cell: 2, label: "Start Date"},
	SponsorName:           cardPos{row: 1, cell: 0, label: "Sponsor Name:"},
	FullTitle:             cardPos{row: 2, cell: 0, label: "Full Title:"},
	MedicalCondition:      cardPos{row: 3, cell: 0, label: "Medical condition:"},
	PopulationAge:         cardPos{row: -3, cell: 0, label: "Population Age:"},
	Gender:                cardPos{row: -3, cell: 1, label: "Gender:"},
	TrialProtocols:        cardPos{row: -2, cell: 0},
	TrialResultsLink:      cardPos{row: -1, cell: 0},
}

// minCardRows is the smallest card the layout can address: rows 0-3 plus
// three distinct rows from the end.
const minCardRows = 7

// CardExtractor parses one trial's summary card from the register's
// search results page.
type CardExtractor struct {
	base *url.URL
}

// NewCardExtractor creates a CardExtractor resolving protocol and results
// links against baseURL.
func NewCardExtractor(baseURL string) (*CardExtractor, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, euctr.Errorf(euctr.EINVALID, "invalid base URL: %v", err)
	}
	return &CardExtractor{base: base}, nil
}

// Extract converts a card selection into a TrialCard. A card with fewer
// rows or cells than the layout requires is a structural error; the
// caller should record it and continue with sibling cards.
func (e *CardExtractor) Extract(card *goquery.Selection) (*euctr.TrialCard, error) {
	rows := card.Find("tr")
	if rows.Length() < minCardRows {
		return nil, euctr.Errorf(euctr.ESTRUCTURAL, "trial card has %d rows, want at least %d", rows.Length(), minCardRows)
	}

	cell := func(pos cardPos) (*goquery.Selection, error) {
		idx := pos.row
		if idx < 0 {
			idx += rows.Length()
		}
		cells := rows.Eq(idx).Find("td")
		if pos.cell >= cells.Length() {
			return nil, euctr.Errorf(euctr.ESTRUCTURAL, "trial card row %d has %d cells, want at least %d", pos.row, cells.Length(), pos.cell+1)
		}
		return cells.Eq(pos.cell), nil
	}

	field := func(pos cardPos) (string, error) {
		sel, err := cell(pos)
		if err != nil {
			return "", err
		}
		text := strings.Replace(sel.Text(), pos.label, "", 1)
		return cleanText(text), nil
	}

	out := &euctr.TrialCard{}

	eudract, err := field(cardLayout.EudractNumber)
	if err != nil {
		return nil, err
	}
	out.EudractNumber = strings.ReplaceAll(eudract, " ", "")

	if out.SponsorProtocolNumber, err = field(cardLayout.SponsorProtocolNumber); err != nil {
		return nil, err
	}

	start, err := field(cardLayout.StartDate)
	if err != nil {
		return nil, err
	}
	out.StartDate = strings.NewReplacer("*", "", ":", "", " ", "").Replace(start)

	if out.SponsorName, err = field(cardLayout.SponsorName); err != nil {
		return nil, err
	}
	if out.FullTitle, err = field(cardLayout.FullTitle); err != nil {
		return nil, err
	}
	if out.MedicalCondition, err = field(cardLayout.MedicalCondition); err != nil {
		return nil, err
	}
	if out.PopulationAge, err = field(cardLayout.PopulationAge); err != nil {
		return nil, err
	}
	if out.Gender, err = field(cardLayout.Gender); err != nil {
		return nil, err
	}

	out.Disease = e.disease(card)

	protocolCell, err := cell(cardLayout.TrialProtocols)
	if err != nil {
		return nil, err
	}
	out.TrialProtocols = e.trialProtocols(protocolCell)

	resultsCell, err := cell(cardLayout.TrialResultsLink)
	if err != nil {
		return nil, err
	}
	out.TrialResultsLink = e.trialResultsLink(resultsCell)

	return out, nil
}

// disease reads the card's nested disease classification table, if any.
// Classification cells are distributed round-robin into the five columns
// in document order; cells with a class attribute are header/style cells
// and do not count.
func (e *CardExtractor) disease(card *goquery.Selection) *euctr.DiseaseClassification {
	out := &euctr.DiseaseClassification{}

	table := card.Find("table").First()
	if table.Length() == 0 {
		return out
	}

	var columns [5][]string
	table.Find("td").FilterFunction(func(_ int, td *goquery.Selection) bool {
		class, _ := td.Attr("class")
		return class == ""
	}).Each(func(i int, td *goquery.Selection) {
		columns[i%5] = append(columns[i%5], strings.TrimSpace(td.Text()))
	})

	out.Version = joinColumn(columns[0])
	out.SOCTerm = joinColumn(columns[1])
	out.ClassificationCode = joinColumn(columns[2])
	out.Term = joinColumn(columns[3])
	out.Level = joinColumn(columns[4])
	return out
}

// joinColumn joins one disease column with the " ||| " separator, or
// returns nil for an empty column.
func joinColumn(parts []string) *string {
	if len(parts) == 0 {
		return nil
	}
	s := strings.Join(parts, " ||| ")
	return &s
}

// trialProtocols reads every protocol link in the designated cell. A
// status marker is the span immediately following the link; links without
// one get the sentinel status.
func (e *CardExtractor) trialProtocols(cell *goquery.Selection) []*euctr.ProtocolRef {
	refs := []*euctr.ProtocolRef{}
	cell.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		status := euctr.NoStatusAvailable
		if span := a.NextFiltered("span"); span.Length() > 0 {
			status = strings.NewReplacer("(", "", ")", "").Replace(cleanText(span.Text()))
		}
		refs = append(refs, &euctr.ProtocolRef{
			ProtocolName:   cleanText(a.Text()),
			ProtocolURL:    resolveURL(e.base, href),
			ProtocolStatus: status,
		})
	})
	return refs
}

// trialResultsLink reads the href of the first link in the last row's
// first cell, or nil when the trial has no published results.
func (e *CardExtractor) trialResultsLink(cell *goquery.Selection) *string {
	a := cell.Find("a").First()
	if a.Length() == 0 {
		return nil
	}
	href, ok := a.Attr("href")
	if !ok {
		return nil
	}
	resolved := resolveURL(e.base, href)
	return &resolved
}
