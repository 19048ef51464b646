package goquery_test

import (
	"strings"
	"testing"

	gq "github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vladiconcure/euctr"
	"github.com/vladiconcure/euctr/goquery"
)

const baseURL = "https://www.clinicaltrialsregister.eu"

func cardSelection(t *testing.T, html string) *gq.Selection {
	t.Helper()
	doc, err := gq.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	card := doc.Find("table.result").First()
	require.Equal(t, 1, card.Length(), "fixture must contain a card table")
	return card
}

const fullCardHTML = `<!DOCTYPE html>
<html><body>
<table class="result">
<tbody>
<tr>
	<td>EudraCT Number: 2010-001</td>
	<td>Sponsor Protocol Number: ABC-1</td>
	<td>Start Date*: 2011-03-01</td>
</tr>
<tr><td>Sponsor Name: Acme Pharma
GmbH</td></tr>
<tr><td>Full Title: A randomised study of something
long</td></tr>
<tr><td>Medical condition: Chronic migraine</td></tr>
<tr><td>Disease:
	<table>
		<tbody>
		<tr>
			<th class="bold">Version</th>
			<th class="bold">SOC Term</th>
			<th class="bold">Classification Code</th>
			<th class="bold">Term</th>
			<th class="bold">Level</th>
		</tr>
		<tr>
			<td>14.1</td><td>10029205</td><td>10027599</td><td>Migraine</td><td>PT</td>
		</tr>
		<tr>
			<td>20.0</td><td>10029205</td><td>10027603</td><td>Migraine with aura</td><td>PT</td>
		</tr>
		</tbody>
	</table>
</td></tr>
<tr>
	<td>Population Age: Adults</td>
	<td>Gender: Male, Female</td>
</tr>
<tr><td>Trial protocol:
	<a href="/ctr-search/trial/2010-001/AT">AT</a><span>(Ongoing)</span>
	<a href="/ctr-search/trial/2010-001/DE">DE</a>
</td></tr>
<tr><td>Trial results: <a href="/ctr-search/trial/2010-001/results">View results</a></td></tr>
</tbody>
</table>
</body></html>`

const diseaseFreeCardHTML = `<!DOCTYPE html>
<html><body>
<table class="result">
<tbody>
<tr>
	<td>EudraCT Number: 2014-555</td>
	<td>Sponsor Protocol Number: XYZ-9</td>
	<td>Start Date*: 2015-06-12</td>
</tr>
<tr><td>Sponsor Name: Beta Biotech</td></tr>
<tr><td>Full Title: Another trial</td></tr>
<tr><td>Medical condition: Asthma</td></tr>
<tr><td>Disease:</td></tr>
<tr>
	<td>Population Age: Adolescents</td>
	<td>Gender: Female</td>
</tr>
<tr><td>Trial protocol: <a href="/ctr-search/trial/2014-555/FR">FR</a></td></tr>
<tr><td>Trial results:</td></tr>
</tbody>
</table>
</body></html>`

func TestCardExtractor_Extract(t *testing.T) {
	t.Parallel()

	t.Run("extracts positional first-row fields", func(t *testing.T) {
		t.Parallel()

		e, err := goquery.NewCardExtractor(baseURL)
		require.NoError(t, err)

		card, err := e.Extract(cardSelection(t, fullCardHTML))
		require.NoError(t, err)

		assert.Equal(t, "2010-001", card.EudractNumber)
		assert.Equal(t, "ABC-1", card.SponsorProtocolNumber)
		assert.Equal(t, "2011-03-01", card.StartDate)
	})

	t.Run("cleans newlines from body fields", func(t *testing.T) {
		t.Parallel()

		e, err := goquery.NewCardExtractor(baseURL)
		require.NoError(t, err)

		card, err := e.Extract(cardSelection(t, fullCardHTML))
		require.NoError(t, err)

		assert.Equal(t, "Acme PharmaGmbH", card.SponsorName)
		assert.Equal(t, "A randomised study of somethinglong", card.FullTitle)
		assert.Equal(t, "Chronic migraine", card.MedicalCondition)
		assert.Equal(t, "Adults", card.PopulationAge)
		assert.Equal(t, "Male, Female", card.Gender)
	})

	t.Run("distributes disease cells round-robin into five columns", func(t *testing.T) {
		t.Parallel()

		e, err := goquery.NewCardExtractor(baseURL)
		require.NoError(t, err)

		card, err := e.Extract(cardSelection(t, fullCardHTML))
		require.NoError(t, err)

		require.NotNil(t, card.Disease)
		require.NotNil(t, card.Disease.Version)
		assert.Equal(t, "14.1 ||| 20.0", *card.Disease.Version)
		assert.Equal(t, "10029205 ||| 10029205", *card.Disease.SOCTerm)
		assert.Equal(t, "10027599 ||| 10027603", *card.Disease.ClassificationCode)
		assert.Equal(t, "Migraine ||| Migraine with aura", *card.Disease.Term)
		assert.Equal(t, "PT ||| PT", *card.Disease.Level)
	})

	t.Run("disease-free card yields five null fields", func(t *testing.T) {
		t.Parallel()

		e, err := goquery.NewCardExtractor(baseURL)
		require.NoError(t, err)

		card, err := e.Extract(cardSelection(t, diseaseFreeCardHTML))
		require.NoError(t, err)

		require.NotNil(t, card.Disease)
		assert.Nil(t, card.Disease.Version)
		assert.Nil(t, card.Disease.SOCTerm)
		assert.Nil(t, card.Disease.ClassificationCode)
		assert.Nil(t, card.Disease.Term)
		assert.Nil(t, card.Disease.Level)
	})

	t.Run("extracts protocol refs with absolute URLs and status", func(t *testing.T) {
		t.Parallel()

		e, err := goquery.NewCardExtractor(baseURL)
		require.NoError(t, err)

		card, err := e.Extract(cardSelection(t, fullCardHTML))
		require.NoError(t, err)

		require.Len(t, card.TrialProtocols, 2)

		assert.Equal(t, "AT", card.TrialProtocols[0].ProtocolName)
		assert.Equal(t, baseURL+"/ctr-search/trial/2010-001/AT", card.TrialProtocols[0].ProtocolURL)
		assert.Equal(t, "Ongoing", card.TrialProtocols[0].ProtocolStatus)

		assert.Equal(t, "DE", card.TrialProtocols[1].ProtocolName)
		assert.Equal(t, baseURL+"/ctr-search/trial/2010-001/DE", card.TrialProtocols[1].ProtocolURL)
		assert.Equal(t, euctr.NoStatusAvailable, card.TrialProtocols[1].ProtocolStatus)
	})

	t.Run("extracts results link when present", func(t *testing.T) {
		t.Parallel()

		e, err := goquery.NewCardExtractor(baseURL)
		require.NoError(t, err)

		card, err := e.Extract(cardSelection(t, fullCardHTML))
		require.NoError(t, err)

		require.NotNil(t, card.TrialResultsLink)
		assert.Equal(t, baseURL+"/ctr-search/trial/2010-001/results", *card.TrialResultsLink)
	})

	t.Run("missing results link yields nil", func(t *testing.T) {
		t.Parallel()

		e, err := goquery.NewCardExtractor(baseURL)
		require.NoError(t, err)

		card, err := e.Extract(cardSelection(t, diseaseFreeCardHTML))
		require.NoError(t, err)

		assert.Nil(t, card.TrialResultsLink)
	})

	t.Run("card with too few rows is a structural error", func(t *testing.T) {
		t.Parallel()

		html := `<table class="result"><tbody>
<tr><td>EudraCT Number: 2010-001</td></tr>
<tr><td>Sponsor Name: Acme</td></tr>
</tbody></table>`

		e, err := goquery.NewCardExtractor(baseURL)
		require.NoError(t, err)

		_, err = e.Extract(cardSelection(t, html))
		assert.Equal(t, euctr.ESTRUCTURAL, euctr.ErrorCode(err))
	})

	t.Run("first row with too few cells is a structural error", func(t *testing.T) {
		t.Parallel()

		html := `<table class="result"><tbody>
<tr><td>EudraCT Number: 2010-001</td></tr>
<tr><td>Sponsor Name: Acme</td></tr>
<tr><td>Full Title: T</td></tr>
<tr><td>Medical condition: C</td></tr>
<tr><td>Population Age: Adults</td><td>Gender: Male</td></tr>
<tr><td>Trial protocol:</td></tr>
<tr><td>Trial results:</td></tr>
</tbody></table>`

		e, err := goquery.NewCardExtractor(baseURL)
		require.NoError(t, err)

		_, err = e.Extract(cardSelection(t, html))
		assert.Equal(t, euctr.ESTRUCTURAL, euctr.ErrorCode(err))
	})

	t.Run("invalid base URL is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := goquery.NewCardExtractor("://bad")
		assert.Equal(t, euctr.EINVALID, euctr.ErrorCode(err))
	})
}
