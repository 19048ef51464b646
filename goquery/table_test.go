package goquery_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vladiconcure/euctr"
	"github.com/vladiconcure/euctr/goquery"
)

func TestNormalizeTable(t *testing.T) {
	t.Parallel()

	t.Run("single-cell rows become bare strings", func(t *testing.T) {
		t.Parallel()

		html := `<table id="x">
<tr><td>Reporting groups</td></tr>
<tr><td>Placebo</td></tr>
</table>`
		table := parseDoc(t, html).Find("table#x")

		rows := goquery.NormalizeTable(table, "Adverse events")
		require.Len(t, rows, 2)

		require.Len(t, rows[0].Items(), 1)
		assert.Equal(t, "Reporting groups", rows[0].Items()[0].Str())
		assert.Equal(t, "Placebo", rows[1].Items()[0].Str())
	})

	t.Run("suppresses section title and navigation boilerplate", func(t *testing.T) {
		t.Parallel()

		html := `<table id="x">
<tr><td>ADVERSE EVENTS</td></tr>
<tr><td>Top of page</td></tr>
<tr><td>   </td></tr>
<tr><td>Serious adverse events</td></tr>
</table>`
		table := parseDoc(t, html).Find("table#x")

		rows := goquery.NormalizeTable(table, "Adverse events")
		require.Len(t, rows, 1)
		assert.Equal(t, "Serious adverse events", rows[0].Items()[0].Str())
	})

	t.Run("multi-cell row contributes a first-cell-keyed map per text cell", func(t *testing.T) {
		t.Parallel()

		html := `<table id="x">
<tr><td>Number of subjects</td><td>24</td><td>26</td></tr>
</table>`
		table := parseDoc(t, html).Find("table#x")

		rows := goquery.NormalizeTable(table, "Baseline characteristics")
		require.Len(t, rows, 1)

		entries := rows[0].Items()
		require.Len(t, entries, 3)
		for _, entry := range entries {
			require.Equal(t, euctr.KindMap, entry.Kind())
			v, ok := entry.Fields().Get("Number of subjects")
			require.True(t, ok)
			require.Equal(t, euctr.KindList, v.Kind())
			require.Len(t, v.Items(), 2)
			assert.Equal(t, "24", v.Items()[0].Str())
			assert.Equal(t, "26", v.Items()[1].Str())
		}
	})

	t.Run("recurses into nested tables", func(t *testing.T) {
		t.Parallel()

		html := `<table id="x">
<tr><td>
	<table>
	<tr><td>Arm A</td></tr>
	<tr><td>Arm B</td></tr>
	</table>
</td></tr>
<tr><td>After the nested block</td></tr>
</table>`
		table := parseDoc(t, html).Find("table#x")

		rows := goquery.NormalizeTable(table, "Trial information")
		require.Len(t, rows, 2)

		nested := rows[0].Items()
		require.Len(t, nested, 1)
		require.Equal(t, euctr.KindList, nested[0].Kind())
		nestedRows := nested[0].Items()
		require.Len(t, nestedRows, 2)
		assert.Equal(t, "Arm A", nestedRows[0].Items()[0].Str())
		assert.Equal(t, "Arm B", nestedRows[1].Items()[0].Str())

		assert.Equal(t, "After the nested block", rows[1].Items()[0].Str())
	})

	t.Run("row whose nested table is all boilerplate is dropped", func(t *testing.T) {
		t.Parallel()

		html := `<table id="x">
<tr><td>
	<table><tr><td>Top of page</td></tr></table>
</td></tr>
<tr><td>Kept</td></tr>
</table>`
		table := parseDoc(t, html).Find("table#x")

		rows := goquery.NormalizeTable(table, "Trial information")
		require.Len(t, rows, 1)
		assert.Equal(t, "Kept", rows[0].Items()[0].Str())
	})

	t.Run("collapses internal whitespace in cell text", func(t *testing.T) {
		t.Parallel()

		html := `<table id="x">
<tr><td>spread
	over   several
	lines</td></tr>
</table>`
		table := parseDoc(t, html).Find("table#x")

		rows := goquery.NormalizeTable(table, "t")
		require.Len(t, rows, 1)
		assert.Equal(t, "spread over several lines", rows[0].Items()[0].Str())
	})

	t.Run("empty table yields no rows", func(t *testing.T) {
		t.Parallel()

		table := parseDoc(t, `<table id="x"></table>`).Find("table#x")
		assert.Empty(t, goquery.NormalizeTable(table, "t"))
	})
}
