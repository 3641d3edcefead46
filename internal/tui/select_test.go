package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/pricenest/internal/catalog"
	"github.com/lepinkainen/pricenest/internal/importer"
	pnmodel "github.com/lepinkainen/pricenest/internal/model"
)

func candidates() []catalog.Result {
	return []catalog.Result{
		{Title: "Heat", Year: 1995, Director: "Michael Mann", Genre: "Thriller", Price: 5.99, PriceSource: pnmodel.PriceSourceApplePurchase, ExternalID: "1"},
		{Title: "Heat", Year: 1986, Director: "Dick Richards", Price: 3.49, PriceSource: pnmodel.PriceSourceEstimated, ExternalID: "2"},
		{Title: "Heat Collection", PriceSource: pnmodel.PriceSourceAppleCollection},
	}
}

func stubProgram(t *testing.T, keys ...tea.KeyMsg) {
	t.Helper()
	original := runProgram
	t.Cleanup(func() { runProgram = original })

	runProgram = func(m tea.Model) (tea.Model, error) {
		var cmd tea.Cmd
		for _, key := range keys {
			m, cmd = m.Update(key)
		}
		_ = cmd
		return m, nil
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestSelectPicksHighlightedCandidate(t *testing.T) {
	stubProgram(t, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})

	result, err := Select("Heat", candidates())
	require.NoError(t, err)
	assert.Equal(t, ActionSelected, result.Action)
	assert.Equal(t, 1, result.Index)
	require.NotNil(t, result.Selection)
	assert.Equal(t, 1986, result.Selection.Year)
}

func TestSelectSkipAndStop(t *testing.T) {
	stubProgram(t, runes("s"))
	result, err := Select("Heat", candidates())
	require.NoError(t, err)
	assert.Equal(t, ActionSkipped, result.Action)
	assert.Nil(t, result.Selection)

	stubProgram(t, runes("q"))
	result, err = Select("Heat", candidates())
	require.NoError(t, err)
	assert.Equal(t, ActionStopped, result.Action)
}

func TestSelectWithoutChoice(t *testing.T) {
	original := runProgram
	t.Cleanup(func() { runProgram = original })
	runProgram = func(tea.Model) (tea.Model, error) {
		t.Fatal("no program should run")
		return nil, nil
	}

	result, err := Select("Nothing", nil)
	require.NoError(t, err)
	assert.Equal(t, ActionSkipped, result.Action)

	result, err = Select("Heat", candidates()[:1])
	require.NoError(t, err)
	assert.Equal(t, ActionSelected, result.Action)
	assert.Equal(t, "Michael Mann", result.Selection.Director)
}

func TestSelectPropagatesProgramError(t *testing.T) {
	original := runProgram
	t.Cleanup(func() { runProgram = original })
	runProgram = func(tea.Model) (tea.Model, error) { return nil, errors.New("no tty") }

	_, err := Select("Heat", candidates())
	assert.EqualError(t, err, "no tty")
}

func TestFormatMetadata(t *testing.T) {
	assert.Equal(t, "Michael Mann | Thriller | #1", formatMetadata(candidates()[0], 0))
	assert.Equal(t, "No metadata available", formatMetadata(catalog.Result{}, 0))
	assert.Equal(t, "Michael...", formatMetadata(candidates()[0], 10))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "£5.99", formatPrice(5.99))
	assert.Equal(t, "no price", formatPrice(0))
}

func TestModelView(t *testing.T) {
	items := []candidateItem{{Result: candidates()[0]}}
	view := newModel("Heat", items).View()
	assert.Contains(t, view, "Pick the store listing for: Heat")
	assert.Contains(t, view, "HEAT (1995)")
}

func TestRenderPreview(t *testing.T) {
	match := catalog.Result{Title: "Heat", Name: "Heat (1995)", Price: 5.99}
	preview := &importer.Preview{
		Rows: []importer.Row{
			{Index: 0, CSV: importer.CSVRow{Title: "Heat"}, Status: importer.StatusFound, BestMatch: &match},
			{Index: 1, CSV: importer.CSVRow{Title: "Inception"}, Status: importer.StatusDuplicate, DuplicateReason: "Same title and year (2010)"},
			{Index: 2, CSV: importer.CSVRow{Title: "Nothing"}, Status: importer.StatusNotFound, Message: "No Apple Store results"},
		},
		Summary: importer.Summary{Total: 3, Found: 1, NotFound: 1, Duplicates: 1},
	}

	out := RenderPreview(preview)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.GreaterOrEqual(t, len(lines), 5)
	assert.Contains(t, lines[0], "STATUS")
	assert.Contains(t, out, "Heat (1995)")
	assert.Contains(t, out, "£5.99")
	assert.Contains(t, out, "Same title and year (2010)")
	assert.Contains(t, out, "3 rows: 1 found, 1 not found, 0 pending, 0 errors, 1 duplicates (0 deleted)")
}
