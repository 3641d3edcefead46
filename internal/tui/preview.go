package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/pricenest/internal/importer"
)

var (
	cellStyle      = lipgloss.NewStyle().PaddingRight(2)
	tableHeadStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("110")).PaddingRight(2)
	summaryStyle   = lipgloss.NewStyle().Bold(true).MarginTop(1)
)

var statusColors = map[importer.RowStatus]lipgloss.Color{
	importer.StatusFound:     lipgloss.Color("42"),
	importer.StatusNotFound:  lipgloss.Color("178"),
	importer.StatusPending:   lipgloss.Color("111"),
	importer.StatusError:     lipgloss.Color("161"),
	importer.StatusDuplicate: lipgloss.Color("214"),
	importer.StatusDeleted:   lipgloss.Color("244"),
}

var previewColumnWidths = []int{4, 11, 28, 32, 9, 40}

func cell(style lipgloss.Style, width int, value string) string {
	return style.Copy().Width(width + 2).Render(truncate(value, width))
}

// RenderPreview formats an import preview as a table with a summary line.
func RenderPreview(p *importer.Preview) string {
	var b strings.Builder

	headers := []string{"#", "STATUS", "CSV TITLE", "MATCH", "PRICE", "NOTE"}
	cols := make([]string, len(headers))
	for i, h := range headers {
		cols[i] = cell(tableHeadStyle, previewColumnWidths[i], h)
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	b.WriteString("\n")

	for _, row := range p.Rows {
		match, price := "", ""
		if row.BestMatch != nil {
			match = row.BestMatch.Name
			if match == "" {
				match = row.BestMatch.Title
			}
			price = formatPrice(row.BestMatch.Price)
		}
		note := row.Message
		if row.DuplicateReason != "" {
			note = row.DuplicateReason
		}

		status := cellStyle.Copy().Foreground(statusColors[row.Status])
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			cell(cellStyle, previewColumnWidths[0], fmt.Sprint(row.Index+1)),
			cell(status, previewColumnWidths[1], string(row.Status)),
			cell(cellStyle, previewColumnWidths[2], row.CSV.Title),
			cell(cellStyle, previewColumnWidths[3], match),
			cell(cellStyle, previewColumnWidths[4], price),
			cell(cellStyle, previewColumnWidths[5], note),
		))
		b.WriteString("\n")
	}

	s := p.Summary
	b.WriteString(summaryStyle.Render(fmt.Sprintf(
		"%d rows: %d found, %d not found, %d pending, %d errors, %d duplicates (%d deleted)",
		s.Total, s.Found, s.NotFound, s.Pending, s.Errors, s.Duplicates, s.Deleted)))
	b.WriteString("\n")
	return b.String()
}
