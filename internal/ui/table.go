package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muurk/goveectl/internal/metrics"
)

// Table is a plain column-aligned table with a title
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Width   int
}

// NewTable creates a table with the given column headings
func NewTable(title string, headers ...string) *Table {
	return &Table{
		Title:   title,
		Headers: headers,
		Width:   GetTerminalWidth(),
	}
}

// AddRow appends a row. Missing cells render empty.
func (t *Table) AddRow(cells ...string) *Table {
	t.Rows = append(t.Rows, cells)
	return t
}

// SetWidth sets the terminal width for responsive rendering
func (t *Table) SetWidth(width int) *Table {
	t.Width = width
	return t
}

// Render returns the table inside a rounded panel
func (t *Table) Render() string {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i := 0; i < len(widths) && i < len(row); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var lines []string
	if t.Title != "" {
		lines = append(lines, HeaderTitleStyle.Render(strings.ToUpper(t.Title)), "")
	}
	lines = append(lines, "  "+t.renderRow(t.Headers, widths, TableHeaderStyle))
	for _, row := range t.Rows {
		lines = append(lines, "  "+t.renderRow(row, widths, TableCellStyle))
	}
	if len(t.Rows) == 0 {
		lines = append(lines, StepNoteStyle.Render("  (none)"))
	}

	return PanelStyle(clampWidth(t.Width), PrimaryColor).Render(strings.Join(lines, "\n"))
}

func (t *Table) renderRow(cells []string, widths []int, style lipgloss.Style) string {
	parts := make([]string, len(widths))
	for i := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		pad := widths[i] - lipgloss.Width(cell)
		parts[i] = style.Render(cell) + strings.Repeat(" ", pad)
	}
	return strings.TrimRight(strings.Join(parts, "  "), " ")
}

// String implements fmt.Stringer
func (t *Table) String() string {
	return t.Render()
}

// MetricsTable renders metric samples, e.g. after a command run with --stats
func MetricsTable(samples []metrics.Sample) *Table {
	t := NewTable("Statistics", "Metric", "Labels", "Value")
	for _, s := range samples {
		t.AddRow(s.Name, formatLabels(s.Labels), formatValue(s.Value))
	}
	return t
}

func formatLabels(labels string) string {
	if labels == "" {
		return "-"
	}
	return labels
}

func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.4f", v)
}
