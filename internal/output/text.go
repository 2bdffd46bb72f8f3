package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

// Textln outputs formatted text with a newline to the formatter's writer
func (f *Formatter) Textln(format string, args ...any) {
	fmt.Fprintf(f.writer, format+"\n", args...)
}

// Line outputs a blank line
func (f *Formatter) Line() {
	fmt.Fprintln(f.writer)
}

// Heading writes a bold line.
func (f *Formatter) Heading(text string) {
	fmt.Fprintln(f.writer, f.styles.Title.Render(text))
}

// Badge renders a bracketed, upper-cased label styled by severity or status
// name.
func (f *Formatter) Badge(label string) string {
	text := "[" + strings.ToUpper(label) + "]"
	return f.styleFor(label).Render(text)
}

// Status renders a status word in its colour.
func (f *Formatter) Status(status string) string {
	return f.styleFor(status).Render(status)
}

func (f *Formatter) styleFor(label string) lipgloss.Style {
	switch strings.ToLower(label) {
	case "blocking", "error", "disabled", "regression":
		return f.styles.Blocking
	case "warn", "warning", "deprecated", "observe":
		return f.styles.Warning
	case "info", "neutral", "rule_only", "insufficient_evidence":
		return f.styles.Info
	case "ok", "allowed", "evidence_backed", "improvement":
		return f.styles.OK
	}
	return f.styles.Muted
}

// Paragraph writes text word-wrapped to the formatter width and indented by
// pad spaces.
func (f *Formatter) Paragraph(text string, pad int) {
	fmt.Fprintln(f.writer, Wrap(text, f.Width(), pad))
}

// Wrap word-wraps text to width columns including an indent of pad spaces.
func Wrap(text string, width, pad int) string {
	if width-pad < 20 {
		width = pad + 20
	}
	wrapped := wordwrap.String(text, width-pad)
	return indent.String(wrapped, uint(pad))
}

// Table outputs tabular data in text format
type Table struct {
	writer   io.Writer
	headers  []string
	rows     [][]string
	widths   []int
	maxWidth int
}

// NewTable creates a new table with headers
func NewTable(w io.Writer, headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	return &Table{
		writer:  w,
		headers: headers,
		rows:    [][]string{},
		widths:  widths,
	}
}

// WithMaxColumnWidth truncates cells wider than n columns. Zero disables it.
func (t *Table) WithMaxColumnWidth(n int) *Table {
	t.maxWidth = n
	for i := range t.widths {
		if n > 0 && t.widths[i] > n {
			t.widths[i] = n
		}
	}
	return t
}

// AddRow adds a row to the table
func (t *Table) AddRow(cols ...string) {
	for i, c := range cols {
		if t.maxWidth > 0 {
			c = Truncate(c, t.maxWidth)
			cols[i] = c
		}
		w := runewidth.StringWidth(c)
		if i < len(t.widths) && w > t.widths[i] {
			t.widths[i] = w
		}
	}
	t.rows = append(t.rows, cols)
}

// RowCount returns the number of data rows.
func (t *Table) RowCount() int {
	return len(t.rows)
}

// Render outputs the table
func (t *Table) Render() {
	t.renderRow(t.headers)

	seps := make([]string, len(t.widths))
	for i, w := range t.widths {
		seps[i] = strings.Repeat("-", w)
	}
	t.renderRow(seps)

	for _, row := range t.rows {
		t.renderRow(row)
	}
}

func (t *Table) renderRow(cols []string) {
	cells := make([]string, len(t.headers))
	for i := range t.headers {
		cell := ""
		if i < len(cols) {
			cell = cols[i]
		}
		cells[i] = runewidth.FillRight(cell, t.widths[i])
	}
	fmt.Fprintln(t.writer, strings.TrimRight("  "+strings.Join(cells, "  "), " "))
}

// Truncate shortens s to at most maxWidth display columns, adding "..." when
// anything was cut.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// Pluralize returns singular or plural form based on count
func Pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}

// CountStr returns "N item(s)" string
func CountStr(count int, singular, plural string) string {
	return fmt.Sprintf("%d %s", count, Pluralize(count, singular, plural))
}
