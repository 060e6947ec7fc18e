// Package tui renders terminal reports. Simple streaming output, no
// alternate screen - just styled text.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"

	"github.com/daftar/daftar/pkg/analysis"
)

// Colors (Swiss minimal)
var (
	accent  = lipgloss.Color("#FF5F00")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
)

// ProgressReader wraps an input stream with a byte progress bar. size
// may be -1 when unknown.
func ProgressReader(r io.Reader, size int64, label string) io.Reader {
	bar := progressbar.DefaultBytes(size, label)
	pr := progressbar.NewReader(r, bar)
	return &pr
}

// PrintReport writes a full report to the terminal.
func PrintReport(w io.Writer, rep *analysis.Report) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("DAFTAR · Analisis Data Pendaftaran Murid"))
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("  %s · %d baris · %d baris dilewati",
		rep.Source, rep.Rows, rep.SkippedRows)))

	for _, section := range rep.Sections {
		fmt.Fprintln(w)
		fmt.Fprintln(w, accentStyle.Render("▸ "+strings.ToUpper(section.Title)))

		for _, m := range section.Metrics {
			fmt.Fprintf(w, "  %-28s %s\n", m.Label, titleStyle.Render(fmt.Sprintf("%d", m.Value)))
		}

		for _, c := range section.Charts {
			if len(c.Table.Counts) == 0 {
				continue
			}
			fmt.Fprintln(w, mutedStyle.Render("  "+c.Title))
			printCounts(w, c.Table)
		}

		for _, insight := range section.Insights {
			fmt.Fprintln(w, successStyle.Render("  ✓ ")+insight)
		}
	}
	fmt.Fprintln(w)
}

// printCounts renders a count table as labeled terminal bars.
func printCounts(w io.Writer, t analysis.CountTable) {
	max := 0
	labelWidth := 0
	for _, c := range t.Counts {
		if c.N > max {
			max = c.N
		}
		if l := lipgloss.Width(c.Value); l > labelWidth {
			labelWidth = l
		}
	}
	if labelWidth > 32 {
		labelWidth = 32
	}

	for _, c := range t.Counts {
		label := c.Value
		if lipgloss.Width(label) > labelWidth {
			label = string([]rune(label)[:labelWidth-1]) + "…"
		}
		fmt.Fprintf(w, "    %-*s %s %d\n", labelWidth, label, bar(c.N, max), c.N)
	}
}

// bar scales a count into a fixed-width block bar.
func bar(n, max int) string {
	const width = 30
	if max == 0 {
		return ""
	}
	filled := n * width / max
	if filled == 0 && n > 0 {
		filled = 1
	}
	return accentStyle.Render(strings.Repeat("█", filled))
}

// PrintError writes a styled error line.
func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w, lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Render("✗ ")+err.Error())
}
