// Package reporters выводит находки: таблица в терминал, JSON и HTML.
package reporters

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/devos-os/d-scan/internal/core"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#6C5CE7"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	meta        = lipgloss.NewStyle().Foreground(lipgloss.Color("#636e72"))
	success     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00B894"))

	severityStyles = map[core.Severity]lipgloss.Style{
		core.SevCritical: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e74c3c")),
		core.SevHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("#e67e22")),
		core.SevMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("#f1c40f")),
		core.SevLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("#3498db")),
	}
)

const maxMatchWidth = 60

// PrintTable renders findings as an aligned table followed by the summary.
func PrintTable(w io.Writer, findings []core.Finding) {
	if len(findings) == 0 {
		fmt.Fprintln(w, success.Render("✨ All clear. Good job."))
		return
	}

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("🔥 Total Issues: %d", len(findings))))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, headerStyle.Render("SEVERITY\tCATEGORY\tRULE\tLOCATION\tMATCH"))
	for _, f := range findings {
		loc := f.File
		if f.Line > 0 {
			loc += ":" + strconv.Itoa(f.Line)
		}
		if loc == "" {
			loc = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			severityStyles[f.Severity].Render(f.Severity.String()),
			f.Category,
			f.Rule,
			meta.Render(loc),
			clip(f.Match, maxMatchWidth),
		)
	}
	tw.Flush()

	s := core.Summarize(findings)
	fmt.Fprintf(w, "\ncritical: %d  high: %d  medium: %d  low: %d\n", s.Critical, s.High, s.Medium, s.Low)
}

// PrintDetails prints one block per finding with message and fix.
func PrintDetails(w io.Writer, findings []core.Finding) {
	for _, f := range findings {
		style := severityStyles[f.Severity]
		fmt.Fprintf(w, "%s %s: %s\n", style.Render("["+f.Severity.String()+"]"), f.Rule, f.Message)
		if f.File != "" {
			fmt.Fprintf(w, "    %s\n", meta.Render(fmt.Sprintf("%s:%d", f.File, f.Line)))
		}
		if f.Fix != "" {
			fmt.Fprintf(w, "    💡 %s\n", f.Fix)
		}
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
