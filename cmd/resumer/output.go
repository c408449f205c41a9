package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dgallion1/resumer/internal/outline"
	"github.com/dgallion1/resumer/internal/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

// progressPrinter writes one line per stage change and per finished subsection.
type progressPrinter struct {
	w    io.Writer
	last pipeline.JobStatus
}

func (p *progressPrinter) update(pr pipeline.Progress) {
	if pr.Stage != p.last {
		p.last = pr.Stage
		fmt.Fprintf(p.w, "%s %s\n", dimStyle.Render("stage:"), titleStyle.Render(string(pr.Stage)))
		return
	}
	if pr.Stage == pipeline.StatusSummarizing && pr.TotalSubSections > 0 {
		fmt.Fprintf(p.w, "  %s %d/%d  %s %d\n",
			dimStyle.Render("subsections"), pr.Processed, pr.TotalSubSections,
			dimStyle.Render("ok"), pr.Succeeded,
		)
	}
}

// printResult renders the outcome of a run in a bordered box.
func printResult(w io.Writer, res pipeline.Result) {
	var b strings.Builder
	if res.Success {
		b.WriteString(successStyle.Render("OK") + " " + titleStyle.Render(res.Message))
	} else {
		b.WriteString(errorStyle.Render("FAILED") + " " + titleStyle.Render(res.Message))
	}
	if res.Error != "" {
		fmt.Fprintf(&b, "\n%s %s", dimStyle.Render("Error:"), res.Error)
	}
	if st := res.Statistics; st != nil {
		fmt.Fprintf(&b, "\n%s %d  %s %d  %s %d",
			dimStyle.Render("Sections:"), st.TotalSections,
			dimStyle.Render("Subsections:"), st.TotalSubSections,
			dimStyle.Render("Summaries:"), st.SuccessfulSummaries,
		)
		if failed := st.TotalSubSections - st.SuccessfulSummaries; failed > 0 {
			b.WriteString("  " + warnStyle.Render(fmt.Sprintf("%d failed", failed)))
		}
		fmt.Fprintf(&b, "\n%s %.1fs", dimStyle.Render("Duration:"), float64(st.ProcessingTimeMs)/1000)
	}
	if res.OutputPath != "" {
		fmt.Fprintf(&b, "\n%s %s", dimStyle.Render("Output:"), res.OutputPath)
	}
	fmt.Fprintln(w, boxStyle.Render(b.String()))
}

// printOutline lists detected sections and subsections with content sizes.
func printOutline(w io.Writer, sections []outline.Section, warnings []string) {
	if len(sections) == 0 {
		fmt.Fprintln(w, warnStyle.Render("no sections found"))
		return
	}
	for _, s := range sections {
		fmt.Fprintf(w, "%s %s\n", titleStyle.Render(s.Title), dimStyle.Render(fmt.Sprintf("(%d subsections)", len(s.SubSections))))
		for _, sub := range s.SubSections {
			fmt.Fprintf(w, "  %s %s\n", sub.Title, dimStyle.Render(fmt.Sprintf("%d chars", len(sub.Content))))
		}
	}
	for _, warn := range warnings {
		fmt.Fprintln(w, warnStyle.Render("warning: "+warn))
	}
	summary := fmt.Sprintf("%s %d  %s %d",
		dimStyle.Render("Sections:"), len(sections),
		dimStyle.Render("Subsections:"), outline.CountSubSections(sections),
	)
	fmt.Fprintln(w, boxStyle.Render(summary))
}
