package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/panbanda/asaclean/pkg/analyzer/cleanup"
)

// CleanupReport renders a cleanup result. The text form is the plain removal
// report; markdown and data forms add the summary and diagnostics.
type CleanupReport struct {
	Source     string
	Result     *cleanup.Result
	Categories []cleanup.Category
}

// NewCleanupReport wraps a result for rendering.
func NewCleanupReport(source string, res *cleanup.Result, categories []cleanup.Category) *CleanupReport {
	return &CleanupReport{Source: source, Result: res, Categories: categories}
}

// CleanupData is the serialized form of a cleanup report.
type CleanupData struct {
	Source     string                  `json:"source" toon:"source"`
	MatchMode  cleanup.MatchMode       `json:"match_mode" toon:"match_mode"`
	Fixpoint   bool                    `json:"fixpoint" toon:"fixpoint"`
	Converged  bool                    `json:"converged" toon:"converged"`
	Sections   []cleanup.Section       `json:"sections" toon:"sections"`
	Directives []cleanup.Directive     `json:"directives" toon:"directives"`
	Summary    cleanup.Summary         `json:"summary" toon:"summary"`
	Malformed  []cleanup.MalformedLine `json:"malformed,omitempty" toon:"malformed,omitempty"`
}

func (r *CleanupReport) RenderData() any {
	directives := r.Result.Directives(r.Categories)
	if directives == nil {
		directives = []cleanup.Directive{}
	}
	return CleanupData{
		Source:     r.Source,
		MatchMode:  r.Result.MatchMode,
		Fixpoint:   r.Result.Fixpoint,
		Converged:  r.Result.Converged,
		Sections:   r.Result.Sections(r.Categories),
		Directives: directives,
		Summary:    r.Result.Summary,
		Malformed:  r.Result.Malformed,
	}
}

func (r *CleanupReport) RenderText(w io.Writer, colored bool) error {
	sections := r.Result.Sections(r.Categories)
	if !colored {
		return cleanup.WriteReport(w, sections)
	}

	label := color.New(color.Bold)
	for i, s := range sections {
		if i > 0 {
			fmt.Fprintln(w)
		}
		label.Fprintln(w, s.Label+":")
		for _, cmd := range s.Commands {
			fmt.Fprintln(w, cmd)
		}
	}
	return nil
}

func (r *CleanupReport) RenderMarkdown(w io.Writer) error {
	fmt.Fprintf(w, "# Cleanup Report: %s\n\n", r.Source)
	fmt.Fprintf(w, "Match mode: `%s`", r.Result.MatchMode)
	if r.Result.Fixpoint {
		fmt.Fprintf(w, ", fixpoint (%d cycles)", len(r.Result.Cycles))
		if !r.Result.Converged {
			fmt.Fprint(w, ", stopped at the cycle limit")
		}
	}
	fmt.Fprint(w, "\n\n")

	for _, s := range r.Result.Sections(r.Categories) {
		fmt.Fprintf(w, "## %s\n\n", s.Label)
		if len(s.Commands) == 0 {
			fmt.Fprint(w, "_None._\n\n")
			continue
		}
		fmt.Fprintln(w, "```")
		for _, cmd := range s.Commands {
			fmt.Fprintln(w, cmd)
		}
		fmt.Fprint(w, "```\n\n")
	}

	if err := SummaryTable(r.Result).RenderMarkdown(w); err != nil {
		return err
	}

	if len(r.Result.Malformed) > 0 {
		fmt.Fprint(w, "## Diagnostics\n\n")
		for _, m := range r.Result.Malformed {
			fmt.Fprintf(w, "- line %d (%s): %s: `%s`\n", m.Line, m.Kind, m.Reason, m.Text)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// SummaryTable tabulates declared, removed and kept names per category.
func SummaryTable(res *cleanup.Result) *Table {
	s := res.Summary
	rows := make([][]string, 0, len(s.Categories))
	declared, kept, lines := 0, 0, 0
	for _, c := range s.Categories {
		rows = append(rows, []string{
			c.Label,
			strconv.Itoa(c.Declared),
			strconv.Itoa(c.Removed),
			strconv.Itoa(c.Kept),
			strconv.Itoa(c.LinesRemoved),
		})
		declared += c.Declared
		kept += c.Kept
		lines += c.LinesRemoved
	}
	footer := []string{
		"Total",
		strconv.Itoa(declared),
		strconv.Itoa(s.TotalRemoved),
		strconv.Itoa(kept),
		strconv.Itoa(lines),
	}
	return NewTable("Summary",
		[]string{"Category", "Declared", "Removed", "Kept", "Lines Removed"},
		rows, footer, s)
}
