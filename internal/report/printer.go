// Package report renders discovery progress and results for the terminal and
// as JSON.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"

	"github.com/dbsmedya/fdscan/internal/fd"
)

// Printer streams a run to w. It implements fd.Observer so confirmed
// dependencies appear as soon as they are found.
type Printer struct {
	w       io.Writer
	color   bool
	verbose bool
}

// NewPrinter creates a printer. With useColor false no escape codes are written.
func NewPrinter(w io.Writer, useColor bool) *Printer {
	return &Printer{w: w, color: useColor}
}

// SetVerbose makes the printer report rejected and failed candidates as well.
func (p *Printer) SetVerbose(v bool) {
	p.verbose = v
}

func (p *Printer) paint(c color.Color, s string) string {
	if !p.color {
		return s
	}
	return c.Sprint(s)
}

// Header prints the run banner with the table and its columns.
func (p *Printer) Header(source, table string, columns []string) {
	PrintHeader(p.w, "Functional Dependency Discovery")
	fmt.Fprintf(p.w, "\nSource:  %s\n", source)
	fmt.Fprintf(p.w, "Table:   %s\n", p.paint(color.Cyan, table))
	fmt.Fprintf(p.w, "📋 Columns found: %s\n", strings.Join(columns, ", "))
}

func (p *Printer) StratumStarted(size, checks int) {
	fmt.Fprintf(p.w, "\n🔍 Checking LHS size %d (%d candidates)...\n", size, checks)
}

func (p *Printer) CandidateVerified(c fd.Check) {
	if !p.verbose {
		return
	}
	switch {
	case c.Err != nil:
		fmt.Fprintf(p.w, "  %s %s: %v\n", p.paint(color.Yellow, "⚠️"), c.Dependency, c.Err)
	case !c.Holds:
		fmt.Fprintf(p.w, "  %s\n", p.paint(color.Gray, "· "+c.Dependency.String()))
	}
}

func (p *Printer) DependencyFound(d fd.Dependency) {
	fmt.Fprintf(p.w, "%s %s\n", p.paint(color.Green, "✅"), d)
}

// Summary prints the final dependency list, failures, candidate keys and run
// statistics. A run that found nothing says so explicitly.
func (p *Printer) Summary(res *fd.Result, keys []fd.AttributeSet) {
	if res.Count() == 0 {
		fmt.Fprintf(p.w, "\n%s No valid functional dependencies found (with LHS size <= %d).\n",
			p.paint(color.Red, "❌"), res.MaxLHSSize)
	} else {
		fmt.Fprintf(p.w, "\n%s Found %d valid (minimal) dependencies:\n", p.paint(color.Green, "✅"), res.Count())
		for _, d := range res.Dependencies {
			fmt.Fprintf(p.w, "  %s\n", d)
		}
	}

	if len(res.Failures) > 0 {
		fmt.Fprintf(p.w, "\n%s %d candidate(s) could not be verified:\n", p.paint(color.Yellow, "⚠️"), len(res.Failures))
		for _, f := range res.Failures {
			fmt.Fprintf(p.w, "  %s: %v\n", f.Dependency, f.Err)
		}
	}

	if len(keys) > 0 {
		fmt.Fprintln(p.w)
		PrintSection(p.w, "Candidate Keys")
		for _, k := range keys {
			fmt.Fprintf(p.w, "  (%s)\n", k)
		}
	}

	s := res.Stats
	fmt.Fprintln(p.w)
	PrintSection(p.w, "Statistics")
	PrintPairs(p.w, [][2]string{
		{"LHS sizes", fmt.Sprintf("%d", s.Strata)},
		{"Candidates", fmt.Sprintf("%d", s.Candidates)},
		{"Checks", fmt.Sprintf("%d", s.Checks)},
		{"Trivial", fmt.Sprintf("%d", s.Trivial)},
		{"Pruned", fmt.Sprintf("%d", s.Pruned)},
		{"Verified", fmt.Sprintf("%d", s.Verified)},
		{"Confirmed", fmt.Sprintf("%d", s.Confirmed)},
		{"Failed", fmt.Sprintf("%d", s.Failed)},
		{"Duration", s.Duration.Round(time.Millisecond).String()},
	})
}

// PrintHeader prints a boxed title.
func PrintHeader(w io.Writer, title string) {
	width := runewidth.StringWidth(title) + 4
	fmt.Fprintln(w, strings.Repeat("=", width))
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, strings.Repeat("=", width))
}

// PrintSection prints a section title with an underline.
func PrintSection(w io.Writer, title string) {
	fmt.Fprintf(w, "[%s]\n", title)
	fmt.Fprintln(w, strings.Repeat("-", runewidth.StringWidth(title)+2))
}

// PrintPairs prints label/value rows with the values aligned by display width.
func PrintPairs(w io.Writer, rows [][2]string) {
	width := 0
	for _, r := range rows {
		if n := runewidth.StringWidth(r[0]); n > width {
			width = n
		}
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %s  %s\n", runewidth.FillRight(r[0]+":", width+1), r[1])
	}
}

// PrintSideBySide prints two blocks of lines next to each other with at least
// padding spaces between them.
func PrintSideBySide(w io.Writer, left, right []string, padding int) {
	leftWidth := 0
	for _, line := range left {
		if n := runewidth.StringWidth(line); n > leftWidth {
			leftWidth = n
		}
	}

	rows := max(len(left), len(right))
	for i := 0; i < rows; i++ {
		var l, r string
		if i < len(left) {
			l = left[i]
		}
		if i < len(right) {
			r = right[i]
		}
		if r == "" {
			fmt.Fprintln(w, strings.TrimRight(l, " "))
			continue
		}
		fmt.Fprintf(w, "%s%s%s\n", runewidth.FillRight(l, leftWidth), strings.Repeat(" ", padding), r)
	}
}
