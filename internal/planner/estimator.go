// Package planner estimates the work of a discovery run without issuing any
// verification queries.
package planner

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/dbsmedya/fdscan/internal/fd"
	"github.com/dbsmedya/fdscan/internal/logger"
	"github.com/dbsmedya/fdscan/internal/report"
)

// RowCounter reports the size of a table.
type RowCounter interface {
	RowCount(ctx context.Context, table string) (int64, error)
}

// StratumEstimate is the work for one left-hand side size.
type StratumEstimate struct {
	Size       int
	Candidates int64 // left-hand sides of this size
	Checks     int64 // verifications if nothing is pruned
}

// Estimate holds the plan for one table.
type Estimate struct {
	Table      string
	Columns    []string
	Excluded   []string
	RowCount   int64 // -1 when unknown
	MaxLHSSize int
	Method     fd.Method
	Workers    int
	Strata     []StratumEstimate

	TotalCandidates int64
	TotalChecks     int64
}

// Estimator builds plans from table metadata.
type Estimator struct {
	lister  fd.ColumnLister
	counter RowCounter
	logger  *logger.Logger
}

// NewEstimator creates an estimator. counter may be nil when row counts are not
// available.
func NewEstimator(lister fd.ColumnLister, counter RowCounter, log *logger.Logger) *Estimator {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Estimator{
		lister:  lister,
		counter: counter,
		logger:  log,
	}
}

// Estimate resolves the columns of table and counts candidates per stratum.
// The check counts are upper bounds: a run skips every candidate whose subset
// already determines the same column.
func (e *Estimator) Estimate(ctx context.Context, table string, opts fd.Options, method fd.Method) (*Estimate, error) {
	if opts.MaxLHSSize <= 0 {
		return nil, &fd.ConfigurationError{Field: "max LHS size", Message: fmt.Sprintf("must be positive, got %d", opts.MaxLHSSize)}
	}

	names, err := e.lister.ListColumns(ctx, table)
	if err != nil {
		return nil, err
	}

	result := &Estimate{
		Table:      table,
		RowCount:   -1,
		MaxLHSSize: opts.MaxLHSSize,
		Method:     method,
		Workers:    opts.Workers,
	}
	for _, n := range names {
		if slices.Contains(opts.ExcludeColumns, n) {
			result.Excluded = append(result.Excluded, n)
			continue
		}
		result.Columns = append(result.Columns, n)
	}
	if len(result.Columns) == 0 {
		return nil, &fd.ConfigurationError{Field: "exclude columns", Message: fmt.Sprintf("every column of %q is excluded", table)}
	}

	if e.counter != nil {
		count, err := e.counter.RowCount(ctx, table)
		if err != nil {
			e.logger.Warnf("Failed to count rows of %s: %v", table, err)
		} else {
			result.RowCount = count
		}
	}

	n := len(result.Columns)
	for size := 1; size <= min(opts.MaxLHSSize, n); size++ {
		s := StratumEstimate{
			Size:       size,
			Candidates: fd.Binomial(n, size),
		}
		s.Checks = s.Candidates * int64(n-size)
		result.Strata = append(result.Strata, s)
		result.TotalCandidates += s.Candidates
		result.TotalChecks += s.Checks
	}

	return result, nil
}

// DisplayPlan prints the plan with the per-stratum table beside a summary.
func DisplayPlan(w io.Writer, est *Estimate) {
	report.PrintHeader(w, fmt.Sprintf("Discovery Plan: %s", est.Table))
	fmt.Fprintln(w)

	left := []string{
		"[ Strata ]",
		"----------",
		fmt.Sprintf("%-6s %12s %12s", "Size", "Candidates", "Max checks"),
	}
	for _, s := range est.Strata {
		left = append(left, fmt.Sprintf("%-6d %12d %12d", s.Size, s.Candidates, s.Checks))
	}
	left = append(left, fmt.Sprintf("%-6s %12d %12d", "Total", est.TotalCandidates, est.TotalChecks))

	rows := "unknown"
	if est.RowCount >= 0 {
		rows = fmt.Sprintf("%d", est.RowCount)
	}
	workers := est.Workers
	if workers < 1 {
		workers = 1
	}
	right := []string{
		"[ Table ]",
		"---------",
		fmt.Sprintf("Rows:       %s", rows),
		fmt.Sprintf("Columns:    %d", len(est.Columns)),
		fmt.Sprintf("Excluded:   %d", len(est.Excluded)),
		"",
		"[ Discovery ]",
		"-------------",
		fmt.Sprintf("Max LHS:    %d", est.MaxLHSSize),
		fmt.Sprintf("Method:     %s", est.Method),
		fmt.Sprintf("Workers:    %d", workers),
	}

	report.PrintSideBySide(w, left, right, 4)

	fmt.Fprintln(w)
	report.PrintSection(w, "Columns")
	for i, c := range est.Columns {
		fmt.Fprintf(w, "  %d. %s\n", i+1, c)
	}
	for _, c := range est.Excluded {
		fmt.Fprintf(w, "  -  %s (excluded)\n", c)
	}

	fmt.Fprintln(w, "\nℹ️  No verification queries were run. Use 'discover' to execute.")
}
