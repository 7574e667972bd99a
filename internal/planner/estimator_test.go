package planner

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/fdscan/internal/fd"
	"github.com/dbsmedya/fdscan/internal/logger"
	"github.com/dbsmedya/fdscan/internal/schema"
	"github.com/dbsmedya/fdscan/internal/snapshot"
	"github.com/dbsmedya/fdscan/internal/sqlutil"
)

type failingCounter struct{}

func (failingCounter) RowCount(context.Context, string) (int64, error) {
	return 0, errors.New("permission denied")
}

func memoryLister(t *testing.T, cols ...string) *snapshot.Database {
	t.Helper()
	tbl, err := snapshot.NewTable(cols, nil)
	require.NoError(t, err)
	db := snapshot.NewDatabase(fd.MethodCardinality)
	db.AddTable("t", tbl)
	return db
}

func TestEstimate_Strata(t *testing.T) {
	e := NewEstimator(memoryLister(t, "a", "b", "c", "d"), nil, logger.NewNop())

	est, err := e.Estimate(context.Background(), "t", fd.Options{MaxLHSSize: 3, Workers: 2}, fd.MethodGrouping)
	require.NoError(t, err)

	assert.Equal(t, []StratumEstimate{
		{Size: 1, Candidates: 4, Checks: 12},
		{Size: 2, Candidates: 6, Checks: 12},
		{Size: 3, Candidates: 4, Checks: 4},
	}, est.Strata)
	assert.Equal(t, int64(14), est.TotalCandidates)
	assert.Equal(t, int64(28), est.TotalChecks)
	assert.Equal(t, int64(-1), est.RowCount)
	assert.Equal(t, fd.MethodGrouping, est.Method)
}

func TestEstimate_BoundedByColumnCount(t *testing.T) {
	e := NewEstimator(memoryLister(t, "a", "b"), nil, logger.NewNop())

	est, err := e.Estimate(context.Background(), "t", fd.Options{MaxLHSSize: 5}, fd.MethodCardinality)
	require.NoError(t, err)
	require.Len(t, est.Strata, 2)
	assert.Equal(t, int64(0), est.Strata[1].Checks, "full-width LHS has no RHS left")
}

func TestEstimate_Exclusions(t *testing.T) {
	e := NewEstimator(memoryLister(t, "id", "notes", "x"), nil, logger.NewNop())

	est, err := e.Estimate(context.Background(), "t", fd.Options{MaxLHSSize: 1, ExcludeColumns: []string{"notes"}}, fd.MethodCardinality)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "x"}, est.Columns)
	assert.Equal(t, []string{"notes"}, est.Excluded)

	_, err = e.Estimate(context.Background(), "t", fd.Options{MaxLHSSize: 1, ExcludeColumns: []string{"id", "notes", "x"}}, fd.MethodCardinality)
	var cfgErr *fd.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestEstimate_Errors(t *testing.T) {
	e := NewEstimator(memoryLister(t, "a"), nil, logger.NewNop())

	_, err := e.Estimate(context.Background(), "t", fd.Options{MaxLHSSize: 0}, fd.MethodCardinality)
	var cfgErr *fd.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)

	_, err = e.Estimate(context.Background(), "missing", fd.Options{MaxLHSSize: 1}, fd.MethodCardinality)
	assert.ErrorIs(t, err, fd.ErrTableNotFound)
}

func TestEstimate_RowCountFailureIsNotFatal(t *testing.T) {
	e := NewEstimator(memoryLister(t, "a", "b"), failingCounter{}, logger.NewNop())

	est, err := e.Estimate(context.Background(), "t", fd.Options{MaxLHSSize: 1}, fd.MethodCardinality)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), est.RowCount)
}

func TestEstimate_WithInspector(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	inspector, err := schema.NewInspector(db, sqlutil.MySQL, "hortencia", logger.NewNop())
	require.NoError(t, err)

	mock.ExpectQuery("SELECT COLUMN_NAME").
		WithArgs("hortencia", "employees").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}).AddRow("emp_id").AddRow("dept").AddRow("dept_manager"))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM `hortencia`.`employees`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	e := NewEstimator(inspector, inspector, logger.NewNop())
	est, err := e.Estimate(context.Background(), "employees", fd.DefaultOptions(), fd.MethodCardinality)
	require.NoError(t, err)

	assert.Equal(t, int64(3), est.RowCount)
	assert.Equal(t, int64(7), est.TotalCandidates)
	assert.Equal(t, int64(9), est.TotalChecks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDisplayPlan(t *testing.T) {
	e := NewEstimator(memoryLister(t, "a", "b", "c"), nil, logger.NewNop())
	est, err := e.Estimate(context.Background(), "t", fd.Options{MaxLHSSize: 2, ExcludeColumns: []string{"zz"}}, fd.MethodCardinality)
	require.NoError(t, err)

	var buf bytes.Buffer
	DisplayPlan(&buf, est)
	out := buf.String()

	assert.Contains(t, out, "Discovery Plan: t")
	assert.Contains(t, out, "Rows:       unknown")
	assert.Contains(t, out, "Workers:    1")
	assert.Contains(t, out, "Total")
	assert.Contains(t, out, "  3. c")
	assert.Contains(t, out, "No verification queries were run")
}
