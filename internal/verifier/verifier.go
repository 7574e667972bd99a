// Package verifier checks functional dependencies with SQL against the live table.
//
// Both formulations rely on SELECT DISTINCT and GROUP BY, which treat NULLs as
// equal in MySQL and PostgreSQL. COUNT(DISTINCT col) is never used because it
// skips NULLs.
package verifier

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/dbsmedya/fdscan/internal/fd"
	"github.com/dbsmedya/fdscan/internal/logger"
	"github.com/dbsmedya/fdscan/internal/retry"
	"github.com/dbsmedya/fdscan/internal/sqlutil"
)

// Options configure a SQLVerifier.
type Options struct {
	Method fd.Method
	// QueriesPerSecond throttles verification queries. Zero means unlimited.
	QueriesPerSecond float64
	Retry            retry.Config
}

// SQLVerifier implements fd.Verifier with one query per candidate.
type SQLVerifier struct {
	db      *sql.DB
	dialect sqlutil.Dialect
	schema  string
	method  fd.Method
	limiter *rate.Limiter
	retry   retry.Config
	logger  *logger.Logger
	queries atomic.Int64
}

// NewSQLVerifier creates a verifier for tables in schema.
func NewSQLVerifier(db *sql.DB, dialect sqlutil.Dialect, schema string, opts Options, log *logger.Logger) (*SQLVerifier, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	method, err := fd.ParseMethod(string(opts.Method))
	if err != nil {
		return nil, err
	}
	if opts.QueriesPerSecond < 0 {
		return nil, fmt.Errorf("queries per second cannot be negative")
	}

	v := &SQLVerifier{
		db:      db,
		dialect: dialect,
		schema:  schema,
		method:  method,
		retry:   opts.Retry,
		logger:  log,
	}
	if v.retry.MaxAttempts < 1 {
		v.retry.MaxAttempts = 1
	}
	if opts.QueriesPerSecond > 0 {
		v.limiter = rate.NewLimiter(rate.Limit(opts.QueriesPerSecond), 1)
	}
	return v, nil
}

// Method returns the formulation used by Verify.
func (v *SQLVerifier) Method() fd.Method {
	return v.method
}

// QueryCount returns the number of verification queries issued, retries included.
func (v *SQLVerifier) QueryCount() int64 {
	return v.queries.Load()
}

// Verify decides whether lhs determines rhs in table.
func (v *SQLVerifier) Verify(ctx context.Context, table string, lhs fd.AttributeSet, rhs fd.Attribute) (bool, error) {
	if len(lhs) == 0 {
		return false, fmt.Errorf("empty left-hand side")
	}

	var holds bool
	err := retry.Do(ctx, v.retry, func() error {
		if v.limiter != nil {
			if err := v.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		v.queries.Add(1)

		if v.method == fd.MethodGrouping {
			var violations int64
			query := v.GroupingQuery(table, lhs, rhs)
			v.logger.Debugf("Verifying %s -> %s: %s", lhs, rhs, query)
			if err := v.db.QueryRowContext(ctx, query).Scan(&violations); err != nil {
				return err
			}
			holds = violations == 0
			return nil
		}

		var lhsCount, lhsRHSCount int64
		query := v.CardinalityQuery(table, lhs, rhs)
		v.logger.Debugf("Verifying %s -> %s: %s", lhs, rhs, query)
		if err := v.db.QueryRowContext(ctx, query).Scan(&lhsCount, &lhsRHSCount); err != nil {
			return err
		}
		holds = lhsCount == lhsRHSCount
		return nil
	})
	if err != nil {
		return false, &fd.DataAccessError{Table: table, LHS: lhs, RHS: rhs, Err: err}
	}
	return holds, nil
}

func (v *SQLVerifier) columns(lhs fd.AttributeSet) string {
	return v.dialect.QuoteList(lhs.Names())
}

// CardinalityQuery returns the distinct LHS count and the distinct (LHS, RHS) count
// in one row.
func (v *SQLVerifier) CardinalityQuery(table string, lhs fd.AttributeSet, rhs fd.Attribute) string {
	from := v.dialect.QualifiedName(v.schema, table)
	lhsCols := v.columns(lhs)
	return fmt.Sprintf(
		"SELECT (SELECT COUNT(*) FROM (SELECT DISTINCT %s FROM %s) lhs_groups), "+
			"(SELECT COUNT(*) FROM (SELECT DISTINCT %s, %s FROM %s) lhs_rhs_groups)",
		lhsCols, from, lhsCols, v.dialect.QuoteIdentifier(string(rhs)), from)
}

// GroupingQuery returns the number of LHS groups with more than one distinct RHS value.
func (v *SQLVerifier) GroupingQuery(table string, lhs fd.AttributeSet, rhs fd.Attribute) string {
	from := v.dialect.QualifiedName(v.schema, table)
	lhsCols := v.columns(lhs)
	return fmt.Sprintf(
		"SELECT COUNT(*) FROM (SELECT %s FROM (SELECT DISTINCT %s, %s FROM %s) pairs "+
			"GROUP BY %s HAVING COUNT(*) > 1) violations",
		lhsCols, lhsCols, v.dialect.QuoteIdentifier(string(rhs)), from, lhsCols)
}
