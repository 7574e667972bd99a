// Package snapshot holds table contents in memory and verifies dependencies
// against them. It backs offline discovery over CSV exports and serves as the
// reference implementation the SQL verifier is tested against.
//
// NULL is represented by a nil value and compares equal to every other NULL,
// matching SELECT DISTINCT and GROUP BY in MySQL and PostgreSQL.
package snapshot

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/dbsmedya/fdscan/internal/fd"
)

// Table is an immutable snapshot of one table. A nil cell is NULL.
type Table struct {
	Columns []string
	Rows    [][]any
}

// NewTable validates that every row has one value per column.
func NewTable(columns []string, rows [][]any) (*Table, error) {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c] {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		seen[c] = true
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(r), len(columns))
		}
	}
	return &Table{Columns: columns, Rows: rows}, nil
}

func (t *Table) positions(lhs fd.AttributeSet, rhs fd.Attribute) ([]int, int, error) {
	pos := func(a fd.Attribute) (int, error) {
		i := slices.Index(t.Columns, string(a))
		if i < 0 {
			return 0, fmt.Errorf("unknown column %q", a)
		}
		return i, nil
	}

	lhsPos := make([]int, len(lhs))
	for i, a := range lhs {
		p, err := pos(a)
		if err != nil {
			return nil, 0, err
		}
		lhsPos[i] = p
	}
	rhsPos, err := pos(rhs)
	if err != nil {
		return nil, 0, err
	}
	return lhsPos, rhsPos, nil
}

// tupleKey encodes the values at pos. %#v keeps types apart ("1" vs 1) and
// renders nil as <nil>, so all NULLs share one key.
func tupleKey(row []any, pos []int) string {
	var b strings.Builder
	for i, p := range pos {
		if i > 0 {
			b.WriteByte(0)
		}
		fmt.Fprintf(&b, "%#v", row[p])
	}
	return b.String()
}

// DistinctCounts returns the number of distinct LHS tuples and the number of
// distinct (LHS, RHS) tuples.
func (t *Table) DistinctCounts(lhs fd.AttributeSet, rhs fd.Attribute) (int64, int64, error) {
	lhsPos, rhsPos, err := t.positions(lhs, rhs)
	if err != nil {
		return 0, 0, err
	}
	allPos := append(slices.Clone(lhsPos), rhsPos)

	lhsSeen := make(map[string]struct{})
	pairSeen := make(map[string]struct{})
	for _, row := range t.Rows {
		lhsSeen[tupleKey(row, lhsPos)] = struct{}{}
		pairSeen[tupleKey(row, allPos)] = struct{}{}
	}
	return int64(len(lhsSeen)), int64(len(pairSeen)), nil
}

// ViolatingGroups returns the number of LHS groups holding more than one distinct
// RHS value.
func (t *Table) ViolatingGroups(lhs fd.AttributeSet, rhs fd.Attribute) (int64, error) {
	lhsPos, rhsPos, err := t.positions(lhs, rhs)
	if err != nil {
		return 0, err
	}

	groups := make(map[string]map[string]struct{})
	for _, row := range t.Rows {
		g := tupleKey(row, lhsPos)
		if groups[g] == nil {
			groups[g] = make(map[string]struct{})
		}
		groups[g][tupleKey(row, []int{rhsPos})] = struct{}{}
	}

	var violations int64
	for _, values := range groups {
		if len(values) > 1 {
			violations++
		}
	}
	return violations, nil
}

// Holds decides lhs -> rhs with the given method.
func (t *Table) Holds(method fd.Method, lhs fd.AttributeSet, rhs fd.Attribute) (bool, error) {
	if method == fd.MethodGrouping {
		v, err := t.ViolatingGroups(lhs, rhs)
		return v == 0, err
	}
	l, lr, err := t.DistinctCounts(lhs, rhs)
	return l == lr, err
}

// Database is a named collection of snapshots. It implements fd.ColumnLister and
// fd.Verifier.
type Database struct {
	mu     sync.RWMutex
	tables map[string]*Table
	method fd.Method
}

// NewDatabase creates an empty database verifying with method.
func NewDatabase(method fd.Method) *Database {
	if method == "" {
		method = fd.MethodCardinality
	}
	return &Database{tables: make(map[string]*Table), method: method}
}

// AddTable registers or replaces a table.
func (d *Database) AddTable(name string, t *Table) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tables[name] = t
}

func (d *Database) table(name string) (*Table, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.tables[name]
	if !ok || len(t.Columns) == 0 {
		return nil, fmt.Errorf("%w: %q", fd.ErrTableNotFound, name)
	}
	return t, nil
}

// ListColumns returns the columns of the named table in declaration order.
func (d *Database) ListColumns(ctx context.Context, table string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := d.table(table)
	if err != nil {
		return nil, err
	}
	return slices.Clone(t.Columns), nil
}

// Verify decides lhs -> rhs on the named table.
func (d *Database) Verify(ctx context.Context, table string, lhs fd.AttributeSet, rhs fd.Attribute) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	t, err := d.table(table)
	if err != nil {
		return false, err
	}
	return t.Holds(d.method, lhs, rhs)
}
