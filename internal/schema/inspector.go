// Package schema reads table metadata from information_schema.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dbsmedya/fdscan/internal/fd"
	"github.com/dbsmedya/fdscan/internal/logger"
	"github.com/dbsmedya/fdscan/internal/sqlutil"
)

// CheckError reports a failed preflight check.
type CheckError struct {
	Check   string
	Message string
	Tables  []string
}

func (e *CheckError) Error() string {
	if len(e.Tables) > 0 {
		return fmt.Sprintf("%s: %s (tables: %v)", e.Check, e.Message, e.Tables)
	}
	return fmt.Sprintf("%s: %s", e.Check, e.Message)
}

// Inspector implements fd.ColumnLister over information_schema.
type Inspector struct {
	db      *sql.DB
	dialect sqlutil.Dialect
	schema  string
	logger  *logger.Logger
}

// NewInspector creates an inspector for tables in schema.
func NewInspector(db *sql.DB, dialect sqlutil.Dialect, schema string, log *logger.Logger) (*Inspector, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	if schema == "" {
		return nil, fmt.Errorf("schema name is required")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	return &Inspector{
		db:      db,
		dialect: dialect,
		schema:  schema,
		logger:  log,
	}, nil
}

// Schema returns the inspected schema name.
func (i *Inspector) Schema() string {
	return i.schema
}

// ListColumns returns the columns of table in ordinal order, or fd.ErrTableNotFound
// when there are none.
func (i *Inspector) ListColumns(ctx context.Context, table string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT COLUMN_NAME
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = %s
		AND TABLE_NAME = %s
		ORDER BY ORDINAL_POSITION`,
		i.dialect.Placeholder(1), i.dialect.Placeholder(2))

	rows, err := i.db.QueryContext(ctx, query, i.schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s.%s", fd.ErrTableNotFound, i.schema, table)
	}

	i.logger.Debugf("Table %q has %d columns", table, len(columns))
	return columns, nil
}

// ValidateTablesExist checks that every table exists in the schema.
func (i *Inspector) ValidateTablesExist(ctx context.Context, tables []string) error {
	if len(tables) == 0 {
		return nil
	}
	i.logger.Debug("Checking table existence...")

	placeholders := make([]string, len(tables))
	args := make([]interface{}, len(tables)+1)
	args[0] = i.schema
	for n, table := range tables {
		placeholders[n] = i.dialect.Placeholder(n + 2)
		args[n+1] = table
	}

	query := fmt.Sprintf(`
		SELECT TABLE_NAME
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = %s
		AND TABLE_NAME IN (%s)`,
		i.dialect.Placeholder(1), strings.Join(placeholders, ","))

	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	var missing []string
	for _, table := range tables {
		if !existing[table] {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return &CheckError{
			Check:   "TABLE_EXISTENCE_CHECK",
			Message: fmt.Sprintf("tables not found in schema %q", i.schema),
			Tables:  missing,
		}
	}

	i.logger.Debugf("Table existence check PASSED (%d tables)", len(tables))
	return nil
}

// RowCount returns the exact number of rows in table.
func (i *Inspector) RowCount(ctx context.Context, table string) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", i.dialect.QualifiedName(i.schema, table))

	var count int64
	if err := i.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return count, nil
}
