package fd

import (
	"errors"
	"fmt"
)

// ErrTableNotFound is returned when the table does not exist or has no columns.
var ErrTableNotFound = errors.New("table not found")

// DataAccessError reports a verification query that failed for one candidate.
// It never aborts a run.
type DataAccessError struct {
	Table string
	LHS   AttributeSet
	RHS   Attribute
	Err   error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("verify %s -> %s on %s: %v", e.LHS, e.RHS, e.Table, e.Err)
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}

// ConfigurationError rejects a run before enumeration starts.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
