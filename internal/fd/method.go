package fd

import "fmt"

// Method selects how a verifier decides a dependency. Both methods give the same
// verdict on the same data, with NULL treated as one value and an empty table
// satisfying every dependency.
type Method string

const (
	// MethodCardinality compares the number of distinct LHS tuples with the number
	// of distinct (LHS, RHS) tuples. The dependency holds iff they are equal.
	MethodCardinality Method = "cardinality"
	// MethodGrouping counts LHS groups with more than one distinct RHS value. The
	// dependency holds iff there are none.
	MethodGrouping Method = "grouping"
)

// ParseMethod maps a configured name to a Method. Empty selects cardinality.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case "", MethodCardinality:
		return MethodCardinality, nil
	case MethodGrouping:
		return MethodGrouping, nil
	default:
		return "", &ConfigurationError{Field: "method", Message: fmt.Sprintf("unknown verification method %q", s)}
	}
}
