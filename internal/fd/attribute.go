// Package fd discovers minimal functional dependencies among the columns of a table.
//
// Candidate left-hand sides are enumerated smallest first. A candidate is skipped
// when a proper subset of it already determines the same column, and the rest are
// checked against the data through a Verifier.
package fd

import (
	"slices"
	"strings"
)

// Attribute names one column of the analyzed table.
type Attribute string

// AttributeSet is a left-hand side, kept in table column order.
type AttributeSet []Attribute

// keySeparator cannot appear in a column name accepted by MySQL or PostgreSQL.
const keySeparator = "\x00"

// NewAttributeSet builds a set from column names, preserving their order.
func NewAttributeSet(names ...string) AttributeSet {
	s := make(AttributeSet, len(names))
	for i, n := range names {
		s[i] = Attribute(n)
	}
	return s
}

// Key returns an order-independent identity for the set, usable as a map key.
func (s AttributeSet) Key() string {
	names := s.Names()
	slices.Sort(names)
	return strings.Join(names, keySeparator)
}

// String renders the set as comma-joined column names.
func (s AttributeSet) String() string {
	return strings.Join(s.Names(), ",")
}

// Names returns the column names as plain strings.
func (s AttributeSet) Names() []string {
	names := make([]string, len(s))
	for i, a := range s {
		names[i] = string(a)
	}
	return names
}

// Contains reports whether a is a member of the set.
func (s AttributeSet) Contains(a Attribute) bool {
	return slices.Contains(s, a)
}

// Equal reports whether both sets hold the same attributes regardless of order.
func (s AttributeSet) Equal(other AttributeSet) bool {
	return len(s) == len(other) && s.Key() == other.Key()
}

// Dependency states that LHS functionally determines RHS. RHS is never a member of LHS.
type Dependency struct {
	LHS AttributeSet `json:"lhs"`
	RHS Attribute    `json:"rhs"`
}

func (d Dependency) String() string {
	return d.LHS.String() + " -> " + string(d.RHS)
}
