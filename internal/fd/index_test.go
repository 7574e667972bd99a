package fd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttributeSet_Key(t *testing.T) {
	a := NewAttributeSet("dept", "emp_id")
	b := NewAttributeSet("emp_id", "dept")

	assert.Equal(t, a.Key(), b.Key())
	assert.True(t, a.Equal(b))
	assert.Equal(t, "dept,emp_id", a.String())
	assert.Equal(t, "emp_id,dept", b.String())

	// Separator keeps "a,b" apart from the pair (a, b)
	assert.NotEqual(t, NewAttributeSet("a,b").Key(), NewAttributeSet("a", "b").Key())
	assert.False(t, NewAttributeSet("a").Equal(NewAttributeSet("a", "b")))
}

func TestAttributeSet_Contains(t *testing.T) {
	s := NewAttributeSet("a", "b")
	assert.True(t, s.Contains("a"))
	assert.False(t, s.Contains("c"))
	assert.Equal(t, []string{"a", "b"}, s.Names())
}

func TestDependency_String(t *testing.T) {
	d := Dependency{LHS: NewAttributeSet("dept", "emp_id"), RHS: "dept_manager"}
	assert.Equal(t, "dept,emp_id -> dept_manager", d.String())
}

func TestIndex_AddHas(t *testing.T) {
	ix := NewIndex()
	assert.True(t, ix.Add(NewAttributeSet("a", "b"), "c"))
	assert.False(t, ix.Add(NewAttributeSet("b", "a"), "c"), "same set in another order is a duplicate")
	assert.True(t, ix.Add(NewAttributeSet("a"), "d"))

	assert.True(t, ix.Has(NewAttributeSet("b", "a"), "c"))
	assert.False(t, ix.Has(NewAttributeSet("a"), "c"))
	assert.False(t, ix.Has(NewAttributeSet("a"), "z"))
	assert.Equal(t, 2, ix.Len())
}

func TestIndex_HasDeterminingSubset(t *testing.T) {
	ix := NewIndex()
	ix.Add(NewAttributeSet("b"), "x")
	ix.Add(NewAttributeSet("c", "d"), "y")

	tests := []struct {
		name string
		lhs  AttributeSet
		rhs  Attribute
		want bool
	}{
		{"single attribute never pruned", NewAttributeSet("b"), "x", false},
		{"superset of size-1 determinant", NewAttributeSet("a", "b"), "x", true},
		{"deep superset of size-1 determinant", NewAttributeSet("a", "c", "b"), "x", true},
		{"superset of size-2 determinant", NewAttributeSet("a", "c", "d"), "y", true},
		{"partial overlap only", NewAttributeSet("a", "c"), "y", false},
		{"different rhs", NewAttributeSet("a", "b"), "y", false},
		{"exact match is not a proper subset", NewAttributeSet("c", "d"), "y", false},
		{"unknown rhs", NewAttributeSet("a", "b"), "z", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ix.HasDeterminingSubset(tt.lhs, tt.rhs))
		})
	}
}

func TestIndex_Determinants(t *testing.T) {
	ix := NewIndex()
	ix.Add(NewAttributeSet("b"), "x")
	ix.Add(NewAttributeSet("a", "c"), "x")

	got := ix.Determinants("x")
	assert.Equal(t, []AttributeSet{NewAttributeSet("b"), NewAttributeSet("a", "c")}, got)
	assert.Nil(t, ix.Determinants("missing"))
}

func TestClosure(t *testing.T) {
	cols := attrs("emp_id", "dept", "dept_manager")
	deps := []Dependency{
		{LHS: NewAttributeSet("emp_id"), RHS: "dept"},
		{LHS: NewAttributeSet("dept"), RHS: "dept_manager"},
	}

	assert.Equal(t, NewAttributeSet("emp_id", "dept", "dept_manager"), Closure(NewAttributeSet("emp_id"), deps, cols))
	assert.Equal(t, NewAttributeSet("dept", "dept_manager"), Closure(NewAttributeSet("dept"), deps, cols))
	assert.Equal(t, NewAttributeSet("dept_manager"), Closure(NewAttributeSet("dept_manager"), deps, cols))
}

func TestCandidateKeys(t *testing.T) {
	cols := attrs("a", "b", "c", "d")
	deps := []Dependency{
		{LHS: NewAttributeSet("a", "b"), RHS: "c"},
		{LHS: NewAttributeSet("c"), RHS: "d"},
		{LHS: NewAttributeSet("c", "d"), RHS: "a"},
	}

	keys := CandidateKeys(deps, cols, 3)
	// {a,b} -> c -> d. {b,c} -> d, then {c,d} -> a.
	assert.Equal(t, []AttributeSet{NewAttributeSet("a", "b"), NewAttributeSet("b", "c")}, keys)

	assert.Nil(t, CandidateKeys(deps, nil, 3))
	assert.Empty(t, CandidateKeys(nil, cols, 3))
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("")
	assert.NoError(t, err)
	assert.Equal(t, MethodCardinality, m)

	m, err = ParseMethod("grouping")
	assert.NoError(t, err)
	assert.Equal(t, MethodGrouping, m)

	_, err = ParseMethod("sampling")
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "INITIALIZING", StateInitializing.String())
	assert.Equal(t, "DONE", StateDone.String())
	assert.Equal(t, "State(42)", State(42).String())
}
