package fd

import (
	"github.com/elliotchance/orderedmap/v2"
)

// Index records confirmed dependencies for one discovery run. Entries are kept in
// the order they were confirmed.
//
// For any (S, R) in the index, no proper subset of S is also recorded for R. The
// engine maintains this by consulting HasDeterminingSubset before verification
// and by completing smaller strata first.
type Index struct {
	byRHS *orderedmap.OrderedMap[Attribute, *orderedmap.OrderedMap[string, AttributeSet]]
	size  int
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		byRHS: orderedmap.NewOrderedMap[Attribute, *orderedmap.OrderedMap[string, AttributeSet]](),
	}
}

// Add records lhs -> rhs. It returns false if the dependency was already present.
func (ix *Index) Add(lhs AttributeSet, rhs Attribute) bool {
	sets, ok := ix.byRHS.Get(rhs)
	if !ok {
		sets = orderedmap.NewOrderedMap[string, AttributeSet]()
		ix.byRHS.Set(rhs, sets)
	}
	if !sets.Set(lhs.Key(), lhs) {
		return false
	}
	ix.size++
	return true
}

// Has reports whether exactly lhs -> rhs is recorded.
func (ix *Index) Has(lhs AttributeSet, rhs Attribute) bool {
	sets, ok := ix.byRHS.Get(rhs)
	if !ok {
		return false
	}
	_, found := sets.Get(lhs.Key())
	return found
}

// HasDeterminingSubset reports whether some non-empty proper subset of lhs is
// already recorded as determining rhs. All 2^|lhs|-2 proper subsets are checked.
func (ix *Index) HasDeterminingSubset(lhs AttributeSet, rhs Attribute) bool {
	k := len(lhs)
	if k < 2 {
		return false
	}
	sets, ok := ix.byRHS.Get(rhs)
	if !ok || sets.Len() == 0 {
		return false
	}

	full := uint32(1)<<uint(k) - 1
	subset := make(AttributeSet, 0, k-1)
	for mask := uint32(1); mask < full; mask++ {
		subset = subset[:0]
		for i := 0; i < k; i++ {
			if mask&(1<<uint(i)) != 0 {
				subset = append(subset, lhs[i])
			}
		}
		if _, found := sets.Get(subset.Key()); found {
			return true
		}
	}
	return false
}

// Determinants returns the recorded left-hand sides for rhs in confirmation order.
func (ix *Index) Determinants(rhs Attribute) []AttributeSet {
	sets, ok := ix.byRHS.Get(rhs)
	if !ok {
		return nil
	}
	out := make([]AttributeSet, 0, sets.Len())
	for el := sets.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	return out
}

// Len returns the number of recorded dependencies.
func (ix *Index) Len() int {
	return ix.size
}
