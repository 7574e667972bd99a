package fd

// Closure returns every attribute implied by attrs under deps, in the order of
// columns. Attributes of attrs that are not in columns are ignored.
func Closure(attrs AttributeSet, deps []Dependency, columns []Attribute) AttributeSet {
	have := make(map[Attribute]bool, len(columns))
	for _, a := range attrs {
		have[a] = true
	}

	for changed := true; changed; {
		changed = false
		for _, d := range deps {
			if have[d.RHS] {
				continue
			}
			if containsAll(have, d.LHS) {
				have[d.RHS] = true
				changed = true
			}
		}
	}

	out := make(AttributeSet, 0, len(have))
	for _, c := range columns {
		if have[c] {
			out = append(out, c)
		}
	}
	return out
}

func containsAll(have map[Attribute]bool, set AttributeSet) bool {
	for _, a := range set {
		if !have[a] {
			return false
		}
	}
	return true
}

// CandidateKeys returns the minimal attribute sets of at most maxSize columns
// whose closure under deps covers every column. Keys come out smallest first, in
// generator order.
//
// The result only reflects dependencies that were discovered, so a key whose
// proof needs a left-hand side larger than the discovery bound is missed.
func CandidateKeys(deps []Dependency, columns []Attribute, maxSize int) []AttributeSet {
	if len(columns) == 0 {
		return nil
	}

	var keys []AttributeSet
	gen := NewGenerator(columns, maxSize)
	for size := 1; size <= gen.MaxSize(); size++ {
		for _, set := range gen.Stratum(size) {
			if hasSubsetKey(set, keys) {
				continue
			}
			if len(Closure(set, deps, columns)) == len(columns) {
				keys = append(keys, set)
			}
		}
	}
	return keys
}

func hasSubsetKey(set AttributeSet, keys []AttributeSet) bool {
	members := make(map[Attribute]bool, len(set))
	for _, a := range set {
		members[a] = true
	}
	for _, k := range keys {
		if containsAll(members, k) {
			return true
		}
	}
	return false
}
