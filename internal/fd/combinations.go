package fd

// Generator enumerates candidate left-hand sides over a fixed column list.
//
// The number of candidates is C(n,1)+...+C(n,K), which is O(n^K) for n columns
// and maximum size K. The sequence is deterministic and a Generator holds no
// iteration state, so it can be replayed.
type Generator struct {
	attrs   []Attribute
	maxSize int
}

// NewGenerator creates a generator for subsets of attrs with at most maxSize members.
func NewGenerator(attrs []Attribute, maxSize int) *Generator {
	return &Generator{attrs: attrs, maxSize: maxSize}
}

// MaxSize returns the largest subset size the generator produces.
func (g *Generator) MaxSize() int {
	return min(g.maxSize, len(g.attrs))
}

// Stratum returns every subset of exactly size members, in lexicographic order of
// column positions.
func (g *Generator) Stratum(size int) []AttributeSet {
	n := len(g.attrs)
	if size <= 0 || size > n || size > g.maxSize {
		return nil
	}

	out := make([]AttributeSet, 0, Binomial(n, size))
	idx := make([]int, size)
	for i := range idx {
		idx[i] = i
	}

	for {
		set := make(AttributeSet, size)
		for i, p := range idx {
			set[i] = g.attrs[p]
		}
		out = append(out, set)

		// Advance the rightmost index that still has room.
		i := size - 1
		for i >= 0 && idx[i] == n-size+i {
			i--
		}
		if i < 0 {
			return out
		}
		idx[i]++
		for j := i + 1; j < size; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// All returns every subset of size 1..MaxSize, smaller sizes first.
func (g *Generator) All() []AttributeSet {
	var out []AttributeSet
	for size := 1; size <= g.MaxSize(); size++ {
		out = append(out, g.Stratum(size)...)
	}
	return out
}

// Binomial returns C(n, k), or 0 when k is out of range.
func Binomial(n, k int) int64 {
	if k < 0 || k > n {
		return 0
	}
	k = min(k, n-k)
	result := int64(1)
	for i := 1; i <= k; i++ {
		result = result * int64(n-k+i) / int64(i)
	}
	return result
}

// CountCandidates returns the number of subsets a generator over n columns with
// maximum size k would produce.
func CountCandidates(n, k int) int64 {
	var total int64
	for s := 1; s <= min(k, n); s++ {
		total += Binomial(n, s)
	}
	return total
}
