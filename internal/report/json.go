package report

import (
	"encoding/json"
	"io"

	"github.com/dbsmedya/fdscan/internal/fd"
)

type jsonDependency struct {
	LHS []string `json:"lhs"`
	RHS string   `json:"rhs"`
}

type jsonFailure struct {
	jsonDependency
	Error string `json:"error"`
}

type jsonResult struct {
	Table         string           `json:"table"`
	Columns       []string         `json:"columns"`
	MaxLHSSize    int              `json:"max_lhs_size"`
	Count         int              `json:"count"`
	Dependencies  []jsonDependency `json:"dependencies"`
	Failures      []jsonFailure    `json:"failures,omitempty"`
	CandidateKeys [][]string       `json:"candidate_keys,omitempty"`
	Stats         fd.Stats         `json:"stats"`
}

func toJSONDependency(d fd.Dependency) jsonDependency {
	return jsonDependency{LHS: d.LHS.Names(), RHS: string(d.RHS)}
}

// WriteJSON writes res as an indented JSON document. Dependencies keep discovery
// order and an empty run yields an empty array rather than null.
func WriteJSON(w io.Writer, res *fd.Result, keys []fd.AttributeSet) error {
	out := jsonResult{
		Table:        res.Table,
		Columns:      fd.AttributeSet(res.Columns).Names(),
		MaxLHSSize:   res.MaxLHSSize,
		Count:        res.Count(),
		Dependencies: make([]jsonDependency, 0, res.Count()),
		Stats:        res.Stats,
	}
	for _, d := range res.Dependencies {
		out.Dependencies = append(out.Dependencies, toJSONDependency(d))
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, jsonFailure{jsonDependency: toJSONDependency(f.Dependency), Error: f.Err.Error()})
	}
	for _, k := range keys {
		out.CandidateKeys = append(out.CandidateKeys, k.Names())
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
