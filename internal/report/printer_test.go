package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/fdscan/internal/fd"
)

var _ fd.Observer = (*Printer)(nil)

func employeesResult() *fd.Result {
	dep := func(rhs string, lhs ...string) fd.Dependency {
		return fd.Dependency{LHS: fd.NewAttributeSet(lhs...), RHS: fd.Attribute(rhs)}
	}
	return &fd.Result{
		Table:      "employees",
		Columns:    fd.NewAttributeSet("emp_id", "dept", "dept_manager"),
		MaxLHSSize: 3,
		Dependencies: []fd.Dependency{
			dep("dept", "emp_id"),
			dep("dept_manager", "emp_id"),
			dep("dept_manager", "dept"),
			dep("dept", "dept_manager"),
		},
		Stats: fd.Stats{Strata: 3, Candidates: 7, Checks: 21, Trivial: 12, Pruned: 2, Verified: 7, Confirmed: 4, Duration: 42 * time.Millisecond},
	}
}

// ============================================================================
// Printer Tests
// ============================================================================

func TestPrinter_Stream(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	d := fd.Dependency{LHS: fd.NewAttributeSet("emp_id"), RHS: "dept"}
	p.StratumStarted(1, 6)
	p.CandidateVerified(fd.Check{Dependency: d, Holds: false})
	p.DependencyFound(d)

	out := buf.String()
	assert.Contains(t, out, "Checking LHS size 1 (6 candidates)")
	assert.Contains(t, out, "✅ emp_id -> dept\n")
	assert.NotContains(t, out, "·", "rejected candidates are only shown in verbose mode")
	assert.NotContains(t, out, "\x1b[", "no escape codes without color")
}

func TestPrinter_Verbose(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	p.SetVerbose(true)

	d := fd.Dependency{LHS: fd.NewAttributeSet("dept"), RHS: "emp_id"}
	p.CandidateVerified(fd.Check{Dependency: d, Holds: false})
	p.CandidateVerified(fd.Check{Dependency: d, Err: errors.New("timeout")})
	p.CandidateVerified(fd.Check{Dependency: d, Holds: true})

	out := buf.String()
	assert.Contains(t, out, "· dept -> emp_id")
	assert.Contains(t, out, "dept -> emp_id: timeout")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestPrinter_Summary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	res := employeesResult()
	res.Failures = []fd.Failure{{
		Dependency: fd.Dependency{LHS: fd.NewAttributeSet("dept", "emp_id"), RHS: "dept_manager"},
		Err:        errors.New("connection reset"),
	}}
	p.Summary(res, []fd.AttributeSet{fd.NewAttributeSet("emp_id")})

	out := buf.String()
	assert.Contains(t, out, "Found 4 valid (minimal) dependencies:")
	assert.Contains(t, out, "  emp_id -> dept\n  emp_id -> dept_manager\n  dept -> dept_manager\n  dept_manager -> dept\n")
	assert.Contains(t, out, "1 candidate(s) could not be verified")
	assert.Contains(t, out, "dept,emp_id -> dept_manager: connection reset")
	assert.Contains(t, out, "[Candidate Keys]")
	assert.Contains(t, out, "  (emp_id)")
	assert.Contains(t, out, "Confirmed:   4")
	assert.Contains(t, out, "Duration:    42ms")
}

func TestPrinter_SummaryNothingFound(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.Summary(&fd.Result{Table: "t", MaxLHSSize: 2}, nil)

	out := buf.String()
	assert.Contains(t, out, "❌ No valid functional dependencies found (with LHS size <= 2).")
	assert.NotContains(t, out, "Candidate Keys")
}

func TestPrinter_Header(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, false).Header("postgres://db/public", "employees", []string{"emp_id", "dept"})

	out := buf.String()
	assert.Contains(t, out, "Functional Dependency Discovery")
	assert.Contains(t, out, "Columns found: emp_id, dept")
}

// ============================================================================
// Layout Helper Tests
// ============================================================================

func TestPrintPairs_AlignsWideLabels(t *testing.T) {
	var buf bytes.Buffer
	PrintPairs(&buf, [][2]string{{"a", "1"}, {"列名", "2"}})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "  a:     1", lines[0])
	assert.Equal(t, "  列名:  2", lines[1])
}

func TestPrintSideBySide(t *testing.T) {
	var buf bytes.Buffer
	PrintSideBySide(&buf, []string{"ab", "abcd"}, []string{"x", "y", "z"}, 2)

	assert.Equal(t, "ab    x\nabcd  y\n      z\n", buf.String())
}

func TestPrintHeader(t *testing.T) {
	var buf bytes.Buffer
	PrintHeader(&buf, "Plan")
	assert.Equal(t, "========\n  Plan\n========\n", buf.String())
}

// ============================================================================
// JSON Tests
// ============================================================================

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	res := employeesResult()
	require.NoError(t, WriteJSON(&buf, res, []fd.AttributeSet{fd.NewAttributeSet("emp_id")}))

	var decoded struct {
		Table        string `json:"table"`
		Count        int    `json:"count"`
		Dependencies []struct {
			LHS []string `json:"lhs"`
			RHS string   `json:"rhs"`
		} `json:"dependencies"`
		CandidateKeys [][]string `json:"candidate_keys"`
		Stats         struct {
			Pruned int `json:"pruned"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "employees", decoded.Table)
	assert.Equal(t, 4, decoded.Count)
	require.Len(t, decoded.Dependencies, 4)
	assert.Equal(t, []string{"dept_manager"}, decoded.Dependencies[3].LHS)
	assert.Equal(t, "dept", decoded.Dependencies[3].RHS)
	assert.Equal(t, [][]string{{"emp_id"}}, decoded.CandidateKeys)
	assert.Equal(t, 2, decoded.Stats.Pruned)
}

func TestWriteJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, &fd.Result{Table: "t"}, nil))

	assert.Contains(t, buf.String(), `"dependencies": []`)
	assert.NotContains(t, buf.String(), "failures")
}
