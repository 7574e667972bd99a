package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/fdscan/internal/fd"
)

var _ fd.Observer = (*Recorder)(nil)

func TestRecorder_CandidateVerified(t *testing.T) {
	r := NewRecorder("employees", "test")
	dep := fd.Dependency{LHS: fd.NewAttributeSet("a"), RHS: "b"}

	r.StratumStarted(1, 3)
	r.CandidateVerified(fd.Check{Dependency: dep, Holds: true, Elapsed: 2 * time.Millisecond})
	r.CandidateVerified(fd.Check{Dependency: dep, Holds: false})
	r.CandidateVerified(fd.Check{Dependency: dep, Err: errors.New("timeout")})
	r.CandidateVerified(fd.Check{Dependency: dep, Holds: true})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.StrataStarted))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.VerificationsTotal.WithLabelValues("holds")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.VerificationsTotal.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.VerificationsTotal.WithLabelValues("error")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.VerifyDuration))
}

func TestRecorder_ObserveResult(t *testing.T) {
	r := NewRecorder("employees", "test")
	r.ObserveResult(nil)

	r.ObserveResult(&fd.Result{
		Table:        "employees",
		Dependencies: make([]fd.Dependency, 4),
		Stats:        fd.Stats{Trivial: 7, Pruned: 2, Verified: 12, Failed: 1, Duration: 1500 * time.Millisecond},
	})

	assert.Equal(t, 4.0, testutil.ToFloat64(r.DependenciesFound.WithLabelValues("employees")))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.CandidatesTotal.WithLabelValues("employees", "trivial")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.CandidatesTotal.WithLabelValues("employees", "pruned")))
	assert.Equal(t, 12.0, testutil.ToFloat64(r.CandidatesTotal.WithLabelValues("employees", "verified")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.CandidatesTotal.WithLabelValues("employees", "failed")))
	assert.Equal(t, 1.5, testutil.ToFloat64(r.RunDuration.WithLabelValues("employees")))
	assert.Greater(t, testutil.ToFloat64(r.LastRunTimestamp.WithLabelValues("employees")), 0.0)
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder("employees", "v1.2.3")
	r.ObserveResult(&fd.Result{Dependencies: make([]fd.Dependency, 2)})

	path := filepath.Join(t.TempDir(), "fdscan.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `fdscan_build_info{version="v1.2.3"} 1`)
	assert.Contains(t, string(data), `fdscan_dependencies{table="employees"} 2`)
}

func TestRecorders_AreIndependent(t *testing.T) {
	a := NewRecorder("a", "test")
	b := NewRecorder("b", "test")
	a.StratumStarted(1, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.StrataStarted))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.StrataStarted))
}
