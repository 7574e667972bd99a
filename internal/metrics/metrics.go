// Package metrics records discovery runs as Prometheus metrics.
//
// fdscan is a batch tool, so metrics are written to a node_exporter textfile at
// the end of a run rather than served over HTTP.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dbsmedya/fdscan/internal/fd"
)

// Recorder implements fd.Observer and keeps its metrics in a private registry.
type Recorder struct {
	registry *prometheus.Registry
	table    string

	BuildInfo          *prometheus.GaugeVec
	VerificationsTotal *prometheus.CounterVec
	VerifyDuration     prometheus.Histogram
	StrataStarted      prometheus.Counter
	DependenciesFound  *prometheus.GaugeVec
	CandidatesTotal    *prometheus.GaugeVec
	RunDuration        *prometheus.GaugeVec
	LastRunTimestamp   *prometheus.GaugeVec
}

// NewRecorder creates a recorder for runs against table.
func NewRecorder(table, version string) *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	r := &Recorder{
		registry: reg,
		table:    table,

		BuildInfo: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fdscan_build_info",
				Help: "Build information of fdscan",
			},
			[]string{"version"},
		),
		VerificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fdscan_verifications_total",
				Help: "Total number of candidate verifications",
			},
			[]string{"status"},
		),
		VerifyDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fdscan_verify_duration_seconds",
				Help:    "Duration of candidate verifications",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
			},
		),
		StrataStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fdscan_strata_total",
				Help: "Number of left-hand side size levels processed",
			},
		),
		DependenciesFound: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fdscan_dependencies",
				Help: "Minimal functional dependencies found in the last run",
			},
			[]string{"table"},
		),
		CandidatesTotal: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fdscan_candidates",
				Help: "Candidate checks in the last run by outcome",
			},
			[]string{"table", "outcome"},
		),
		RunDuration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fdscan_run_duration_seconds",
				Help: "Wall time of the last run",
			},
			[]string{"table"},
		),
		LastRunTimestamp: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fdscan_last_run_timestamp_seconds",
				Help: "Unix time the last run finished",
			},
			[]string{"table"},
		),
	}
	r.BuildInfo.WithLabelValues(version).Set(1)
	return r
}

// Registry exposes the recorder's registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) StratumStarted(size, checks int) {
	r.StrataStarted.Inc()
}

func (r *Recorder) CandidateVerified(c fd.Check) {
	status := "rejected"
	switch {
	case c.Err != nil:
		status = "error"
	case c.Holds:
		status = "holds"
	}
	r.VerificationsTotal.WithLabelValues(status).Inc()
	r.VerifyDuration.Observe(c.Elapsed.Seconds())
}

func (r *Recorder) DependencyFound(fd.Dependency) {}

// ObserveResult records the totals of a finished run.
func (r *Recorder) ObserveResult(res *fd.Result) {
	if res == nil {
		return
	}
	s := res.Stats
	r.DependenciesFound.WithLabelValues(r.table).Set(float64(res.Count()))
	r.CandidatesTotal.WithLabelValues(r.table, "trivial").Set(float64(s.Trivial))
	r.CandidatesTotal.WithLabelValues(r.table, "pruned").Set(float64(s.Pruned))
	r.CandidatesTotal.WithLabelValues(r.table, "verified").Set(float64(s.Verified))
	r.CandidatesTotal.WithLabelValues(r.table, "failed").Set(float64(s.Failed))
	r.RunDuration.WithLabelValues(r.table).Set(s.Duration.Seconds())
	r.LastRunTimestamp.WithLabelValues(r.table).SetToCurrentTime()
}

// WriteTextfile writes all metrics to path in the text exposition format. The
// file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
