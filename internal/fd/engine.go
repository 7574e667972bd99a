package fd

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dbsmedya/fdscan/internal/logger"
)

// ColumnLister resolves the ordered column list of a table.
type ColumnLister interface {
	// ListColumns returns ErrTableNotFound (possibly wrapped) when the table does
	// not exist or has no columns.
	ListColumns(ctx context.Context, table string) ([]string, error)
}

// Verifier decides whether lhs determines rhs in the current contents of table.
// Implementations quote identifiers themselves.
type Verifier interface {
	Verify(ctx context.Context, table string, lhs AttributeSet, rhs Attribute) (bool, error)
}

// State is the position of an engine in a discovery run.
type State int32

const (
	StateIdle State = iota
	StateInitializing
	StateEnumerating
	StateFiltering
	StateVerifying
	StateRecording
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateInitializing:
		return "INITIALIZING"
	case StateEnumerating:
		return "ENUMERATING"
	case StateFiltering:
		return "FILTERING"
	case StateVerifying:
		return "VERIFYING"
	case StateRecording:
		return "RECORDING"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// DefaultMaxLHSSize is the left-hand side size bound used when none is configured.
const DefaultMaxLHSSize = 3

// Options tune a discovery run.
type Options struct {
	MaxLHSSize int
	// Workers bounds concurrent verifications within one stratum. 1 is sequential.
	Workers int
	// VerifyTimeout bounds each verification. Zero disables the timeout.
	VerifyTimeout time.Duration
	// ExcludeColumns are left out of both sides of every candidate.
	ExcludeColumns []string
}

// DefaultOptions returns sequential options with a 30 second verification timeout.
func DefaultOptions() Options {
	return Options{
		MaxLHSSize:    DefaultMaxLHSSize,
		Workers:       1,
		VerifyTimeout: 30 * time.Second,
	}
}

// Failure records a candidate whose verification could not complete.
type Failure struct {
	Dependency
	Err error
}

// Stats summarizes the work done by one run.
type Stats struct {
	Strata     int           `json:"strata"`
	Candidates int           `json:"candidates"` // left-hand sides enumerated
	Checks     int           `json:"checks"`     // (lhs, rhs) pairs considered
	Trivial    int           `json:"trivial"`    // rhs was a member of lhs
	Pruned     int           `json:"pruned"`     // a subset already determined rhs
	Verified   int           `json:"verified"`
	Confirmed  int           `json:"confirmed"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"duration_ns"`
}

// Result is the outcome of a discovery run.
type Result struct {
	Table        string
	Columns      []Attribute
	MaxLHSSize   int
	Dependencies []Dependency
	Failures     []Failure
	Stats        Stats
}

// Count returns the number of confirmed minimal dependencies.
func (r *Result) Count() int {
	return len(r.Dependencies)
}

// Engine runs discovery against one data source.
type Engine struct {
	lister   ColumnLister
	verifier Verifier
	opts     Options
	logger   *logger.Logger
	observer Observer
	state    atomic.Int32
}

// NewEngine creates a discovery engine. Options are checked when Discover runs.
func NewEngine(lister ColumnLister, verifier Verifier, opts Options, log *logger.Logger) (*Engine, error) {
	if lister == nil {
		return nil, fmt.Errorf("column lister cannot be nil")
	}
	if verifier == nil {
		return nil, fmt.Errorf("verifier cannot be nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	if opts.Workers == 0 {
		opts.Workers = 1
	}
	return &Engine{
		lister:   lister,
		verifier: verifier,
		opts:     opts,
		logger:   log,
		observer: NopObserver{},
	}, nil
}

// SetObserver installs a progress observer. Nil restores the no-op observer.
func (e *Engine) SetObserver(o Observer) {
	if o == nil {
		o = NopObserver{}
	}
	e.observer = o
}

// State returns the current position of the engine.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
}

// DiscoverDependencies runs a sequential discovery with default options and the
// given maximum left-hand side size.
func DiscoverDependencies(ctx context.Context, lister ColumnLister, verifier Verifier, table string, maxLHSSize int) (*Result, error) {
	opts := DefaultOptions()
	opts.MaxLHSSize = maxLHSSize
	e, err := NewEngine(lister, verifier, opts, logger.NewNop())
	if err != nil {
		return nil, err
	}
	return e.Discover(ctx, table)
}

func (e *Engine) validate() error {
	if e.opts.MaxLHSSize <= 0 {
		return &ConfigurationError{Field: "max LHS size", Message: fmt.Sprintf("must be positive, got %d", e.opts.MaxLHSSize)}
	}
	if e.opts.Workers < 1 {
		return &ConfigurationError{Field: "workers", Message: fmt.Sprintf("must be at least 1, got %d", e.opts.Workers)}
	}
	if e.opts.VerifyTimeout < 0 {
		return &ConfigurationError{Field: "verify timeout", Message: "cannot be negative"}
	}
	return nil
}

// Discover finds every minimal dependency of table with a left-hand side of at
// most MaxLHSSize columns.
//
// Fatal errors (configuration, missing table) return a nil result. If ctx is
// cancelled mid-run the partial result is returned together with ctx.Err().
func (e *Engine) Discover(ctx context.Context, table string) (*Result, error) {
	start := time.Now()
	log := e.logger.WithTable(table)

	if err := e.validate(); err != nil {
		return nil, err
	}

	e.setState(StateInitializing)
	columns, err := e.resolveColumns(ctx, table)
	if err != nil {
		e.setState(StateDone)
		return nil, err
	}

	result := &Result{
		Table:      table,
		Columns:    columns,
		MaxLHSSize: e.opts.MaxLHSSize,
	}
	defer func() {
		result.Stats.Duration = time.Since(start)
		e.setState(StateDone)
	}()

	log.Infof("Starting discovery on %q: %d columns, max LHS size %d, %d worker(s)",
		table, len(columns), e.opts.MaxLHSSize, e.opts.Workers)

	index := NewIndex()
	gen := NewGenerator(columns, e.opts.MaxLHSSize)

	for size := 1; size <= gen.MaxSize(); size++ {
		if err := ctx.Err(); err != nil {
			log.Warnf("Discovery interrupted before stratum %d: %v", size, err)
			return result, err
		}

		e.setState(StateEnumerating)
		slog := log.WithStratum(size)
		checks := e.planStratum(gen.Stratum(size), columns, index, result, slog)
		result.Stats.Strata++
		e.observer.StratumStarted(size, len(checks))
		slog.Debugf("%d checks to verify", len(checks))

		if err := e.runStratum(ctx, table, checks, index, result, slog); err != nil {
			log.Warnf("Discovery interrupted in stratum %d: %v (%d dependencies confirmed so far)",
				size, err, result.Count())
			return result, err
		}
	}

	log.Infof("Discovery complete on %q: %d dependencies, %d verified, %d pruned, %d failed, duration: %s",
		table, result.Count(), result.Stats.Verified, result.Stats.Pruned, result.Stats.Failed,
		time.Since(start).Round(time.Millisecond))
	return result, nil
}

func (e *Engine) resolveColumns(ctx context.Context, table string) ([]Attribute, error) {
	names, err := e.lister.ListColumns(ctx, table)
	if err != nil {
		if errors.Is(err, ErrTableNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to list columns of %q: %w", table, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %q has no columns", ErrTableNotFound, table)
	}

	for _, ex := range e.opts.ExcludeColumns {
		if !slices.Contains(names, ex) {
			e.logger.WithTable(table).Warnf("Excluded column %q does not exist", ex)
		}
	}

	columns := make([]Attribute, 0, len(names))
	for _, n := range names {
		if slices.Contains(e.opts.ExcludeColumns, n) {
			continue
		}
		columns = append(columns, Attribute(n))
	}
	if len(columns) == 0 {
		return nil, &ConfigurationError{Field: "exclude columns", Message: fmt.Sprintf("every column of %q is excluded", table)}
	}
	return columns, nil
}

// planStratum applies the triviality and minimality rules to one stratum. Sets of
// equal size are never proper subsets of each other, so the index state at the
// start of the stratum decides every candidate in it.
func (e *Engine) planStratum(candidates []AttributeSet, columns []Attribute, index *Index, result *Result, log *logger.Logger) []Dependency {
	e.setState(StateFiltering)
	var checks []Dependency
	for _, lhs := range candidates {
		result.Stats.Candidates++
		for _, rhs := range columns {
			result.Stats.Checks++
			if lhs.Contains(rhs) {
				result.Stats.Trivial++
				continue
			}
			if index.HasDeterminingSubset(lhs, rhs) {
				result.Stats.Pruned++
				log.Debugf("Skipping %s -> %s (not minimal)", lhs, rhs)
				continue
			}
			checks = append(checks, Dependency{LHS: lhs, RHS: rhs})
		}
	}
	return checks
}

func (e *Engine) runStratum(ctx context.Context, table string, checks []Dependency, index *Index, result *Result, log *logger.Logger) error {
	if e.opts.Workers <= 1 || len(checks) <= 1 {
		for _, dep := range checks {
			if err := ctx.Err(); err != nil {
				return err
			}
			e.setState(StateVerifying)
			c := e.verify(ctx, table, dep)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.commit(c, index, result, log)
		}
		return nil
	}

	e.setState(StateVerifying)
	outcomes := make([]Check, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, dep := range checks {
		g.Go(func() error {
			outcomes[i] = e.verify(gctx, table, dep)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		// Keep what was confirmed before cancellation.
		for _, c := range outcomes {
			if c.Holds && c.Err == nil {
				e.commit(c, index, result, log)
			}
		}
		return err
	}

	for _, c := range outcomes {
		e.commit(c, index, result, log)
	}
	return nil
}

func (e *Engine) verify(ctx context.Context, table string, dep Dependency) Check {
	vctx := ctx
	if e.opts.VerifyTimeout > 0 {
		var cancel context.CancelFunc
		vctx, cancel = context.WithTimeout(ctx, e.opts.VerifyTimeout)
		defer cancel()
	}

	start := time.Now()
	holds, err := e.verifier.Verify(vctx, table, dep.LHS, dep.RHS)
	c := Check{Dependency: dep, Holds: holds, Elapsed: time.Since(start)}
	if err != nil {
		c.Holds = false
		var dae *DataAccessError
		if !errors.As(err, &dae) {
			err = &DataAccessError{Table: table, LHS: dep.LHS, RHS: dep.RHS, Err: err}
		}
		c.Err = err
	}
	return c
}

func (e *Engine) commit(c Check, index *Index, result *Result, log *logger.Logger) {
	e.setState(StateRecording)
	result.Stats.Verified++
	e.observer.CandidateVerified(c)

	switch {
	case c.Err != nil:
		result.Stats.Failed++
		result.Failures = append(result.Failures, Failure{Dependency: c.Dependency, Err: c.Err})
		log.WithCandidate(c.LHS.String(), string(c.RHS)).Warnf("Verification failed, treating as unconfirmed: %v", c.Err)
	case c.Holds:
		if !index.Add(c.LHS, c.RHS) {
			return
		}
		result.Stats.Confirmed++
		result.Dependencies = append(result.Dependencies, c.Dependency)
		e.observer.DependencyFound(c.Dependency)
		log.Debugf("Confirmed %s", c.Dependency)
	}
}
