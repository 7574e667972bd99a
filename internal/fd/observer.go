package fd

import "time"

// Check is the outcome of one verification.
type Check struct {
	Dependency
	Holds   bool
	Err     error
	Elapsed time.Duration
}

// Observer receives progress from a discovery run. Calls happen on the goroutine
// running Discover, in discovery order.
type Observer interface {
	StratumStarted(size, checks int)
	CandidateVerified(c Check)
	DependencyFound(d Dependency)
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) StratumStarted(int, int)    {}
func (NopObserver) CandidateVerified(Check)    {}
func (NopObserver) DependencyFound(Dependency) {}

// MultiObserver fans events out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) StratumStarted(size, checks int) {
	for _, o := range m {
		o.StratumStarted(size, checks)
	}
}

func (m MultiObserver) CandidateVerified(c Check) {
	for _, o := range m {
		o.CandidateVerified(c)
	}
}

func (m MultiObserver) DependencyFound(d Dependency) {
	for _, o := range m {
		o.DependencyFound(d)
	}
}
