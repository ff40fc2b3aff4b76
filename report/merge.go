package report

import (
	"errors"
	"sync"
	"time"

	"github.com/multitest/report-harness/framework"
	"github.com/multitest/report-harness/framework/helpers"
)

// Merger owns a target report and merges partial reports into it one at a time. All of its
// methods may be called from any goroutine, but merges never run concurrently.
type Merger struct {
	target    *Report
	strict    bool
	logger    framework.Logger
	observers []MergeObserver
	merged    int
	rejected  int
	lock      sync.Mutex
}

// MergeResult describes one call to Merger.Merge.
type MergeResult struct {
	Source   string
	Err      error
	Duration time.Duration
	// Cases is the number of test cases in the partial report.
	Cases int
	// Counter is the state of the whole target after the merge.
	Counter Counter
}

// MergeObserver is notified after every merge attempt, including failed ones.
type MergeObserver func(MergeResult)

type MergerOption helpers.ConfigOption[Merger]

type mergerOptionStrict bool

func (o mergerOptionStrict) Configure(m *Merger) error {
	m.strict = bool(o)
	return nil
}

// MergerStrict makes the merger reject partial reports that conflict with the target.
func MergerStrict(strict bool) MergerOption { return mergerOptionStrict(strict) }

type mergerOptionLogger struct{ logger framework.Logger }

func (o mergerOptionLogger) Configure(m *Merger) error {
	if o.logger == nil {
		return errors.New("logger must not be nil")
	}
	m.logger = o.logger
	return nil
}

func MergerLogger(logger framework.Logger) MergerOption { return mergerOptionLogger{logger} }

type mergerOptionObserver struct{ fn MergeObserver }

func (o mergerOptionObserver) Configure(m *Merger) error {
	m.observers = append(m.observers, o.fn)
	return nil
}

func MergerObserver(fn MergeObserver) MergerOption { return mergerOptionObserver{fn} }

// NewMerger creates a Merger for target, which must not be nil.
func NewMerger(target *Report, options ...MergerOption) (*Merger, error) {
	if target == nil {
		return nil, errors.New("merge target must not be nil")
	}
	m := &Merger{target: target, logger: framework.NullLogger()}
	if err := helpers.ApplyOptions(m, options...); err != nil {
		return nil, err
	}
	return m, nil
}

// Merge merges partial into the target. The source is only used for logging and observers.
func (m *Merger) Merge(source string, partial *Report) error {
	startTime := time.Now()
	cases := 0
	for range Cases(partial) {
		cases++
	}

	m.lock.Lock()
	err := m.target.Merge(partial, m.strict)
	if err == nil {
		m.merged++
	} else {
		m.rejected++
	}
	result := MergeResult{
		Source:   source,
		Err:      err,
		Duration: time.Since(startTime),
		Cases:    cases,
		Counter:  m.target.Counter(),
	}
	observers := append([]MergeObserver(nil), m.observers...)
	m.lock.Unlock()

	if err != nil {
		m.logger.Printf("Rejected partial report %q: %s", source, err)
	} else {
		m.logger.Printf("Merged partial report %q (%d cases, %d in total)", source, cases,
			result.Counter.Total())
	}
	for _, o := range observers {
		o(result)
	}
	return err
}

// Snapshot returns a deep copy of the target as it is now.
func (m *Merger) Snapshot() *Report {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.target.Clone()
}

// Reset makes target the new merge target and sets both counts back to zero.
func (m *Merger) Reset(target *Report) error {
	if target == nil {
		return errors.New("merge target must not be nil")
	}
	m.lock.Lock()
	m.target = target
	m.merged, m.rejected = 0, 0
	m.lock.Unlock()
	return nil
}

// Counts returns how many partial reports were merged and how many were rejected.
func (m *Merger) Counts() (merged, rejected int) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.merged, m.rejected
}

// MergeAll merges partials in order into a new report named after the first of them. It
// stops at the first error.
func MergeAll(strict bool, partials ...*Report) (*Report, error) {
	if len(partials) == 0 {
		return nil, errors.New("no reports to merge")
	}
	target := New(partials[0].Name())
	for _, p := range partials {
		if err := target.Merge(p, strict); err != nil {
			return nil, err
		}
	}
	return target, nil
}
