// Package coordinator implements the service that workers submit partial reports to. It
// merges them one at a time into a single report for the whole plan.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/multitest/report-harness/framework"
	"github.com/multitest/report-harness/metrics"
	"github.com/multitest/report-harness/report"
	"github.com/multitest/report-harness/servicedef"
	"github.com/multitest/report-harness/store"

	"github.com/google/uuid"
	"github.com/launchdarkly/eventsource"
)

// DefaultRunID is the store key used when Config.RunID is empty.
const DefaultRunID = "default"

const eventsChannel = "merges"

// ErrClosed is returned for partials submitted after Close.
var ErrClosed = errors.New("coordinator is closed")

type Config struct {
	// Plan is the name of the merged report.
	Plan string
	// Strict makes the coordinator reject partials whose results conflict with ones it has.
	Strict bool
	// Target is an initial report to merge into, such as a skeleton of the whole plan. If it
	// is set, Plan is ignored.
	Target *report.Report
	// Store, if set, keeps every submitted partial under RunID so that Replay can rebuild
	// the report after a restart.
	Store store.PartialStore
	RunID string
	// Persistent says that Store outlives this process.
	Persistent bool
	Logger     framework.Logger
}

// Coordinator owns a merged report. Submissions are handed to a single goroutine which
// stores and merges them in the order they arrive.
type Coordinator struct {
	config   Config
	merger   *report.Merger
	initial  *report.Report
	recorder *metrics.Recorder
	jobs     chan *mergeJob
	streams  *eventsource.Server
	partials map[string]store.StoredPartial
	stopCh   chan struct{}
	closeCh  chan struct{}
	doneCh   chan struct{}
	// lastResult is only touched on the merge goroutine, by the merger's observer.
	lastResult report.MergeResult
	logger     framework.Logger
	lock       sync.RWMutex
	stopOnce   sync.Once
	closeOnce  sync.Once
}

type mergeJob struct {
	ctx      context.Context
	partial  store.StoredPartial
	report   *report.Report
	persist  bool
	reset    bool
	resultCh chan mergeOutcome
}

type mergeOutcome struct {
	result report.MergeResult
	err    error
	stored bool
}

// New creates a Coordinator and starts its merge goroutine.
func New(config Config) (*Coordinator, error) {
	logger := config.Logger
	if logger == nil {
		logger = framework.NullLogger()
	}
	if config.RunID == "" {
		config.RunID = DefaultRunID
	}
	target := config.Target
	if target == nil {
		if config.Plan == "" {
			return nil, errors.New("plan name is required")
		}
		target = report.New(config.Plan)
	}

	streams := eventsource.NewServer()
	streams.Logger = logger

	c := &Coordinator{
		config:   config,
		recorder: metrics.NewRecorder(logger),
		jobs:     make(chan *mergeJob),
		streams:  streams,
		partials: make(map[string]store.StoredPartial),
		stopCh:   make(chan struct{}),
		closeCh:  make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   logger,
	}
	merger, err := report.NewMerger(target,
		report.MergerStrict(config.Strict),
		report.MergerLogger(logger),
		report.MergerObserver(c.recorder.RecordMerge),
		report.MergerObserver(func(r report.MergeResult) { c.lastResult = r }),
	)
	if err != nil {
		return nil, err
	}
	c.merger = merger
	c.initial = target.Clone()
	c.recorder.RecordCases(target.Counter())

	go c.runMerges()
	return c, nil
}

// Submit stores and merges one partial report, and waits until that is done. A store failure
// leaves the report unchanged. The returned ID identifies the partial even if it could not be
// merged, as long as it was stored.
func (c *Coordinator) Submit(ctx context.Context, source string, data []byte) (string, report.MergeResult, error) {
	partial, err := report.Parse(data)
	if err != nil {
		c.recorder.RecordError(metrics.ErrorKindParse)
		return "", report.MergeResult{}, &invalidPartialError{err}
	}
	job := &mergeJob{
		ctx:      ctx,
		partial:  store.StoredPartial{ID: uuid.NewString(), Source: source, Data: data},
		report:   partial,
		persist:  true,
		resultCh: make(chan mergeOutcome, 1),
	}
	outcome, err := c.enqueue(ctx, job)
	if err != nil {
		return "", report.MergeResult{}, err
	}
	if !outcome.stored {
		return "", outcome.result, outcome.err
	}
	return job.partial.ID, outcome.result, outcome.err
}

// Replay merges every partial already in the store, in the order they were stored. It returns
// the number merged; partials that are rejected again are logged and skipped.
func (c *Coordinator) Replay(ctx context.Context) (int, error) {
	if c.config.Store == nil {
		return 0, nil
	}
	stored, err := c.config.Store.List(ctx, c.config.RunID)
	if err != nil {
		c.recorder.RecordError(metrics.ErrorKindStore)
		return 0, fmt.Errorf("failed to read stored partials: %w", err)
	}
	merged := 0
	for _, p := range stored {
		partial, err := report.Parse(p.Data)
		if err != nil {
			c.logger.Printf("Ignoring stored partial %s, which could not be parsed: %s", p.ID, err)
			continue
		}
		outcome, err := c.enqueue(ctx, &mergeJob{ctx: ctx, partial: p, report: partial, resultCh: make(chan mergeOutcome, 1)})
		if err != nil {
			return merged, err
		}
		if outcome.err == nil {
			merged++
		}
	}
	c.logger.Printf("Replayed %d of %d stored partial(s)", merged, len(stored))
	return merged, nil
}

func (c *Coordinator) enqueue(ctx context.Context, job *mergeJob) (mergeOutcome, error) {
	select {
	case c.jobs <- job:
	case <-c.closeCh:
		return mergeOutcome{}, ErrClosed
	case <-ctx.Done():
		return mergeOutcome{}, ctx.Err()
	}
	// once accepted, a job always completes
	return <-job.resultCh, nil
}

func (c *Coordinator) runMerges() {
	defer close(c.doneCh)
	for {
		select {
		case job := <-c.jobs:
			if job.reset {
				job.resultCh <- mergeOutcome{err: c.reset(job.ctx)}
			} else {
				job.resultCh <- c.merge(job)
			}
		case <-c.closeCh:
			return
		}
	}
}

func (c *Coordinator) merge(job *mergeJob) mergeOutcome {
	if job.persist && c.config.Store != nil {
		if err := c.config.Store.Put(job.ctx, c.config.RunID, job.partial); err != nil {
			c.recorder.RecordError(metrics.ErrorKindStore)
			return mergeOutcome{err: fmt.Errorf("failed to store partial: %w", err)}
		}
	}
	c.lock.Lock()
	c.partials[job.partial.ID] = job.partial
	c.lock.Unlock()

	err := c.merger.Merge(mergeSource(job.partial), job.report)
	result := c.lastResult
	c.publish(job.partial, result)
	return mergeOutcome{result: result, err: err, stored: true}
}

func mergeSource(p store.StoredPartial) string {
	if p.Source != "" {
		return p.Source
	}
	return p.ID
}

func (c *Coordinator) publish(p store.StoredPartial, result report.MergeResult) {
	e := servicedef.MergeEvent{
		ID:             p.ID,
		Source:         p.Source,
		Cases:          result.Cases,
		Counter:        counterMap(result.Counter),
		Status:         servicedef.EventMerged,
		DurationMillis: result.Duration.Milliseconds(),
	}
	if result.Err != nil {
		e.Status = servicedef.EventRejected
		e.Error = result.Err.Error()
	}
	event := mergeEvent{name: e.Status, data: e}
	c.logger.Printf("sending %s event with data: %s", event.Event(), event.Data())
	c.streams.Publish([]string{eventsChannel}, event)
}

// Partial returns a submitted partial by ID.
func (c *Coordinator) Partial(id string) (store.StoredPartial, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	p, ok := c.partials[id]
	return p, ok
}

// Report returns a copy of the merged report as it is now.
func (c *Coordinator) Report() *report.Report {
	return c.merger.Snapshot()
}

// Info describes the coordinator and the state of its report.
func (c *Coordinator) Info() servicedef.StatusRep {
	snapshot := c.merger.Snapshot()
	merged, rejected := c.merger.Counts()
	capabilities := []string{servicedef.CapabilityMergeEvents}
	if c.config.Strict {
		capabilities = append(capabilities, servicedef.CapabilityStrictMerge)
	}
	if c.config.Store != nil && c.config.Persistent {
		capabilities = append(capabilities, servicedef.CapabilityPersistentStore)
	}
	rep := servicedef.StatusRep{Cases: counterMap(snapshot.Counter())}
	rep.Name = snapshot.Name()
	rep.Status = snapshot.Status().String()
	rep.Strict = c.config.Strict
	rep.Merged = merged
	rep.Rejected = rejected
	rep.Capabilities = capabilities
	return rep
}

// Reset discards the merged report and the stored partials, and starts again from the
// report the coordinator was created with.
func (c *Coordinator) Reset(ctx context.Context) error {
	outcome, err := c.enqueue(ctx, &mergeJob{ctx: ctx, reset: true, resultCh: make(chan mergeOutcome, 1)})
	if err != nil {
		return err
	}
	return outcome.err
}

func (c *Coordinator) reset(ctx context.Context) error {
	if c.config.Store != nil {
		if err := c.config.Store.Reset(ctx, c.config.RunID); err != nil {
			c.recorder.RecordError(metrics.ErrorKindStore)
			return fmt.Errorf("failed to delete stored partials: %w", err)
		}
	}
	c.lock.Lock()
	c.partials = make(map[string]store.StoredPartial)
	c.lock.Unlock()
	target := c.initial.Clone()
	c.recorder.RecordCases(target.Counter())
	c.logger.Printf("Reset report %q", target.Name())
	return c.merger.Reset(target)
}

// Stop signals Stopped. It is what a DELETE request to the service does.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Stopped is closed once Stop has been called.
func (c *Coordinator) Stopped() <-chan struct{} {
	return c.stopCh
}

// Close stops the merge goroutine and closes all event streams. Submissions in progress are
// finished first.
func (c *Coordinator) Close() error {
	c.closeOnce.Do(func() {
		close(c.closeCh)
		<-c.doneCh
		c.streams.Close()
	})
	return nil
}

func counterMap(counter report.Counter) map[string]int {
	ret := make(map[string]int, len(counter))
	for s, n := range counter {
		ret[s.String()] = n
	}
	return ret
}

type invalidPartialError struct {
	err error
}

func (e *invalidPartialError) Error() string { return "invalid partial report: " + e.err.Error() }
func (e *invalidPartialError) Unwrap() error { return e.err }
