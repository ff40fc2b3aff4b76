package report

import (
	"fmt"
	"strings"
)

// Status is the pass/fail outcome of a report node.
type Status string

const (
	StatusError      Status = "error"
	StatusIncomplete Status = "incomplete"
	StatusFailed     Status = "failed"
	StatusUnknown    Status = "unknown"
	StatusUnstable   Status = "unstable"
	StatusPassed     Status = "passed"
	StatusSkipped    Status = "skipped"
)

// statusPrecedence lists statuses from the one that dominates an aggregate to the one that
// dominates least. A group containing a passed and a skipped child is therefore passed.
var statusPrecedence = []Status{
	StatusError,
	StatusIncomplete,
	StatusFailed,
	StatusUnknown,
	StatusUnstable,
	StatusPassed,
	StatusSkipped,
}

// AllStatuses returns every status value in precedence order.
func AllStatuses() []Status {
	return append([]Status(nil), statusPrecedence...)
}

func (s Status) rank() int {
	for i, p := range statusPrecedence {
		if p == s {
			return i
		}
	}
	return len(statusPrecedence)
}

// IsValid returns true if s is one of the defined statuses.
func (s Status) IsValid() bool { return s.rank() < len(statusPrecedence) }

// IsFailure returns true for statuses that make an aggregate fail.
func (s Status) IsFailure() bool {
	return s == StatusError || s == StatusIncomplete || s == StatusFailed
}

func (s Status) String() string { return string(s) }

// ParseStatus accepts any casing of a status name.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// Precedent returns whichever of the given statuses has the highest precedence. With no
// arguments it returns StatusUnknown.
func Precedent(statuses ...Status) Status {
	if len(statuses) == 0 {
		return StatusUnknown
	}
	best := statuses[0]
	for _, s := range statuses[1:] {
		if s.rank() < best.rank() {
			best = s
		}
	}
	return best
}

// RuntimeStatus tracks execution progress independently of the outcome.
type RuntimeStatus string

const (
	RuntimeReady    RuntimeStatus = "ready"
	RuntimeWaiting  RuntimeStatus = "waiting"
	RuntimeRunning  RuntimeStatus = "running"
	RuntimeFinished RuntimeStatus = "finished"
	RuntimeNotRun   RuntimeStatus = "not_run"
)

// IsValid returns true if r is one of the defined runtime statuses.
func (r RuntimeStatus) IsValid() bool {
	switch r {
	case RuntimeReady, RuntimeWaiting, RuntimeRunning, RuntimeFinished, RuntimeNotRun:
		return true
	}
	return false
}

// Executed is true for a node that has actually started running. A node that was never run,
// whether still ready or given up on as not run, has not been executed.
func (r RuntimeStatus) Executed() bool {
	return r == RuntimeRunning || r == RuntimeWaiting || r == RuntimeFinished
}

func (r RuntimeStatus) done() bool { return r == RuntimeFinished || r == RuntimeNotRun }

// ParseRuntimeStatus accepts any casing of a runtime status name.
func ParseRuntimeStatus(s string) (RuntimeStatus, error) {
	rs := RuntimeStatus(strings.ToLower(strings.TrimSpace(s)))
	if !rs.IsValid() {
		return "", fmt.Errorf("unknown runtime status %q", s)
	}
	return rs, nil
}

// aggregateRuntime rolls child runtime statuses up into the status of their parent.
func aggregateRuntime(statuses []RuntimeStatus) RuntimeStatus {
	if len(statuses) == 0 {
		return RuntimeReady
	}
	allReady, allDone, allNotRun := true, true, true
	for _, s := range statuses {
		if s == RuntimeRunning {
			return RuntimeRunning
		}
		if s != RuntimeReady {
			allReady = false
		}
		if !s.done() {
			allDone = false
		}
		if s != RuntimeNotRun {
			allNotRun = false
		}
	}
	switch {
	case allReady:
		return RuntimeReady
	case allNotRun:
		return RuntimeNotRun
	case allDone:
		return RuntimeFinished
	default:
		return RuntimeWaiting
	}
}
