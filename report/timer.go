package report

import (
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var now = time.Now

// Interval is one timed phase of a node. End is zero while the phase is still open.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns zero for an open interval.
func (i Interval) Duration() time.Duration {
	if i.End.IsZero() {
		return 0
	}
	return i.End.Sub(i.Start)
}

// Standard timer keys.
const (
	TimerRun      = "run"
	TimerSetup    = "setup"
	TimerTeardown = "teardown"
)

// Timer records named intervals such as "run" or "setup".
type Timer map[string]Interval

// Start opens an interval, replacing any earlier one with the same key.
func (t Timer) Start(key string, now time.Time) {
	t[key] = Interval{Start: now}
}

// End closes an interval, opening it at the same moment if it was never started.
func (t Timer) End(key string, now time.Time) {
	iv, ok := t[key]
	if !ok {
		iv.Start = now
	}
	iv.End = now
	t[key] = iv
}

// Keys returns the interval names in sorted order.
func (t Timer) Keys() []string {
	keys := maps.Keys(t)
	slices.Sort(keys)
	return keys
}

// Clone returns a copy; a nil receiver gives an empty, non-nil map.
func (t Timer) Clone() Timer {
	ret := make(Timer, len(t))
	maps.Copy(ret, t)
	return ret
}

// Union copies every interval of other into t. Where both have the same key, other wins.
func (t Timer) Union(other Timer) {
	maps.Copy(t, other)
}
