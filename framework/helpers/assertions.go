package helpers

import (
	"time"
)

// PollForSpecificResultValue calls testFn every interval until it returns expectedValue or
// timeout elapses, and reports whether the value was seen.
func PollForSpecificResultValue[V comparable](
	testFn func() V,
	timeout time.Duration,
	interval time.Duration,
	expectedValue V,
) bool {
	if testFn() == expectedValue {
		return true
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case <-deadline.C:
			return false
		case <-ticker.C:
			if testFn() == expectedValue {
				return true
			}
		}
	}
}

// AssertEventually polls testFn in the calling goroutine until it returns true, and fails the
// test if that does not happen within timeout. Unlike assert.Eventually it can be used inside
// a suite case, whose FailNow must run on the case's own goroutine.
func AssertEventually(
	t TestContext,
	testFn func() bool,
	timeout time.Duration,
	interval time.Duration,
	failureMsgFormat string,
	failureMsgArgs ...interface{},
) bool {
	t.Helper()
	if PollForSpecificResultValue(testFn, timeout, interval, true) {
		return true
	}
	t.Errorf(failureMsgFormat, failureMsgArgs...)
	return false
}

// RequireEventually is AssertEventually followed by FailNow on failure.
func RequireEventually(
	t TestContext,
	testFn func() bool,
	timeout time.Duration,
	interval time.Duration,
	failureMsgFormat string,
	failureMsgArgs ...interface{},
) {
	t.Helper()
	if !AssertEventually(t, testFn, timeout, interval, failureMsgFormat, failureMsgArgs...) {
		t.FailNow()
	}
}
