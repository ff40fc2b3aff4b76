package helpers

import (
	"time"

	"github.com/multitest/report-harness/framework/opt"
)

// TryReceive waits up to timeout for a value.
func TryReceive[V any](ch <-chan V, timeout time.Duration) opt.Maybe[V] {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case value := <-ch:
		return opt.Some(value)
	case <-deadline.C:
		return opt.None[V]()
	}
}

// RequireValue waits up to timeout for a value, failing the test immediately if none arrives.
func RequireValue[V any](t TestContext, ch <-chan V, timeout time.Duration) V {
	t.Helper()
	var empty V
	return RequireValueWithMessage(t, ch, timeout, "timed out waiting for value of type %T", empty)
}

func RequireValueWithMessage[V any](
	t TestContext,
	ch <-chan V,
	timeout time.Duration,
	msgFormat string,
	msgArgs ...interface{},
) V {
	t.Helper()
	value := TryReceive(ch, timeout)
	if !value.IsDefined() {
		t.Errorf(msgFormat, msgArgs...)
		t.FailNow()
	}
	return value.Value()
}

// RequireNoMoreValues fails the test immediately if a value arrives within timeout.
func RequireNoMoreValues[V any](t TestContext, ch <-chan V, timeout time.Duration) {
	t.Helper()
	if value := TryReceive(ch, timeout); value.IsDefined() {
		t.Errorf("received unexpected extra value of type %T: %v", value.Value(), value.Value())
		t.FailNow()
	}
}
