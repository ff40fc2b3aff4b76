package suite

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"

	"github.com/multitest/report-harness/framework"
	"github.com/multitest/report-harness/report"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// EntryTypeFailure is the entry type recorded by T.Errorf.
const EntryTypeFailure = "Fail"

// T represents the scope of one running test case. It is very similar to Go's testing.T type,
// and can be passed to testify's assert and require functions.
//
// Everything a test reports through T becomes an entry of the case's report node: failures
// from Errorf, checks from Assert, messages from Log, and files from Attach.
type T struct {
	env         *environment
	id          TestID
	params      Params
	result      *report.CaseReport
	debugLogger framework.CapturingLogger
	failed      bool
	skipped     bool
	skipReason  string
	cleanups    []func()
	helperFns   []string
}

func (t *T) run(action func(*T)) {
	t.result.SetRuntimeStatus(report.RuntimeRunning)
	t.result.TimerStart(report.TimerRun)
	defer func() {
		if r := recover(); r != nil {
			switch {
			case t.skipped:
				t.result.SetStatusOverride(report.StatusSkipped)
				if t.skipReason != "" {
					t.result.Append(report.LogEntry{Type: report.EntryTypeLog, Message: t.skipReason, Level: "INFO"})
				}
			case r == interface{}(t):
				if !t.failed {
					t.fail(fmt.Errorf("test failed with no failure message"))
				}
			default:
				err := fmt.Errorf("unexpected panic in test: %+v\n%s", r, string(debug.Stack()))
				t.result.Append(report.LogEntry{Type: report.EntryTypeLog, Message: err.Error(), Level: "ERROR"})
				t.result.SetStatusOverride(report.StatusError)
				t.env.config.TestLogger.TestError(t.id, err)
			}
		}
		for i := len(t.cleanups) - 1; i >= 0; i-- {
			t.cleanups[i]()
		}
		t.result.TimerEnd(report.TimerRun)
		t.result.SetRuntimeStatus(report.RuntimeFinished)
	}()

	action(t)
}

func (t *T) fail(err error) {
	t.failed = true
	entry := report.AssertionEntry{Type: EntryTypeFailure, Description: err.Error(), Passed: false}
	if es, ok := err.(ErrorWithStacktrace); ok {
		entry.Content = ldvalue.ObjectBuild().Set("stacktrace", stacktraceValue(es.Stacktrace)).Build()
	}
	t.result.Append(entry)
	t.env.config.TestLogger.TestError(t.id, err)
}

// ID returns the full name of the current test.
func (t *T) ID() TestID {
	return t.id
}

// Param returns the value of a parameter of a parametrized case, or "" if there is none.
func (t *T) Param(name string) string {
	return t.params[name]
}

// Params returns a copy of the case's parameter set. It is empty for a case that is not
// parametrized.
func (t *T) Params() Params {
	return t.params.clone()
}

// Errorf reports a test failure. It is equivalent to Go's testing.T.Errorf. It does not cause the test
// to terminate, but adds a failed entry with the message to the case and marks the test as failed.
//
// You will rarely use this method directly; it is part of this type's implementation of the base
// interfaces testing.T and assert.TestingT, allowing it to be called from assertion helpers.
func (t *T) Errorf(format string, args ...interface{}) {
	stacktrace := getStacktrace(false, t.helperFns)
	t.fail(transformError(fmt.Errorf(format, args...), stacktrace))
}

// FailNow causes the test to immediately terminate and be marked as failed.
func (t *T) FailNow() {
	panic(t)
}

// Failed reports whether any failure has been recorded so far.
func (t *T) Failed() bool {
	return t.failed
}

// Assert records a checked condition as an entry and returns passed. A false condition fails
// the case but does not terminate it.
func (t *T) Assert(passed bool, description string) bool {
	t.result.Append(report.Assertion(passed, description))
	if !passed {
		t.failed = true
		t.env.config.TestLogger.TestError(t.id, fmt.Errorf("assertion failed: %s", description))
	}
	return passed
}

// Log adds a message entry to the case. Unlike Debug output, it is part of the report.
func (t *T) Log(format string, args ...interface{}) {
	t.result.Append(report.LogEntry{Type: report.EntryTypeLog, Message: fmt.Sprintf(format, args...), Level: "INFO"})
}

// Attach adds an entry referencing a file produced by the test. The file must exist; its size
// and a SHA-256 hash of its content are recorded.
func (t *T) Attach(path, description string) error {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	t.result.Append(report.AttachmentEntry{
		Description:  description,
		SourcePath:   abs,
		OrigFilename: filepath.Base(path),
		FileSize:     info.Size(),
		Hash:         hex.EncodeToString(h.Sum(nil)),
	})
	return nil
}

// Skip causes the test to immediately terminate and be marked as skipped.
func (t *T) Skip() {
	t.skipped = true
	panic(t)
}

// SkipWithReason is equivalent to Skip but provides a message.
func (t *T) SkipWithReason(reason string) {
	t.skipReason = reason
	t.Skip()
}

// Debug writes a message to the output for this test scope.
func (t *T) Debug(message string, args ...interface{}) {
	t.debugLogger.Printf(message, args...)
}

// DebugLogger returns a Logger for writing output for this test scope.
//
// The output that is captured for a test is passed to TestLogger.TestFinished at the end of
// the test, and is not part of the report. While a case is running, anything sent to the
// logger of its suite goes to the case's logger instead.
func (t *T) DebugLogger() framework.Logger {
	return &t.debugLogger
}

// Defer schedules a cleanup function which is guaranteed to be called when this test scope
// exits for any reason. Unlike a Go defer statement, Defer can be used from within helper
// functions.
func (t *T) Defer(cleanupFn func()) {
	t.cleanups = append(t.cleanups, cleanupFn)
}

// Context returns the application-defined context value, if any, that was specified in the
// Configuration.
func (t *T) Context() interface{} {
	return t.env.config.Context
}

// Ctx returns a context that is cancelled when the run is cancelled.
func (t *T) Ctx() context.Context {
	return t.env.ctx
}

// Helper marks the function that calls it as a test helper that shouldn't appear in stacktraces.
// Equivalent to Go's testing.T.Helper().
func (t *T) Helper() {
	pc, _, _, ok := runtime.Caller(1) // 0 is Helper() itself, 1 is who called it
	if !ok {
		return
	}
	f := runtime.FuncForPC(pc)
	if f == nil {
		return
	}
	t.helperFns = append(t.helperFns, f.Name())
}
