package helpers

import (
	"errors"
	"fmt"
	"strings"
)

// TestContext is the subset of *testing.T and *suite.T that the helpers in this package need,
// so they can be called from Go tests and from suite cases alike.
type TestContext interface {
	Errorf(msgFormat string, msgArgs ...interface{})
	FailNow()
	Helper()
}

// TestRecorder is a TestContext that only records what happened to it. It is meant for
// testing test helpers.
type TestRecorder struct {
	Errors     []string
	Terminated bool
	// PanicOnTerminate makes FailNow panic with the recorder itself, as a real test would exit.
	PanicOnTerminate bool
}

func (r *TestRecorder) Errorf(msgFormat string, msgArgs ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(msgFormat, msgArgs...))
}

func (r *TestRecorder) FailNow() {
	r.Terminated = true
	if r.PanicOnTerminate {
		panic(r)
	}
}

func (r *TestRecorder) Helper() {}

// Err returns all recorded failures joined into one error, or nil.
func (r *TestRecorder) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return errors.New(strings.Join(r.Errors, ", "))
}
