// Package internal contains helpers for the suite package's own tests.
package internal

// RunAction calls action. It lives outside package suite so that stacktraces have a frame
// from another package to find.
func RunAction(action func()) {
	action()
}
