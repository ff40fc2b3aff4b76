package suite

import (
	"fmt"
	"os"
	"strings"

	"github.com/multitest/report-harness/framework"
	"github.com/multitest/report-harness/report"

	"github.com/fatih/color"
)

var consoleTestErrorColor = color.New(color.FgYellow)
var consoleTestFailedColor = color.New(color.FgRed)
var consoleTestSkippedColor = color.New(color.Faint, color.FgBlue)
var consoleDebugOutputColor = color.New(color.Faint)
var allTestsPassedColor = color.New(color.FgGreen)

// TestLogger receives progress notifications from Run.
type TestLogger interface {
	TestStarted(id TestID)
	TestError(id TestID, err error)
	TestFinished(id TestID, status report.Status, debugOutput framework.CapturedOutput)
	TestSkipped(id TestID, reason string)
}

type nullTestLogger struct{}

func (n nullTestLogger) TestStarted(TestID)                                           {}
func (n nullTestLogger) TestError(TestID, error)                                      {}
func (n nullTestLogger) TestFinished(TestID, report.Status, framework.CapturedOutput) {}
func (n nullTestLogger) TestSkipped(TestID, string)                                   {}

type ConsoleTestLogger struct {
	DebugOutputOnFailure bool
	DebugOutputOnSuccess bool
}

func (c ConsoleTestLogger) TestStarted(id TestID) {
	fmt.Printf("[%s]\n", id)
}

func (c ConsoleTestLogger) TestError(id TestID, err error) {
	for _, line := range strings.Split(err.Error(), "\n") {
		_, _ = consoleTestErrorColor.Printf("  %s\n", line)
	}
	if es, ok := err.(ErrorWithStacktrace); ok {
		for _, s := range es.Stacktrace {
			_, _ = consoleDebugOutputColor.Printf("    at %s\n", s)
		}
	}
}

func (c ConsoleTestLogger) TestFinished(id TestID, status report.Status, debugOutput framework.CapturedOutput) {
	failed := status.IsFailure()
	if failed {
		_, _ = consoleTestFailedColor.Printf("  %s: %s\n", strings.ToUpper(string(status)), id)
	}
	if len(debugOutput) > 0 &&
		((failed && c.DebugOutputOnFailure) || (!failed && c.DebugOutputOnSuccess)) {
		_, _ = consoleDebugOutputColor.Println(debugOutput.ToString("    DEBUG "))
	}
}

func (c ConsoleTestLogger) TestSkipped(id TestID, reason string) {
	if reason == "" {
		_, _ = consoleTestSkippedColor.Printf("  SKIPPED: %s\n", id)
	} else {
		_, _ = consoleTestSkippedColor.Printf("  SKIPPED: %s (%s)\n", id, reason)
	}
}

// PrintResults writes a one-line verdict for a report, followed by the paths of any cases that
// did not pass.
func PrintResults(r *report.Report) {
	var failures []string
	for path, c := range report.Cases(r) {
		if c.Status().IsFailure() {
			failures = append(failures, fmt.Sprintf("%s (%s)", path, c.Status()))
		}
	}
	if len(failures) == 0 {
		_, _ = allTestsPassedColor.Printf("All tests passed (%d)\n", r.Counter().Total())
		return
	}
	_, _ = consoleTestFailedColor.Fprintf(os.Stderr, "FAILED TESTS (%d):\n", len(failures))
	for _, f := range failures {
		_, _ = consoleTestFailedColor.Fprintf(os.Stderr, "  * %s\n", f)
	}
}
