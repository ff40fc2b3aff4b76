package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/multitest/report-harness/framework/helpers"
	"github.com/multitest/report-harness/report"

	"github.com/fatih/color"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

var (
	consolePassedColor  = color.New(color.FgGreen)
	consoleFailedColor  = color.New(color.FgRed)
	consoleSkippedColor = color.New(color.FgYellow)
	consoleOtherColor   = color.New(color.FgMagenta)
	consoleGroupColor   = color.New(color.Bold)
	consoleDetailColor  = color.New(color.Faint)
)

const treeIndent = "  "

// ConsoleOptions controls PrintTree.
type ConsoleOptions struct {
	// FailuresOnly leaves out nodes whose status is passed or skipped.
	FailuresOnly bool
	// Entries prints the failed assertions and the logs of every case that did not pass.
	Entries bool
	// MaxDepth stops the tree below this many levels under the root. Zero means no limit.
	MaxDepth int
}

// PrintTree writes the report as an indented tree, one line per node.
func PrintTree(w io.Writer, r *report.Report, options ConsoleOptions) {
	report.Walk(r, func(path report.Path, n report.Node) bool {
		depth := len(path) - 1
		if options.MaxDepth > 0 && depth > options.MaxDepth {
			return false
		}
		if options.FailuresOnly && depth > 0 && !n.Status().IsFailure() && n.Status() != report.StatusUnknown {
			return false
		}
		indent := strings.Repeat(treeIndent, depth)
		helpers.MustFprintln(w, indent+describeNode(n))
		if c, ok := n.(*report.CaseReport); ok && options.Entries && !c.Passed() {
			for _, line := range entryLines(c) {
				helpers.MustFprintln(w, indent+treeIndent+consoleDetailColor.Sprint(line))
			}
		}
		return true
	})
}

func describeNode(n report.Node) string {
	var b strings.Builder
	if g, ok := n.(*report.GroupReport); ok {
		b.WriteString(consoleGroupColor.Sprint(g.Name()))
		fmt.Fprintf(&b, " [%s]", g.Category())
	} else {
		b.WriteString(n.Name())
	}
	b.WriteString(" ")
	b.WriteString(statusColor(n.Status()).Sprint(strings.ToUpper(n.Status().String())))
	if _, ok := n.(*report.CaseReport); !ok {
		counter := n.Counter()
		fmt.Fprintf(&b, " (%d/%d passed)", counter[report.StatusPassed], counter.Total())
	}
	if d := n.Timer()[report.TimerRun].Duration(); d > 0 {
		b.WriteString(consoleDetailColor.Sprintf(" %s", formatDuration(d)))
	}
	return b.String()
}

func statusColor(s report.Status) *color.Color {
	switch {
	case s == report.StatusPassed:
		return consolePassedColor
	case s == report.StatusSkipped:
		return consoleSkippedColor
	case s.IsFailure():
		return consoleFailedColor
	default:
		return consoleOtherColor
	}
}

// entryLines describes the entries of a case that explain its outcome.
func entryLines(c *report.CaseReport) []string {
	var lines []string
	for _, e := range c.Entries() {
		switch entry := e.(type) {
		case report.AssertionEntry:
			if entry.Passed {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s: %s", entry.Type, entry.Description))
			for _, frame := range stacktrace(entry) {
				lines = append(lines, treeIndent+frame)
			}
			if details := assertionDetails(entry); details.Count() > 0 {
				lines = append(lines, treeIndent+helpers.CanonicalizedJSONString(details))
			}
		case report.LogEntry:
			if entry.Level != "" {
				lines = append(lines, fmt.Sprintf("[%s] %s", entry.Level, entry.Message))
			} else {
				lines = append(lines, entry.Message)
			}
		case report.AttachmentEntry:
			lines = append(lines, fmt.Sprintf("attachment %s (%d bytes)", entry.SourcePath, entry.FileSize))
		}
	}
	return lines
}

// stacktrace returns the "stacktrace" strings of an assertion's content, if it has any.
func stacktrace(e report.AssertionEntry) []string {
	st := e.Content.GetByKey("stacktrace")
	ret := make([]string, 0, st.Count())
	for i := 0; i < st.Count(); i++ {
		if frame := st.GetByIndex(i); frame.IsString() {
			ret = append(ret, frame.StringValue())
		}
	}
	return ret
}

// assertionDetails is the content of an assertion other than its stacktrace.
func assertionDetails(e report.AssertionEntry) ldvalue.Value {
	if e.Content.Type() != ldvalue.ObjectType {
		return ldvalue.Null()
	}
	b := ldvalue.ObjectBuild()
	for _, key := range e.Content.Keys(nil) {
		if key != "stacktrace" {
			b.Set(key, e.Content.GetByKey(key))
		}
	}
	return b.Build()
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}
