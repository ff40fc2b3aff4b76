package suite

import (
	"context"
	"testing"

	"github.com/multitest/report-harness/framework"
	"github.com/multitest/report-harness/report"

	"github.com/stretchr/testify/require"
)

// runCases runs cases as the only suite of a single multitest and returns the report.
func runCases(t *testing.T, config Configuration, cases ...Case) *report.Report {
	t.Helper()
	r, err := Run(context.Background(), config, "plan", MultiTest{
		Name:   "mt",
		Suites: []Suite{{Name: "s", Cases: cases}},
	})
	require.NoError(t, err)
	return r
}

func lookupCase(t *testing.T, r *report.Report, path ...report.UID) *report.CaseReport {
	t.Helper()
	n, err := r.Lookup(path...)
	require.NoError(t, err)
	c, ok := n.(*report.CaseReport)
	require.True(t, ok, "%s is not a case", path)
	return c
}

func samplePlan() []MultiTest {
	noop := func(*T) {}
	return []MultiTest{
		{
			Name: "First",
			Tags: report.Tags{"color": {"green"}},
			Suites: []Suite{
				{Name: "Alpha", Cases: []Case{{Name: "a1", Func: noop}, {Name: "a2", Func: noop}}},
				{Name: "Beta", Cases: []Case{
					{Name: "b1", Func: noop},
					{Name: "b2", Func: noop, Parameters: []Params{{"n": "1"}, {"n": "2"}, {"n": "3"}}},
				}},
			},
		},
		{
			Name:   "Second",
			Suites: []Suite{{Name: "Gamma", Cases: []Case{{Name: "g1", Func: noop}}}},
		},
	}
}

type recordingTestLogger struct {
	started  []string
	errors   []string
	finished map[string]report.Status
	skipped  map[string]string
}

func newRecordingTestLogger() *recordingTestLogger {
	return &recordingTestLogger{finished: make(map[string]report.Status), skipped: make(map[string]string)}
}

func (r *recordingTestLogger) TestStarted(id TestID) { r.started = append(r.started, id.String()) }

func (r *recordingTestLogger) TestError(id TestID, err error) {
	r.errors = append(r.errors, err.Error())
}

func (r *recordingTestLogger) TestFinished(id TestID, status report.Status, _ framework.CapturedOutput) {
	r.finished[id.String()] = status
}

func (r *recordingTestLogger) TestSkipped(id TestID, reason string) { r.skipped[id.String()] = reason }

type debugCapturingTestLogger struct {
	*recordingTestLogger
	output *string
}

func (d *debugCapturingTestLogger) TestFinished(id TestID, status report.Status, debugOutput framework.CapturedOutput) {
	*d.output = debugOutput.ToString("")
}
