package export

import (
	"github.com/multitest/report-harness/report"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

func finishedCase(name string, entries ...report.Entry) *report.CaseReport {
	c := report.NewCase(report.UID(name), name)
	c.Append(entries...)
	c.SetRuntimeStatus(report.RuntimeFinished)
	return c
}

// sampleReport has one passing and one failing multitest.
//
//	plan
//	  Good: Suite1 {ok1, ok2}
//	  Bad:  Suite2 {ok3, broken, skipped, pending, crashed, param[x=1], param[x=2]}, loose
func sampleReport() *report.Report {
	r := report.New("plan")
	r.Meta["commit"] = "abc"

	good := report.NewGroup("Good", "Good", report.CategoryMultiTest)
	good.MustAppend(report.NewGroup("Suite1", "Suite1", report.CategoryTestSuite).MustAppend(
		finishedCase("ok1", report.Assertion(true, "fine")),
		finishedCase("ok2"),
	))

	broken := finishedCase("broken",
		report.Assertion(true, "first"),
		report.AssertionEntry{Type: "Fail", Description: "values differ", Passed: false,
			Content: ldvalue.ObjectBuild().Set("stacktrace",
				ldvalue.ArrayOf(ldvalue.String("suite_test.go:10"), ldvalue.String("runner.go:20"))).Build()},
		report.LogEntry{Type: report.EntryTypeLog, Message: "some output", Level: "INFO"},
	)
	skipped := finishedCase("skipped", report.LogEntry{Type: report.EntryTypeLog, Message: "not today"})
	skipped.SetStatusOverride(report.StatusSkipped)
	crashed := finishedCase("crashed", report.LogEntry{Type: report.EntryTypeLog, Message: "panic: boom", Level: "ERROR"})
	crashed.SetStatusOverride(report.StatusError)
	param := report.NewGroup("param", "param", report.CategoryParametrization).MustAppend(
		finishedCase("param[x=1]"),
		finishedCase("param[x=2]", report.Assertion(false, "x is wrong")),
	)

	bad := report.NewGroup("Bad", "Bad", report.CategoryMultiTest)
	bad.MustAppend(
		report.NewGroup("Suite2", "Suite2", report.CategoryTestSuite).MustAppend(
			finishedCase("ok3"), broken, skipped, report.NewCase("pending", "pending"), crashed, param,
		),
		finishedCase("loose"),
	)
	r.MustAppend(good, bad)
	return r
}
