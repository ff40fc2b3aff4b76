package main

import (
	"bytes"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/multitest/report-harness/coordinator"
	"github.com/multitest/report-harness/data"
	"github.com/multitest/report-harness/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const failingPlan = `
name: Failing plan
multitests:
  - name: Things
    suites:
      - name: Checks
        cases:
          - name: works
          - name: breaks
            outcome: failed
          - name: absent
            outcome: skipped
`

func runApp(t *testing.T, args ...string) (string, int) {
	var out, errOut bytes.Buffer
	err := newApp(&out, &errOut).Run(append([]string{"report-harness"}, args...))
	code := exitCode(err, io.Discard)
	return out.String() + errOut.String(), code
}

func runParts(t *testing.T, dir string, parts int) []string {
	var files []string
	for part := 1; part <= parts; part++ {
		file := filepath.Join(dir, "part"+strconv.Itoa(part)+".json")
		_, code := runApp(t, "run", "--sample",
			"--parts", strconv.Itoa(parts), "--part", strconv.Itoa(part), "--out", file)
		require.Equal(t, exitSuccess, code)
		files = append(files, file)
	}
	return files
}

func TestRunAndMergeParts(t *testing.T) {
	dir := t.TempDir()
	files := runParts(t, dir, 3)

	first, err := data.LoadReportFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, report.Counter{report.StatusPassed: 4}, first.Counter())
	assert.Equal(t, "part-1-of-3", first.Meta["source"])

	mergedFile := filepath.Join(dir, "merged.json")
	_, code := runApp(t, "merge", "--sample", "--strict", "--out", mergedFile, files[0], files[1], files[2])
	require.Equal(t, exitSuccess, code)

	merged, err := data.LoadReportFile(mergedFile)
	require.NoError(t, err)
	assert.Equal(t, "Sample plan", merged.Name())
	assert.Equal(t, report.Counter{report.StatusPassed: 10}, merged.Counter())
	assert.NoError(t, report.FindIncomplete(merged))
}

func TestMergeDirectoryToStandardOutput(t *testing.T) {
	dir := t.TempDir()
	runParts(t, dir, 2)

	var out, errOut bytes.Buffer
	require.NoError(t, newApp(&out, &errOut).Run([]string{"report-harness", "merge", dir}))
	merged, err := report.Parse(out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 10, merged.Counter().Total())
	assert.Contains(t, errOut.String(), "TOTAL")
}

func TestMergeWithMissingPartIsNotPassed(t *testing.T) {
	dir := t.TempDir()
	files := runParts(t, dir, 2)
	mergedFile := filepath.Join(dir, "merged.json")

	_, code := runApp(t, "merge", "--sample", "--out", mergedFile, files[0])
	assert.Equal(t, exitTestFailure, code)
	merged, err := data.LoadReportFile(mergedFile)
	require.NoError(t, err)
	assert.Equal(t, report.StatusUnknown, merged.Status())

	_, code = runApp(t, "merge", "--sample", "--mark-incomplete", "--out", mergedFile, files[0])
	assert.Equal(t, exitTestFailure, code)
	merged, err = data.LoadReportFile(mergedFile)
	require.NoError(t, err)
	assert.Equal(t, report.StatusIncomplete, merged.Status())
	assert.Equal(t, 5, merged.Counter()[report.StatusIncomplete])
}

func TestRunFailingPlan(t *testing.T) {
	dir := t.TempDir()
	planFile := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(planFile, []byte(failingPlan), 0o600))
	out := filepath.Join(dir, "out.json")
	junit := filepath.Join(dir, "junit.xml")

	_, code := runApp(t, "run", "--plan", planFile, "--out", out)
	assert.Equal(t, exitTestFailure, code)

	r, err := data.LoadReportFile(out)
	require.NoError(t, err)
	assert.Equal(t, report.Counter{report.StatusPassed: 1, report.StatusFailed: 1, report.StatusSkipped: 1},
		r.Counter())

	output, code := runApp(t, "show", "--failures-only", "--junit", junit, out)
	assert.Equal(t, exitTestFailure, code)
	assert.Contains(t, output, "breaks FAILED")
	assert.NotContains(t, output, "works PASSED")
	xml, err := os.ReadFile(junit)
	require.NoError(t, err)
	assert.Contains(t, string(xml), `name="Things/Checks"`)
}

func TestRecordFailuresThenSkipThem(t *testing.T) {
	dir := t.TempDir()
	planFile := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(planFile, []byte(failingPlan), 0o600))
	failures := filepath.Join(dir, "failures.txt")

	_, code := runApp(t, "run", "--plan", planFile, "--record-failures", failures)
	require.Equal(t, exitTestFailure, code)
	recorded, err := os.ReadFile(failures)
	require.NoError(t, err)
	assert.Equal(t, "Things/Checks/breaks\n", string(recorded))

	out := filepath.Join(dir, "out.json")
	_, code = runApp(t, "run", "--plan", planFile, "--skip-from", failures, "--out", out)
	assert.Equal(t, exitSuccess, code)
	r, err := data.LoadReportFile(out)
	require.NoError(t, err)
	assert.Equal(t, report.Counter{report.StatusPassed: 1, report.StatusSkipped: 1}, r.Counter())
}

func TestWriteFailuresIncludesEveryUnpassedCase(t *testing.T) {
	finished := func(uid report.UID, passed bool) *report.CaseReport {
		c := report.NewCase(uid, string(uid))
		c.Append(report.Assertion(passed, "check"))
		c.SetRuntimeStatus(report.RuntimeFinished)
		return c
	}
	skipped := report.NewCase("skipped", "skipped")
	skipped.SetStatusOverride(report.StatusSkipped)
	skipped.SetRuntimeStatus(report.RuntimeFinished)
	unknown := report.NewCase("unknown", "unknown")
	unknown.PassIfEmpty()

	r := report.New("plan")
	r.MustAppend(report.NewGroup("mt", "mt", report.CategoryMultiTest).MustAppend(
		report.NewGroup("s", "s", report.CategoryTestSuite).MustAppend(
			finished("passed", true), skipped, unknown, finished("failed", false),
		),
	))
	require.Equal(t, report.StatusUnknown, unknown.Status())

	var buf bytes.Buffer
	require.NoError(t, writeFailures(&buf, r))
	assert.Equal(t, "mt/s/unknown\nmt/s/failed\n", buf.String())
}

func TestRunWithFilter(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.json")
	_, code := runApp(t, "run", "--sample", "--run", "MyMultiTest/GammaSuite", "--skip", "MyMultiTest/GammaSuite/test_two", "--out", out)
	require.Equal(t, exitSuccess, code)
	r, err := data.LoadReportFile(out)
	require.NoError(t, err)
	_, err = r.Lookup("MyMultiTest", "GammaSuite", "test_one")
	assert.NoError(t, err)
	assert.Equal(t, 1, r.Counter().Total())
}

func TestRunSubmitsToCoordinator(t *testing.T) {
	plan, err := data.SamplePlan()
	require.NoError(t, err)
	skeleton, err := plan.BuildSkeleton()
	require.NoError(t, err)
	coord, err := coordinator.New(coordinator.Config{Target: skeleton, Strict: true})
	require.NoError(t, err)
	defer func() { _ = coord.Close() }()
	server := httptest.NewServer(coord.Handler())
	defer server.Close()

	for part := 1; part <= 2; part++ {
		output, code := runApp(t, "run", "--sample", "--parts", "2", "--part", strconv.Itoa(part),
			"--coordinator", server.URL, "--source", "worker-"+strconv.Itoa(part))
		require.Equal(t, exitSuccess, code, output)
		assert.Contains(t, output, "Submitted partial report: "+server.URL+"/partials/")
	}
	merged := coord.Report()
	assert.Equal(t, report.Counter{report.StatusPassed: 10}, merged.Counter())
}

func TestSkeletonCommand(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, newApp(&out, io.Discard).Run([]string{"report-harness", "skeleton", "--sample"}))
	r, err := report.Parse(out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, report.Counter{report.StatusUnknown: 10}, r.Counter())
}

func TestShowPrintsTreeAndTable(t *testing.T) {
	dir := t.TempDir()
	files := runParts(t, dir, 1)
	output, code := runApp(t, "show", "--depth", "1", files[0])
	assert.Equal(t, exitSuccess, code)
	assert.Contains(t, output, "Sample plan [testplan] PASSED (10/10 passed)")
	assert.Contains(t, output, "MyMultiTest [multitest] PASSED")
	assert.NotContains(t, output, "AlphaSuite")
	assert.Contains(t, output, "TOTAL")
}

func TestRuntimeErrors(t *testing.T) {
	for name, args := range map[string][]string{
		"merge without files":   {"merge"},
		"merge missing file":    {"merge", "/nonexistent/report.json"},
		"show two files":        {"show", "a.json", "b.json"},
		"skeleton without plan": {"skeleton"},
		"part out of range":     {"run", "--sample", "--parts", "2", "--part", "3"},
		"plan and sample":       {"run", "--sample", "--plan", "x.yaml"},
		"unknown store":         {"serve", "--store", "floppy"},
		"negative depth":        {"show", "--depth", "-1", "a.json"},
		"missing skip file":     {"run", "--sample", "--skip-from", "/nonexistent/skips.txt"},
	} {
		t.Run(name, func(t *testing.T) {
			_, code := runApp(t, args...)
			assert.Equal(t, exitRuntimeError, code)
		})
	}
}

func TestEnvironmentVariables(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.json")
	t.Setenv("REPORT_HARNESS_PARTS", "10")
	t.Setenv("REPORT_HARNESS_PART", "10")
	t.Setenv("REPORT_HARNESS_OUT", out)
	_, code := runApp(t, "run", "--sample")
	require.Equal(t, exitSuccess, code)
	r, err := data.LoadReportFile(out)
	require.NoError(t, err)
	assert.Equal(t, "part-10-of-10", r.Meta["source"])
	assert.Equal(t, 1, r.Counter().Total())
}
