package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/multitest/report-harness/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileEmbedding(t *testing.T) {
	files, err := dataFilesRoot.ReadDir(dataBasePath)
	assert.NoError(t, err)
	assert.NotEqual(t, 0, len(files))
}

func writeFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadReportFile(t *testing.T) {
	dir := t.TempDir()
	jsonPath := writeFile(t, dir, "a.json", `{"uid":"plan","category":"testplan","entries":[
		{"type":"TestCaseReport","uid":"c","runtime_status":"finished"}]}`)
	yamlPath := writeFile(t, dir, "b.yaml", `
uid: plan
category: testplan
entries:
  - type: TestCaseReport
    uid: d
    entries:
      - {type: RawAssertion, passed: false, description: nope}
`)

	r, err := LoadReportFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, report.StatusPassed, r.Status())

	r, err = LoadReportFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, report.StatusFailed, r.Status())

	_, err = LoadReportFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := writeFile(t, dir, "bad.txt", `{"uid":`)
	_, err = LoadReportFile(bad)
	assert.Error(t, err)
}

func TestLoadReportDirReadsReportFilesInNameOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2.yml", "uid: second\ncategory: testplan\n")
	writeFile(t, dir, "1.json", `{"uid":"first","category":"testplan"}`)
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o700))

	reports, err := LoadReportDir(dir)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, report.UID("first"), reports[0].UID())
	assert.Equal(t, report.UID("second"), reports[1].UID())

	all, err := LoadReports(dir, filepath.Join(dir, "1.json"))
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = LoadReports(filepath.Join(dir, "nothing"))
	assert.Error(t, err)
}
