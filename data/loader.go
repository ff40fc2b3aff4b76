package data

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/multitest/report-harness/report"

	"golang.org/x/exp/slices"
)

//go:embed data-files
var dataFilesRoot embed.FS

const dataBasePath = "data-files"

var reportFileExtensions = []string{".json", ".yaml", ".yml"}

// LoadReportFile reads a report document in JSON or YAML from a file.
func LoadReportFile(path string) (*report.Report, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	r, err := ParseReport(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing %q: %w", path, err)
	}
	return r, nil
}

// LoadReportDir reads every .json, .yaml or .yml file directly within a directory, in order of
// file name.
func LoadReportDir(dir string) ([]*report.Report, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var ret []*report.Report
	for _, file := range files { // ReadDir sorts by name
		if file.IsDir() || !slices.Contains(reportFileExtensions, strings.ToLower(filepath.Ext(file.Name()))) {
			continue
		}
		r, err := LoadReportFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, err
		}
		ret = append(ret, r)
	}
	return ret, nil
}

// LoadReports reads each path as a report file, or as a directory of report files.
func LoadReports(paths ...string) ([]*report.Report, error) {
	var ret []*report.Report
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			reports, err := LoadReportDir(path)
			if err != nil {
				return nil, err
			}
			ret = append(ret, reports...)
			continue
		}
		r, err := LoadReportFile(path)
		if err != nil {
			return nil, err
		}
		ret = append(ret, r)
	}
	return ret, nil
}

// ParsePlan reads a plan definition in JSON or YAML. Any "<name>" in the document is first
// replaced with the value of that name in the top-level "constants" map, if there is one.
func ParsePlan(data []byte) (PlanDefinition, error) {
	var plan PlanDefinition
	expanded, err := expandConstants(data)
	if err != nil {
		return plan, err
	}
	err = ParseJSONOrYAML(expanded, &plan)
	return plan, err
}

// LoadPlanFile reads a plan definition from a file. See ParsePlan.
func LoadPlanFile(path string) (PlanDefinition, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return PlanDefinition{}, fmt.Errorf("failed to read %q: %w", path, err)
	}
	plan, err := ParsePlan(data)
	if err != nil {
		return plan, fmt.Errorf("error parsing %q: %w", path, err)
	}
	return plan, nil
}

// SamplePlan returns the plan definition that is built into the program.
func SamplePlan() (PlanDefinition, error) {
	data, err := dataFilesRoot.ReadFile(dataBasePath + "/sample-plan.yaml")
	if err != nil {
		return PlanDefinition{}, err
	}
	return ParsePlan(data)
}
