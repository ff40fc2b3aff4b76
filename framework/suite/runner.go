package suite

import (
	"context"
	"errors"
	"fmt"

	"github.com/multitest/report-harness/report"

	"golang.org/x/exp/maps"
)

// Configuration contains options for an entire test run.
type Configuration struct {
	// Filter is an optional function for determining which tests to run based on their IDs.
	Filter Filter

	// TestLogger receives status information about each test.
	TestLogger TestLogger

	// Context is an optional value of any type defined by the application which can be accessed from tests.
	Context interface{}

	// Meta is copied into the metadata of the resulting report.
	Meta map[string]string
}

type environment struct {
	config Configuration
	ctx    context.Context
}

type caseRunner func(id TestID, c Case, params Params, result *report.CaseReport)

// Run executes every case of the plan that config.Filter selects, in definition order, and
// returns a report holding only the selected branches. Groups with nothing selected are left
// out entirely, so the result can be merged with the reports of workers that ran other parts
// of the same plan.
//
// If ctx is cancelled, the cases that have not started yet are recorded as not run.
func Run(
	ctx context.Context,
	config Configuration,
	plan string,
	multitests ...MultiTest,
) (*report.Report, error) {
	if err := Validate(multitests...); err != nil {
		return nil, err
	}
	if config.TestLogger == nil {
		config.TestLogger = nullTestLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	env := &environment{config: config, ctx: ctx}
	r := build(plan, multitests, config.Filter, env.runCase)
	maps.Copy(r.Meta, config.Meta)
	return r, nil
}

// DryRun returns the complete report skeleton of a plan: every group and case, with its tags,
// and no results. Merging the partial reports of a run into it yields a report in which the
// cases no worker ran are still listed.
func DryRun(plan string, multitests ...MultiTest) (*report.Report, error) {
	if err := Validate(multitests...); err != nil {
		return nil, err
	}
	return build(plan, multitests, nil, nil), nil
}

// Validate checks that names are unique at every level of the plan and that every case has
// a function.
func Validate(multitests ...MultiTest) error {
	var errs []error
	mtNames := make(map[string]bool)
	for _, mt := range multitests {
		if mtNames[mt.Name] {
			errs = append(errs, fmt.Errorf("duplicate multitest name %q", mt.Name))
		}
		mtNames[mt.Name] = true
		suiteNames := make(map[string]bool)
		for _, s := range mt.Suites {
			suiteID := TestID{mt.Name, s.Name}
			if suiteNames[s.Name] {
				errs = append(errs, fmt.Errorf("duplicate suite name %q", suiteID))
			}
			suiteNames[s.Name] = true
			caseNames := make(map[string]bool)
			for _, c := range s.Cases {
				caseID := suiteID.Plus(c.Name)
				if caseNames[c.Name] {
					errs = append(errs, fmt.Errorf("duplicate case name %q", caseID))
				}
				caseNames[c.Name] = true
				if c.Func == nil {
					errs = append(errs, fmt.Errorf("case %q has no function", caseID))
				}
				paramNames := make(map[string]bool)
				for _, p := range c.Parameters {
					name := ParametrizedName(c.Name, p)
					if paramNames[name] {
						errs = append(errs, fmt.Errorf("duplicate parameters %q", caseID.Plus(name)))
					}
					paramNames[name] = true
				}
			}
		}
	}
	return errors.Join(errs...)
}

func build(plan string, multitests []MultiTest, filter Filter, runCase caseRunner) *report.Report {
	r := report.New(plan)
	selected := func(id TestID) bool { return filter == nil || filter(id) }
	for _, mt := range multitests {
		mtID := TestID{mt.Name}
		if !selected(mtID) {
			continue
		}
		mtNode := newGroup(mt.Name, mt.Description, report.CategoryMultiTest, mt.Tags)
		for _, s := range mt.Suites {
			suiteID := mtID.Plus(s.Name)
			if !selected(suiteID) {
				continue
			}
			suiteNode := newGroup(s.Name, s.Description, report.CategoryTestSuite, s.Tags)
			if runCase != nil {
				suiteNode.TimerStart(report.TimerRun)
			}
			for _, c := range s.Cases {
				caseID := suiteID.Plus(c.Name)
				if !selected(caseID) {
					continue
				}
				if len(c.Parameters) == 0 {
					result := newCase(c.Name, c.Description, c.Tags)
					if runCase != nil {
						runCase(caseID, c, nil, result)
					}
					suiteNode.MustAppend(result)
					continue
				}
				paramNode := newGroup(c.Name, c.Description, report.CategoryParametrization, c.Tags)
				for _, p := range c.Parameters {
					name := ParametrizedName(c.Name, p)
					id := caseID.Plus(name)
					if !selected(id) {
						continue
					}
					result := newCase(name, "", nil)
					if runCase != nil {
						runCase(id, c, p, result)
					}
					paramNode.MustAppend(result)
				}
				if paramNode.Len() != 0 {
					suiteNode.MustAppend(paramNode)
				}
			}
			if runCase != nil {
				suiteNode.TimerEnd(report.TimerRun)
			}
			if suiteNode.Len() != 0 {
				mtNode.MustAppend(suiteNode)
			}
		}
		if mtNode.Len() != 0 {
			r.MustAppend(mtNode)
		}
	}
	return r
}

func (env *environment) runCase(id TestID, c Case, params Params, result *report.CaseReport) {
	if env.ctx.Err() != nil {
		result.SetRuntimeStatus(report.RuntimeNotRun)
		result.SetStatusOverride(report.StatusIncomplete)
		env.config.TestLogger.TestSkipped(id, "run was cancelled")
		return
	}
	env.config.TestLogger.TestStarted(id)
	t := &T{
		env:    env,
		id:     id,
		params: params.clone(),
		result: result,
	}
	t.run(c.Func)
	if t.skipped {
		env.config.TestLogger.TestSkipped(id, t.skipReason)
	} else {
		env.config.TestLogger.TestFinished(id, result.Status(), t.debugLogger.Output())
	}
}

func newGroup(name, description string, category report.Category, tags report.Tags) *report.GroupReport {
	g := report.NewGroup(report.UID(name), name, category)
	g.SetDescription(description)
	for cat, values := range tags {
		g.AddTag(cat, values...)
	}
	return g
}

func newCase(name, description string, tags report.Tags) *report.CaseReport {
	c := report.NewCase(report.UID(name), name)
	c.SetDescription(description)
	for cat, values := range tags {
		c.AddTag(cat, values...)
	}
	return c
}
