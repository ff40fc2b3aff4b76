package data

import (
	"encoding/json"
	"fmt"

	"github.com/multitest/report-harness/framework/suite"
	"github.com/multitest/report-harness/report"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// PlanDefinition describes the shape of a test plan without any test code, so that a skeleton
// report can be built for tests that run outside this process. See LoadPlanFile for the file
// format.
type PlanDefinition struct {
	Name       string                `json:"name"`
	MultiTests []MultiTestDefinition `json:"multitests"`
}

type MultiTestDefinition struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Tags        TagsDefinition    `json:"tags,omitempty"`
	Suites      []SuiteDefinition `json:"suites"`
}

type SuiteDefinition struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Tags        TagsDefinition   `json:"tags,omitempty"`
	Cases       []CaseDefinition `json:"cases"`
}

// CaseDefinition is one case. Parameters is either a list of parameter sets or a list of lists
// of parameter sets, in which case every combination of one set from each list is used.
//
// Outcome is what running the case produces: one of the Outcome constants, or passed if it is
// empty.
type CaseDefinition struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Tags        TagsDefinition    `json:"tags,omitempty"`
	Parameters  []json.RawMessage `json:"parameters,omitempty"`
	Outcome     string            `json:"outcome,omitempty"`
}

const (
	OutcomePassed  = "passed"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"
)

func (d CaseDefinition) caseFunc() (func(*suite.T), error) {
	switch d.Outcome {
	case "", OutcomePassed:
		return func(t *suite.T) { t.Assert(true, d.Name) }, nil
	case OutcomeFailed:
		return func(t *suite.T) { t.Assert(false, d.Name) }, nil
	case OutcomeSkipped:
		return func(t *suite.T) { t.SkipWithReason("outcome is skipped") }, nil
	case OutcomeError:
		return func(t *suite.T) { panic(fmt.Sprintf("outcome of %s is error", d.Name)) }, nil
	}
	return nil, fmt.Errorf("unknown outcome %q", d.Outcome)
}

// TagsDefinition maps a tag category to either a single value or a list of values.
type TagsDefinition map[string]ldvalue.Value

func (d TagsDefinition) toTags() (report.Tags, error) {
	if len(d) == 0 {
		return nil, nil
	}
	ret := make(report.Tags)
	for category, v := range d {
		switch v.Type() {
		case ldvalue.StringType:
			ret.Add(category, v.StringValue())
		case ldvalue.ArrayType:
			for _, item := range v.AsValueArray().AsSlice() {
				if !item.IsString() {
					return nil, fmt.Errorf("tag %q has a non-string value %s", category, item.JSONString())
				}
				ret.Add(category, item.StringValue())
			}
		default:
			return nil, fmt.Errorf("tag %q must be a string or a list of strings", category)
		}
	}
	return ret, nil
}

// MultiTests converts the definition into runnable multitests. Each case does nothing but
// produce its defined outcome.
func (p PlanDefinition) MultiTests() ([]suite.MultiTest, error) {
	ret := make([]suite.MultiTest, 0, len(p.MultiTests))
	for _, mtDef := range p.MultiTests {
		tags, err := mtDef.Tags.toTags()
		if err != nil {
			return nil, fmt.Errorf("multitest %q: %w", mtDef.Name, err)
		}
		mt := suite.MultiTest{Name: mtDef.Name, Description: mtDef.Description, Tags: tags}
		for _, sDef := range mtDef.Suites {
			id := suite.TestID{mtDef.Name, sDef.Name}
			tags, err := sDef.Tags.toTags()
			if err != nil {
				return nil, fmt.Errorf("suite %q: %w", id, err)
			}
			s := suite.Suite{Name: sDef.Name, Description: sDef.Description, Tags: tags}
			for _, cDef := range sDef.Cases {
				c, err := cDef.toCase()
				if err != nil {
					return nil, fmt.Errorf("case %q: %w", id.Plus(cDef.Name), err)
				}
				s.Cases = append(s.Cases, c)
			}
			mt.Suites = append(mt.Suites, s)
		}
		ret = append(ret, mt)
	}
	return ret, nil
}

func (d CaseDefinition) toCase() (suite.Case, error) {
	tags, err := d.Tags.toTags()
	if err != nil {
		return suite.Case{}, err
	}
	fn, err := d.caseFunc()
	if err != nil {
		return suite.Case{}, err
	}
	sets, err := makeParameterPermutations(d.Parameters)
	if err != nil {
		return suite.Case{}, err
	}
	c := suite.Case{Name: d.Name, Description: d.Description, Tags: tags, Func: fn}
	for _, set := range sets {
		params := make(suite.Params, len(set))
		for k, v := range set {
			params[k] = paramString(v)
		}
		c.Parameters = append(c.Parameters, params)
	}
	return c, nil
}

// BuildSkeleton returns the complete report skeleton of the plan, with every case ready to
// receive a result.
func (p PlanDefinition) BuildSkeleton() (*report.Report, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("plan has no name")
	}
	mts, err := p.MultiTests()
	if err != nil {
		return nil, err
	}
	return suite.DryRun(p.Name, mts...)
}
