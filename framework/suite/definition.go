package suite

import (
	"strings"

	"github.com/multitest/report-harness/framework/helpers"
	"github.com/multitest/report-harness/report"

	"golang.org/x/exp/maps"
)

// MultiTest is the top-level unit of a test plan. Its name is also the UID of its report node,
// so names must be unique within a plan.
type MultiTest struct {
	Name        string
	Description string
	Tags        report.Tags
	Suites      []Suite
}

// Suite is a named list of cases within a MultiTest.
type Suite struct {
	Name        string
	Description string
	Tags        report.Tags
	Cases       []Case
}

// Case is a single test function. If Parameters is non-empty, the case is expanded into a
// parametrization group that holds one generated case per parameter set.
type Case struct {
	Name        string
	Description string
	Tags        report.Tags
	Parameters  []Params
	Func        func(t *T)
}

// Params is one set of arguments for a parametrized case.
type Params map[string]string

// ParametrizedName returns the name of the case generated from name for the parameter set p,
// such as "test_param[env=server,size=2]". Parameters are listed in key order.
func ParametrizedName(name string, p Params) string {
	parts := make([]string, 0, len(p))
	for _, k := range helpers.Sorted(maps.Keys(p)) {
		parts = append(parts, k+"="+p[k])
	}
	return name + "[" + strings.Join(parts, ",") + "]"
}

func (p Params) clone() Params {
	ret := make(Params, len(p))
	maps.Copy(ret, p)
	return ret
}
