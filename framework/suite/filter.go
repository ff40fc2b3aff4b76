package suite

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/multitest/report-harness/framework/helpers"
)

// Filter is a function that can determine whether to run a specific test or not. The runner
// calls it for every multitest, suite, parametrization and case ID, and skips a whole branch
// when it returns false for the branch's ID.
type Filter func(TestID) bool

// And returns a Filter that accepts an ID only if both f and other accept it. A nil Filter
// accepts everything.
func (f Filter) And(other Filter) Filter {
	switch {
	case f == nil:
		return other
	case other == nil:
		return f
	}
	return func(id TestID) bool { return f(id) && other(id) }
}

type RegexFilters struct {
	MustMatch    TestIDPatternList
	MustNotMatch TestIDPatternList
}

func (r RegexFilters) Match(id TestID) bool {
	return (!r.MustMatch.IsDefined() || r.MustMatch.AnyMatch(id, true)) &&
		!r.MustNotMatch.AnyMatch(id, false)
}

func (r RegexFilters) IsDefined() bool {
	return r.MustMatch.IsDefined() || r.MustNotMatch.IsDefined()
}

// AsFilter returns r.Match, or nil if r has no patterns.
func (r RegexFilters) AsFilter() Filter {
	if !r.IsDefined() {
		return nil
	}
	return r.Match
}

type TestIDPattern []*regexp.Regexp

func (p TestIDPattern) Match(id TestID, includeParents bool) bool {
	n := len(p)
	if n > len(id) {
		if !includeParents {
			return false
		}
		n = len(id)
	}
	for i := 0; i < n; i++ {
		if !p[i].MatchString(id[i]) {
			return false
		}
	}
	return true
}

func (p TestIDPattern) String() string {
	ss := make([]string, 0, len(p))
	for _, c := range p {
		ss = append(ss, c.String())
	}
	return strings.Join(ss, "/")
}

func ParseTestIDPattern(s string) (TestIDPattern, error) {
	parts := strings.Split(s, "/")
	ret := make(TestIDPattern, 0, len(parts))
	for _, part := range parts {
		rx, err := regexp.Compile(part)
		if err != nil {
			return nil, fmt.Errorf("invalid regex: %w", err)
		}
		ret = append(ret, rx)
	}
	return ret, nil
}

type TestIDPatternList []TestIDPattern

func (l TestIDPatternList) String() string {
	ss := make([]string, 0, len(l))
	for _, p := range l {
		ss = append(ss, `"`+p.String()+`"`)
	}
	return strings.Join(ss, " or ")
}

// Set is called by the command line parser
func (l *TestIDPatternList) Set(value string) error {
	p, err := ParseTestIDPattern(value)
	if err != nil {
		return err
	}
	*l = append(*l, p)
	return nil
}

func (l TestIDPatternList) IsDefined() bool {
	return len(l) != 0
}

func (l TestIDPatternList) AnyMatch(id TestID, includeParents bool) bool {
	for _, p := range l {
		if p.Match(id, includeParents) {
			return true
		}
	}
	return false
}

// Partition divides the cases of a plan among n workers, dealing them out in definition order,
// and returns one Filter per worker. Each case is accepted by exactly one of the filters; a
// filter also accepts the IDs of every group above a case it accepts.
func Partition(n int, multitests ...MultiTest) []Filter {
	if n < 1 {
		n = 1
	}
	accepted := make([]map[string]bool, n)
	for i := range accepted {
		accepted[i] = make(map[string]bool)
	}
	i := 0
	for _, id := range caseIDs(multitests) {
		for depth := 1; depth <= len(id); depth++ {
			accepted[i%n][id[:depth].key()] = true
		}
		i++
	}
	ret := make([]Filter, 0, n)
	for _, set := range accepted {
		ret = append(ret, func(id TestID) bool { return set[id.key()] })
	}
	return ret
}

func caseIDs(multitests []MultiTest) []TestID {
	var ret []TestID
	for _, mt := range multitests {
		mtID := TestID{mt.Name}
		for _, s := range mt.Suites {
			suiteID := mtID.Plus(s.Name)
			for _, c := range s.Cases {
				caseID := suiteID.Plus(c.Name)
				if len(c.Parameters) == 0 {
					ret = append(ret, caseID)
					continue
				}
				for _, p := range c.Parameters {
					ret = append(ret, caseID.Plus(ParametrizedName(c.Name, p)))
				}
			}
		}
	}
	return ret
}

// PrintFilterDescription writes a summary of the filters that will be applied to a run.
func PrintFilterDescription(out io.Writer, filters RegexFilters, part, parts int) {
	if filters.IsDefined() {
		helpers.MustFprintln(out, "Some tests will be skipped based on the filter criteria for this test run:")
		if filters.MustMatch.IsDefined() {
			helpers.MustFprintf(out, "  skip any not matching %s\n", filters.MustMatch)
		}
		if filters.MustNotMatch.IsDefined() {
			helpers.MustFprintf(out, "  skip any matching %s\n", filters.MustNotMatch)
		}
		helpers.MustFprintln(out)
	}
	if parts > 1 {
		helpers.MustFprintf(out, "Running part %d of %d of the test plan\n\n", part+1, parts)
	}
}
