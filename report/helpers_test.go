package report

import (
	"testing"

	"github.com/launchdarkly/go-test-helpers/v2/jsonhelpers"
	"github.com/stretchr/testify/assert"
)

type caseMaker func(uid UID, name string) *CaseReport

func passingCase(uid UID, name string) *CaseReport {
	c := NewCase(uid, name)
	c.Append(Assertion(true, "ok"))
	c.SetRuntimeStatus(RuntimeFinished)
	return c
}

func failingCase(uid UID, name string) *CaseReport {
	c := NewCase(uid, name)
	c.Append(Assertion(true, "first"), Assertion(false, "second"))
	c.SetRuntimeStatus(RuntimeFinished)
	return c
}

func placeholderCase(uid UID, name string) *CaseReport { return NewCase(uid, name) }

type taggable interface {
	Node
	AddTag(category string, values ...string)
}

func tagged[N taggable](n N, category, value string) N {
	n.AddTag(category, value)
	return n
}

func group(uid UID, name string, category Category, children ...Node) *GroupReport {
	return NewGroup(uid, name, category).MustAppend(children...)
}

// The tree used by most merge tests:
//
//	MyMultiTest (1)
//	  AlphaSuite (10): test_one (100), test_two (101)
//	  BetaSuite (11): test_one (102), test_two (103), test_param (999): test_param_0..3 (104-107)
//	  GammaSuite (12): test_one (108), test_two (109)

func myMultiTest(suites ...Node) *GroupReport {
	return tagged(group("1", "MyMultiTest", CategoryMultiTest, suites...), "color", "green")
}

func alphaSuite(mk caseMaker) *GroupReport {
	return tagged(group("10", "AlphaSuite", CategoryTestSuite,
		mk("100", "test_one"),
		tagged(mk("101", "test_two"), "environment", "server"),
	), "color", "red")
}

func betaSuite(mk caseMaker, plain, param bool) *GroupReport {
	g := NewGroup("11", "BetaSuite", CategoryTestSuite)
	if plain {
		g.MustAppend(
			tagged(mk("102", "test_one"), "color", "blue"),
			mk("103", "test_two"),
		)
	}
	if param {
		g.MustAppend(tagged(group("999", "test_param", CategoryParametrization,
			mk("104", "test_param_0"),
			mk("105", "test_param_1"),
			mk("106", "test_param_2"),
			mk("107", "test_param_3"),
		), "environment", "client"))
	}
	return g
}

func gammaSuite(mk caseMaker) *GroupReport {
	return group("12", "GammaSuite", CategoryTestSuite,
		tagged(mk("108", "test_one"), "environment", "client"),
		tagged(mk("109", "test_two"), "environment", "server"),
	)
}

func expectedMultiTest() *GroupReport {
	return myMultiTest(alphaSuite(passingCase), betaSuite(passingCase, true, true), gammaSuite(passingCase))
}

func skeletonMultiTest() *GroupReport {
	return myMultiTest(alphaSuite(placeholderCase), betaSuite(placeholderCase, true, true),
		gammaSuite(placeholderCase))
}

func partialMultiTests() map[string]*GroupReport {
	return map[string]*GroupReport{
		"alpha":  myMultiTest(alphaSuite(passingCase)),
		"beta_1": myMultiTest(betaSuite(passingCase, true, false)),
		"beta_2": myMultiTest(betaSuite(passingCase, false, true)),
		"gamma":  myMultiTest(gammaSuite(passingCase)),
	}
}

func permutations(items []string) [][]string {
	if len(items) <= 1 {
		return [][]string{append([]string(nil), items...)}
	}
	var ret [][]string
	for i, first := range items {
		rest := append(append([]string(nil), items[:i]...), items[i+1:]...)
		for _, p := range permutations(rest) {
			ret = append(ret, append([]string{first}, p...))
		}
	}
	return ret
}

func assertTreesEqual(t *testing.T, expected, actual Node) bool {
	t.Helper()
	if Equal(expected, actual) {
		return true
	}
	assert.JSONEq(t, string(jsonhelpers.ToJSON(expected)), string(jsonhelpers.ToJSON(actual)))
	return assert.Fail(t, "report trees differ")
}
