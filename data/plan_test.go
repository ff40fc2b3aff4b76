package data

import (
	"context"
	"testing"

	"github.com/multitest/report-harness/framework/suite"

	"github.com/multitest/report-harness/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplePlanSkeleton(t *testing.T) {
	plan, err := SamplePlan()
	require.NoError(t, err)
	assert.Equal(t, "Sample plan", plan.Name)

	r, err := plan.BuildSkeleton()
	require.NoError(t, err)
	assert.Equal(t, report.UID("Sample plan"), r.UID())
	assert.Equal(t, report.Counter{report.StatusUnknown: 10}, r.Counter())

	mt, err := r.GetByUID("MyMultiTest")
	require.NoError(t, err)
	assert.True(t, mt.Tags().Has("color", "green"))

	param, err := r.Lookup("MyMultiTest", "BetaSuite", "test_param")
	require.NoError(t, err)
	assert.Equal(t, []report.UID{
		"test_param[x=1,y=a]",
		"test_param[x=2,y=a]",
		"test_param[x=1,y=b]",
		"test_param[x=2,y=b]",
	}, param.(*report.GroupReport).ChildUIDs())
	assert.True(t, param.Tags().Has("environment", "client"))
}

func TestParsePlanJSON(t *testing.T) {
	plan, err := ParsePlan([]byte(`{
		"name": "p",
		"multitests": [{"name": "m", "suites": [{"name": "s", "tags": {"k": ["a", "b"]},
			"cases": [{"name": "c", "parameters": [{"n": 1}, {"n": 2}]}]}]}]
	}`))
	require.NoError(t, err)
	mts, err := plan.MultiTests()
	require.NoError(t, err)
	require.Len(t, mts, 1)
	s := mts[0].Suites[0]
	assert.Equal(t, report.Tags{"k": {"a", "b"}}, s.Tags)
	require.Len(t, s.Cases, 1)
	assert.Len(t, s.Cases[0].Parameters, 2)
	assert.Equal(t, "1", s.Cases[0].Parameters[0]["n"])
}

func TestPlanErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"bad tag value":    `{"name":"p","multitests":[{"name":"m","tags":{"k":3}}]}`,
		"bad tag list":     `{"name":"p","multitests":[{"name":"m","suites":[{"name":"s","tags":{"k":[1]}}]}]}`,
		"bad parameters":   `{"name":"p","multitests":[{"name":"m","suites":[{"name":"s","cases":[{"name":"c","parameters":[3]}]}]}]}`,
		"empty param list": `{"name":"p","multitests":[{"name":"m","suites":[{"name":"s","cases":[{"name":"c","parameters":[[]]}]}]}]}`,
		"duplicate suites": `{"name":"p","multitests":[{"name":"m","suites":[{"name":"s"},{"name":"s"}]}]}`,
		"no name":          `{"multitests":[]}`,
		"unknown outcome":  `{"name":"p","multitests":[{"name":"m","suites":[{"name":"s","cases":[{"name":"c","outcome":"great"}]}]}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			plan, err := ParsePlan([]byte(doc))
			require.NoError(t, err)
			_, err = plan.BuildSkeleton()
			assert.Error(t, err)
		})
	}
}

func TestMakeParameterPermutations(t *testing.T) {
	sets, err := makeParameterPermutations(nil)
	assert.NoError(t, err)
	assert.Nil(t, sets)
}

func TestPlanOutcomes(t *testing.T) {
	plan, err := ParsePlan([]byte(`
name: p
multitests:
  - name: m
    suites:
      - name: s
        cases:
          - name: ok
          - name: bad
            outcome: failed
          - name: later
            outcome: skipped
          - name: crash
            outcome: error
`))
	require.NoError(t, err)
	mts, err := plan.MultiTests()
	require.NoError(t, err)
	r, err := suite.Run(context.Background(), suite.Configuration{}, plan.Name, mts...)
	require.NoError(t, err)

	for uid, expected := range map[report.UID]report.Status{
		"ok":    report.StatusPassed,
		"bad":   report.StatusFailed,
		"later": report.StatusSkipped,
		"crash": report.StatusError,
	} {
		n, err := r.Lookup("m", "s", uid)
		require.NoError(t, err)
		assert.Equal(t, expected, n.Status(), uid)
	}
	assert.Equal(t, report.StatusError, r.Status())
}
