package suite

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type regexFilterTestParams struct {
	run         []string
	skip        []string
	testID      TestID
	shouldMatch bool
}

func TestRegexFilters(t *testing.T) {
	allParams := []regexFilterTestParams{
		// matches everything by default
		{nil, nil, TestID(nil), true},
		{nil, nil, TestID{"a"}, true},
		{nil, nil, TestID{"a", "b"}, true},

		// --run with single component
		{[]string{"a"}, nil, TestID{"a"}, true},
		{[]string{"a"}, nil, TestID{"b"}, false},
		{[]string{"a"}, nil, TestID{"xax"}, true},
		{[]string{"a"}, nil, TestID{"a", "b"}, true},

		// --run with multiple components
		{[]string{"a/b"}, nil, TestID{"a"}, true},
		{[]string{"a/b"}, nil, TestID{"b"}, false},
		{[]string{"a/b"}, nil, TestID{"a", "b"}, true},
		{[]string{"a/b"}, nil, TestID{"a", "c"}, false},
		{[]string{"a/b"}, nil, TestID{"a", "b", "c"}, true},

		// --run with multiple patterns
		{[]string{"a", "b"}, nil, TestID{"a"}, true},
		{[]string{"a", "b"}, nil, TestID{"b"}, true},
		{[]string{"a", "b"}, nil, TestID{"c"}, false},
		{[]string{"a", "b"}, nil, TestID{"b", "c"}, true},

		// --skip with single component
		{nil, []string{"a"}, TestID{"a"}, false},
		{nil, []string{"a"}, TestID{"b"}, true},
		{nil, []string{"a"}, TestID{"a", "b"}, false},

		// --skip with multiple components
		{nil, []string{"a/b"}, TestID{"a"}, true},
		{nil, []string{"a/b"}, TestID{"a", "b"}, false},
		{nil, []string{"a/b"}, TestID{"a", "b", "c"}, false},
		{nil, []string{"a/b"}, TestID{"a", "c"}, true},

		// --skip overrides --run
		{[]string{"y"}, []string{"n"}, TestID{"y"}, true},
		{[]string{"y"}, []string{"n"}, TestID{"yn"}, false},
	}
	for _, params := range allParams {
		var r RegexFilters
		for _, s := range params.run {
			assert.NoError(t, r.MustMatch.Set(s))
		}
		for _, s := range params.skip {
			assert.NoError(t, r.MustNotMatch.Set(s))
		}
		t.Run(fmt.Sprintf("run=%s, skip=%s, id=%s", r.MustMatch, r.MustNotMatch, params.testID), func(t *testing.T) {
			assert.Equal(t, params.shouldMatch, r.Match(params.testID))
		})
	}
}

func TestInvalidPattern(t *testing.T) {
	var l TestIDPatternList
	assert.Error(t, l.Set("a/(b"))
	assert.False(t, l.IsDefined())
}

func TestRegexFiltersAsFilter(t *testing.T) {
	assert.Nil(t, RegexFilters{}.AsFilter())

	var r RegexFilters
	assert.NoError(t, r.MustMatch.Set("x"))
	f := r.AsFilter()
	assert.True(t, f(TestID{"x"}))
	assert.False(t, f(TestID{"y"}))
}

func TestFilterAnd(t *testing.T) {
	var none Filter
	isA := Filter(func(id TestID) bool { return id[0] == "a" })
	short := Filter(func(id TestID) bool { return len(id) == 1 })

	assert.Nil(t, none.And(nil))
	assert.True(t, none.And(isA)(TestID{"a"}))
	assert.True(t, isA.And(none)(TestID{"a"}))
	assert.True(t, isA.And(short)(TestID{"a"}))
	assert.False(t, isA.And(short)(TestID{"a", "b"}))
	assert.False(t, isA.And(short)(TestID{"b"}))
}

func TestPartition(t *testing.T) {
	filters := Partition(2, samplePlan()...)
	// cases are dealt out in order: a1 a2 b1 b2[n=1] b2[n=2] b2[n=3] g1
	assert.True(t, filters[0](TestID{"First", "Alpha", "a1"}))
	assert.False(t, filters[1](TestID{"First", "Alpha", "a1"}))
	assert.True(t, filters[1](TestID{"First", "Alpha", "a2"}))
	assert.True(t, filters[1](TestID{"First", "Beta", "b2", "b2[n=1]"}))
	assert.True(t, filters[0](TestID{"First", "Beta", "b2", "b2[n=2]"}))
	assert.True(t, filters[0](TestID{"Second", "Gamma", "g1"}))
	assert.False(t, filters[1](TestID{"Second"}))

	// parents of selected cases are accepted by every filter that selects one of them
	for _, f := range filters {
		assert.True(t, f(TestID{"First"}))
		assert.True(t, f(TestID{"First", "Beta", "b2"}))
	}

	assert.Len(t, Partition(0, samplePlan()...), 1)
}

func TestPrintFilterDescription(t *testing.T) {
	var buf bytes.Buffer
	PrintFilterDescription(&buf, RegexFilters{}, 0, 1)
	assert.Empty(t, buf.String())

	var r RegexFilters
	assert.NoError(t, r.MustMatch.Set("a/b"))
	PrintFilterDescription(&buf, r, 1, 3)
	assert.Contains(t, buf.String(), `skip any not matching "a/b"`)
	assert.Contains(t, buf.String(), "Running part 2 of 3")
}
