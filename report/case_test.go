package report

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaseStatus(t *testing.T) {
	for _, p := range []struct {
		name     string
		setup    func(c *CaseReport)
		expected Status
	}{
		{"not started, no entries", func(c *CaseReport) {}, StatusUnknown},
		{"finished, no entries", func(c *CaseReport) {
			c.SetRuntimeStatus(RuntimeFinished)
		}, StatusPassed},
		{"pass if empty before starting", func(c *CaseReport) {
			c.PassIfEmpty()
		}, StatusUnknown},
		{"pass if empty after finishing", func(c *CaseReport) {
			c.SetRuntimeStatus(RuntimeFinished)
			c.PassIfEmpty()
		}, StatusPassed},
		{"pass if empty then finished", func(c *CaseReport) {
			c.PassIfEmpty()
			c.SetRuntimeStatus(RuntimeFinished)
		}, StatusPassed},
		{"running", func(c *CaseReport) {
			c.Append(Assertion(true, "a"))
			c.SetRuntimeStatus(RuntimeRunning)
		}, StatusIncomplete},
		{"waiting", func(c *CaseReport) {
			c.SetRuntimeStatus(RuntimeWaiting)
		}, StatusIncomplete},
		{"passing entries", func(c *CaseReport) {
			c.Append(Assertion(true, "a"), Log("hello"))
		}, StatusPassed},
		{"failing entry", func(c *CaseReport) {
			c.Append(Assertion(true, "a"), Assertion(false, "b"))
			c.SetRuntimeStatus(RuntimeFinished)
		}, StatusFailed},
		{"failing entry while running", func(c *CaseReport) {
			c.Append(Assertion(false, "b"))
			c.SetRuntimeStatus(RuntimeRunning)
		}, StatusFailed},
		{"override beats passing entries", func(c *CaseReport) {
			c.Append(Assertion(true, "a"))
			c.SetRuntimeStatus(RuntimeFinished)
			c.SetStatusOverride(StatusFailed)
		}, StatusFailed},
		{"override beats failing entries", func(c *CaseReport) {
			c.Append(Assertion(false, "a"))
			c.SetStatusOverride(StatusSkipped)
		}, StatusSkipped},
		{"logs only", func(c *CaseReport) {
			c.Append(Log("x"))
			c.SetRuntimeStatus(RuntimeNotRun)
		}, StatusPassed},
	} {
		t.Run(p.name, func(t *testing.T) {
			c := NewCase("c", "")
			p.setup(c)
			assert.Equal(t, p.expected, c.Status())
			assert.Equal(t, p.expected == StatusPassed, c.Passed())
			assert.Equal(t, Counter{p.expected: 1}, c.Counter())
		})
	}
}

func TestPassIfEmptyIgnoredWhenEntriesExist(t *testing.T) {
	c := NewCase("c", "")
	c.Append(Log("only a log"))
	c.PassIfEmpty()
	assert.Equal(t, StatusUnknown, c.baseline)
}

func TestUnstartedCaseNeverPasses(t *testing.T) {
	for _, rs := range []RuntimeStatus{RuntimeReady, RuntimeNotRun} {
		c := NewCase("c", "")
		c.SetRuntimeStatus(rs)
		c.PassIfEmpty()
		assert.NotEqual(t, StatusPassed, c.Status(), rs)
		assert.Equal(t, StatusUnknown, c.baseline, rs)
	}

	parsed, err := ParseNode([]byte(`{"type":"TestCaseReport","uid":"c","status":"passed"}`))
	require.NoError(t, err)
	assert.Equal(t, RuntimeReady, parsed.RuntimeStatus())
	assert.Equal(t, StatusUnknown, parsed.Status())
}

func TestCaseNameDefaultsToUID(t *testing.T) {
	assert.Equal(t, "abc", NewCase("abc", "").Name())
	assert.Equal(t, "Nice name", NewCase("abc", "Nice name").Name())
}

func TestCaseAttachments(t *testing.T) {
	c := NewCase("c", "")
	a := AttachmentEntry{SourcePath: "/tmp/out.txt", OrigFilename: "out.txt", FileSize: 3}
	c.Append(Log("x"), a)
	assert.Equal(t, []AttachmentEntry{a}, c.Attachments())
	assert.Equal(t, StatusUnknown, c.Status())
}

func TestCaseMergeIntoPlaceholder(t *testing.T) {
	for _, strict := range []bool{true, false} {
		target := tagged(NewCase("100", "test_one"), "color", "red")
		incoming := tagged(failingCase("100", "test_one"), "env", "server")
		incoming.TimerStart(TimerRun)

		require.NoError(t, target.Merge(incoming, strict))
		assert.Equal(t, StatusFailed, target.Status())
		assert.Equal(t, RuntimeFinished, target.RuntimeStatus())
		assert.Len(t, target.Entries(), 2)
		assert.Contains(t, target.Timer(), TimerRun)
		assert.Equal(t, Tags{"color": {"red"}, "env": {"server"}}, target.Tags())
	}
}

func TestCaseMergePlaceholderNeverOverwrites(t *testing.T) {
	for _, strict := range []bool{true, false} {
		target := passingCase("100", "test_one")
		require.NoError(t, target.Merge(tagged(NewCase("100", "test_one"), "k", "v"), strict))
		assert.Equal(t, StatusPassed, target.Status())
		assert.Len(t, target.Entries(), 1)
		assert.True(t, target.Tags().Has("k", "v"))
	}
}

func TestCaseMergeIdenticalResultIsNoOp(t *testing.T) {
	target := passingCase("100", "test_one")
	require.NoError(t, target.Merge(passingCase("100", "test_one"), true))
	assertTreesEqual(t, passingCase("100", "test_one"), target)
}

func TestCaseMergeConflict(t *testing.T) {
	t.Run("strict", func(t *testing.T) {
		target := passingCase("100", "test_one")
		err := target.Merge(failingCase("100", "test_one"), true)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrStructuralMismatch))
		var sm *StructuralMismatchError
		require.True(t, errors.As(err, &sm))
		assert.Equal(t, Path{"100"}, sm.Path)
		assertTreesEqual(t, passingCase("100", "test_one"), target)
	})

	t.Run("non-strict takes the later result", func(t *testing.T) {
		target := passingCase("100", "test_one")
		require.NoError(t, target.Merge(failingCase("100", "test_one"), false))
		assertTreesEqual(t, failingCase("100", "test_one"), target)
	})
}

func TestCaseMergeDifferentUID(t *testing.T) {
	for _, strict := range []bool{true, false} {
		err := NewCase("1", "").Merge(NewCase("2", ""), strict)
		assert.True(t, errors.Is(err, ErrStructuralMismatch))
	}
}

func TestCaseCloneIsIndependent(t *testing.T) {
	c := tagged(passingCase("1", ""), "a", "b")
	copied := c.Clone()
	copied.Append(Assertion(false, "x"))
	copied.AddTag("a", "c")
	assert.Equal(t, StatusPassed, c.Status())
	assert.False(t, c.Tags().Has("a", "c"))
}
