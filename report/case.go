package report

import (
	"github.com/multitest/report-harness/framework/opt"
)

// CaseReport is a leaf of the report tree: the result of one test case.
//
// A case's status is derived every time it is asked for, in this order: the status override
// if one is set; StatusFailed if any entry failed; StatusIncomplete while the case is running
// or waiting; StatusPassed once it has finished, or if it has any entries at all; and
// otherwise the baseline, which is StatusUnknown until PassIfEmpty is called.
type CaseReport struct {
	uid         UID
	name        string
	description string
	entries     []Entry
	override    opt.Maybe[Status]
	runtime     RuntimeStatus
	baseline    Status
	tags        Tags
	timer       Timer
}

// NewCase creates an empty case that has not started running.
func NewCase(uid UID, name string) *CaseReport {
	if name == "" {
		name = string(uid)
	}
	return &CaseReport{
		uid:      uid,
		name:     name,
		runtime:  RuntimeReady,
		baseline: StatusUnknown,
		tags:     make(Tags),
		timer:    make(Timer),
	}
}

func (c *CaseReport) UID() UID { return c.uid }

func (c *CaseReport) Name() string { return c.name }

func (c *CaseReport) Description() string { return c.description }

func (c *CaseReport) SetDescription(description string) { c.description = description }

// Entries returns a copy of the entry list.
func (c *CaseReport) Entries() []Entry { return append([]Entry(nil), c.entries...) }

// Attachments returns the attachment entries in the order they were appended.
func (c *CaseReport) Attachments() []AttachmentEntry {
	var ret []AttachmentEntry
	for _, e := range c.entries {
		if a, ok := e.(AttachmentEntry); ok {
			ret = append(ret, a)
		}
	}
	return ret
}

// Append adds an entry after all existing ones.
func (c *CaseReport) Append(entries ...Entry) {
	c.entries = append(c.entries, entries...)
}

// PassIfEmpty makes a finished case with no entries pass. Adapters call it after an externally
// run test completed without reporting any assertions. It does nothing for a case that has not
// finished.
func (c *CaseReport) PassIfEmpty() {
	if len(c.entries) == 0 && c.runtime == RuntimeFinished {
		c.baseline = StatusPassed
	}
}

// SetStatusOverride forces the case's status regardless of its entries.
func (c *CaseReport) SetStatusOverride(status Status) { c.override = opt.Some(status) }

// StatusOverride returns the forced status, if any.
func (c *CaseReport) StatusOverride() opt.Maybe[Status] { return c.override }

func (c *CaseReport) RuntimeStatus() RuntimeStatus { return c.runtime }

func (c *CaseReport) SetRuntimeStatus(rs RuntimeStatus) { c.runtime = rs }

func (c *CaseReport) Status() Status {
	if c.override.IsDefined() {
		return c.override.Value()
	}
	for _, e := range c.entries {
		if passed := e.Outcome(); passed.IsDefined() && !passed.Value() {
			return StatusFailed
		}
	}
	switch c.runtime {
	case RuntimeRunning, RuntimeWaiting:
		return StatusIncomplete
	case RuntimeFinished:
		return StatusPassed
	}
	if len(c.entries) > 0 {
		return StatusPassed
	}
	if c.baseline == StatusPassed {
		// only a finished case passes without entries
		return StatusUnknown
	}
	return c.baseline
}

func (c *CaseReport) Passed() bool { return c.Status() == StatusPassed }

func (c *CaseReport) Tags() Tags { return c.tags.Clone() }

func (c *CaseReport) ownTags() Tags { return c.tags }

// AddTag attaches tag values to the case.
func (c *CaseReport) AddTag(category string, values ...string) { c.tags.Add(category, values...) }

func (c *CaseReport) Timer() Timer { return c.timer.Clone() }

// TimerStart and TimerEnd record a named interval on the case.
func (c *CaseReport) TimerStart(key string) { c.timer.Start(key, now()) }

func (c *CaseReport) TimerEnd(key string) { c.timer.End(key, now()) }

func (c *CaseReport) Counter() Counter { return Counter{c.Status(): 1} }

// Clone returns a deep copy.
func (c *CaseReport) Clone() *CaseReport {
	ret := *c
	ret.entries = append([]Entry(nil), c.entries...)
	ret.tags = c.tags.Clone()
	ret.timer = c.timer.Clone()
	return &ret
}

func (c *CaseReport) cloneNode() Node { return c.Clone() }

// isPlaceholder is true for a case that exists in a tree only because its structure was
// known, such as a dry-run skeleton. Placeholders carry no result.
func (c *CaseReport) isPlaceholder() bool {
	return len(c.entries) == 0 && c.runtime == RuntimeReady && !c.override.IsDefined() &&
		c.baseline == StatusUnknown
}

// sameResult compares everything that contributes to a case's outcome. Timers are not part
// of it: two runs with identical outcomes are the same result.
func (c *CaseReport) sameResult(other *CaseReport) bool {
	return c.override == other.override && c.runtime == other.runtime &&
		c.Status() == other.Status() && entryListsEqual(c.entries, other.entries)
}

// Merge combines another report of the same case into c.
//
// A placeholder on either side yields to the other side. If both carry results and they
// differ, a strict merge fails with a *StructuralMismatchError and leaves c untouched, while a
// non-strict merge takes other's result. Tags are always combined.
func (c *CaseReport) Merge(other *CaseReport, strict bool) error {
	if err := c.checkMerge(other, strict, Path{c.uid}); err != nil {
		return err
	}
	c.applyMerge(other)
	return nil
}

func (c *CaseReport) checkMerge(other *CaseReport, strict bool, path Path) error {
	if c.uid != other.uid {
		return mismatch(path, "cannot merge case %q into case %q", other.uid, c.uid)
	}
	if !strict || other.isPlaceholder() || c.isPlaceholder() || c.sameResult(other) {
		return nil
	}
	return mismatch(path, "conflicting results: %s (%d entries) vs %s (%d entries)",
		c.Status(), len(c.entries), other.Status(), len(other.entries))
}

func (c *CaseReport) applyMerge(other *CaseReport) {
	c.tags.Union(other.tags)
	if other.isPlaceholder() {
		return
	}
	if c.description == "" {
		c.description = other.description
	}
	c.timer.Union(other.timer)
	if c.sameResult(other) {
		return
	}
	c.entries = append([]Entry(nil), other.entries...)
	c.override = other.override
	c.runtime = other.runtime
	c.baseline = other.baseline
}
