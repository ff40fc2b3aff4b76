package report

import (
	"iter"

	"github.com/multitest/report-harness/framework/opt"
)

// Category describes the structural role of a group.
type Category string

const (
	CategoryTestPlan        Category = "testplan"
	CategoryMultiTest       Category = "multitest"
	CategoryTestSuite       Category = "testsuite"
	CategoryParametrization Category = "parametrization"
	CategoryDummyTest       Category = "dummytest"
	CategoryPyTest          Category = "pytest"
	CategoryPyUnit          Category = "pyunit"
	CategoryJUnit           Category = "junit"
	CategoryCppUnit         Category = "cppunit"
	CategoryGTest           Category = "gtest"
)

// GroupReport is an internal node of the report tree: a multitest, a suite, a parametrization
// group, or a top-level instance produced by an adapter. Children are kept in the order they
// were first added.
type GroupReport struct {
	uid         UID
	name        string
	description string
	category    Category
	children    []Node
	index       map[UID]int
	override    opt.Maybe[Status]
	tags        Tags
	timer       Timer
	logs        []LogRecord
}

// NewGroup creates a group with no children.
func NewGroup(uid UID, name string, category Category) *GroupReport {
	if name == "" {
		name = string(uid)
	}
	return &GroupReport{
		uid:      uid,
		name:     name,
		category: category,
		index:    make(map[UID]int),
		tags:     make(Tags),
		timer:    make(Timer),
	}
}

func (g *GroupReport) UID() UID { return g.uid }

func (g *GroupReport) Name() string { return g.name }

func (g *GroupReport) Category() Category { return g.category }

func (g *GroupReport) Description() string { return g.description }

func (g *GroupReport) SetDescription(description string) { g.description = description }

// Append adds children after the existing ones. Every child must have a UID not already used
// in g; combining two reports of the same child is done with Merge instead.
func (g *GroupReport) Append(children ...Node) error {
	for _, child := range children {
		if child == nil {
			return mismatch(Path{g.uid}, "nil child")
		}
		if _, exists := g.index[child.UID()]; exists {
			return mismatch(Path{g.uid, child.UID()}, "duplicate child UID")
		}
		g.appendChild(child)
	}
	return nil
}

// MustAppend is Append for trees built by code, where a duplicate UID is a programming error.
func (g *GroupReport) MustAppend(children ...Node) *GroupReport {
	if err := g.Append(children...); err != nil {
		panic(err)
	}
	return g
}

func (g *GroupReport) appendChild(child Node) {
	g.index[child.UID()] = len(g.children)
	g.children = append(g.children, child)
}

// GetByUID returns the direct child with the given UID, or a *NotFoundError.
func (g *GroupReport) GetByUID(uid UID) (Node, error) {
	if i, ok := g.index[uid]; ok {
		return g.children[i], nil
	}
	return nil, &NotFoundError{Parent: g.uid, UID: uid}
}

// Has returns true if g has a direct child with the given UID.
func (g *GroupReport) Has(uid UID) bool {
	_, ok := g.index[uid]
	return ok
}

// Children yields the direct children in order. The sequence can be iterated any number of
// times.
func (g *GroupReport) Children() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for _, c := range g.children {
			if !yield(c) {
				return
			}
		}
	}
}

// ChildUIDs returns the UIDs of the direct children in order.
func (g *GroupReport) ChildUIDs() []UID {
	ret := make([]UID, 0, len(g.children))
	for _, c := range g.children {
		ret = append(ret, c.UID())
	}
	return ret
}

// Len is the number of direct children.
func (g *GroupReport) Len() int { return len(g.children) }

// SetStatusOverride forces the group's status regardless of its children.
func (g *GroupReport) SetStatusOverride(status Status) { g.override = opt.Some(status) }

func (g *GroupReport) StatusOverride() opt.Maybe[Status] { return g.override }

// Status is the override if set, PASSED for a group with no children, and otherwise the
// highest-precedence status among the children.
func (g *GroupReport) Status() Status {
	if g.override.IsDefined() {
		return g.override.Value()
	}
	if len(g.children) == 0 {
		return StatusPassed
	}
	statuses := make([]Status, 0, len(g.children))
	for _, c := range g.children {
		statuses = append(statuses, c.Status())
	}
	return Precedent(statuses...)
}

func (g *GroupReport) Passed() bool { return g.Status() == StatusPassed }

// RuntimeStatus is derived from the children: ready until any of them started, finished
// once all of them are finished or not run.
func (g *GroupReport) RuntimeStatus() RuntimeStatus {
	statuses := make([]RuntimeStatus, 0, len(g.children))
	for _, c := range g.children {
		statuses = append(statuses, c.RuntimeStatus())
	}
	return aggregateRuntime(statuses)
}

func (g *GroupReport) Tags() Tags { return g.tags.Clone() }

func (g *GroupReport) ownTags() Tags { return g.tags }

func (g *GroupReport) AddTag(category string, values ...string) { g.tags.Add(category, values...) }

// TagIndex collects the tags of g and its descendants, skipping every node that has not been
// executed. A branch that only exists as a placeholder contributes nothing even if its
// definition carries tags.
func (g *GroupReport) TagIndex() TagIndex {
	ti := make(TagIndex)
	collectTags(g, ti)
	return ti
}

func collectTags(n Node, ti TagIndex) {
	if !n.RuntimeStatus().Executed() {
		return
	}
	ti.add(n.UID(), n.ownTags())
	if g, ok := n.(*GroupReport); ok {
		for _, c := range g.children {
			collectTags(c, ti)
		}
	}
}

func (g *GroupReport) Timer() Timer { return g.timer.Clone() }

func (g *GroupReport) TimerStart(key string) { g.timer.Start(key, now()) }

func (g *GroupReport) TimerEnd(key string) { g.timer.End(key, now()) }

// Logs returns a copy of the group's log records.
func (g *GroupReport) Logs() []LogRecord { return append([]LogRecord(nil), g.logs...) }

// AddLog appends a log record stamped with the current time.
func (g *GroupReport) AddLog(level, message string) {
	g.logs = append(g.logs, LogRecord{Time: now(), Level: level, Message: message})
}

func (g *GroupReport) Counter() Counter {
	ret := make(Counter)
	for _, c := range g.children {
		ret.add(c.Counter())
	}
	return ret
}

// Clone returns a deep copy of g and all its descendants.
func (g *GroupReport) Clone() *GroupReport {
	ret := *g
	ret.children = make([]Node, 0, len(g.children))
	ret.index = make(map[UID]int, len(g.children))
	for _, c := range g.children {
		ret.appendChild(c.cloneNode())
	}
	ret.tags = g.tags.Clone()
	ret.timer = g.timer.Clone()
	ret.logs = append([]LogRecord(nil), g.logs...)
	return &ret
}

func (g *GroupReport) cloneNode() Node { return g.Clone() }

// Merge combines another report of the same group into g. Children of other that g does not
// have are copied and appended after g's existing children, whose order never changes;
// children present in both are merged recursively.
//
// In a strict merge, a category that differs, a UID used for a group on one side and a case on
// the other, or two conflicting case results anywhere in the tree make Merge return a
// *StructuralMismatchError before anything in g is modified. A non-strict merge resolves each
// of these in favor of other.
//
// Group status overrides are not last-write-wins: when both sides carry one, the one with the
// higher precedence is kept.
func (g *GroupReport) Merge(other *GroupReport, strict bool) error {
	path := Path{g.uid}
	if g.uid != other.uid {
		return mismatch(path, "cannot merge group %q into group %q", other.uid, g.uid)
	}
	if strict {
		if err := g.checkMerge(other, path); err != nil {
			return err
		}
	}
	g.applyMerge(other)
	return nil
}

func (g *GroupReport) checkMerge(other *GroupReport, path Path) error {
	if g.category != other.category {
		return mismatch(path, "category %q cannot be merged into %q", other.category, g.category)
	}
	for _, theirs := range other.children {
		i, ok := g.index[theirs.UID()]
		if !ok {
			continue
		}
		childPath := path.Plus(theirs.UID())
		switch mine := g.children[i].(type) {
		case *GroupReport:
			tg, ok := theirs.(*GroupReport)
			if !ok {
				return mismatch(childPath, "%s cannot be merged into %s", KindOf(theirs), KindGroup)
			}
			if err := mine.checkMerge(tg, childPath); err != nil {
				return err
			}
		case *CaseReport:
			tc, ok := theirs.(*CaseReport)
			if !ok {
				return mismatch(childPath, "%s cannot be merged into %s", KindOf(theirs), KindCase)
			}
			if err := mine.checkMerge(tc, true, childPath); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *GroupReport) applyMerge(other *GroupReport) {
	g.category = other.category
	if g.description == "" {
		g.description = other.description
	}
	g.tags.Union(other.tags)
	g.timer.Union(other.timer)
	g.logs = appendMissingLogs(g.logs, other.logs)
	if other.override.IsDefined() {
		if g.override.IsDefined() {
			g.override = opt.Some(Precedent(g.override.Value(), other.override.Value()))
		} else {
			g.override = other.override
		}
	}
	for _, theirs := range other.children {
		i, ok := g.index[theirs.UID()]
		if !ok {
			g.appendChild(theirs.cloneNode())
			continue
		}
		switch mine := g.children[i].(type) {
		case *GroupReport:
			if tg, ok := theirs.(*GroupReport); ok {
				mine.applyMerge(tg)
				continue
			}
		case *CaseReport:
			if tc, ok := theirs.(*CaseReport); ok {
				mine.applyMerge(tc)
				continue
			}
		}
		g.children[i] = theirs.cloneNode()
	}
}

func appendMissingLogs(mine, theirs []LogRecord) []LogRecord {
	for _, r := range theirs {
		found := false
		for _, m := range mine {
			if m.equal(r) {
				found = true
				break
			}
		}
		if !found {
			mine = append(mine, r)
		}
	}
	return mine
}
