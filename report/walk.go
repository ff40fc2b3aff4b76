package report

import (
	"iter"
)

// WalkFunc is called for every node visited by Walk. Returning false skips the node's
// descendants; the walk continues with its next sibling.
type WalkFunc func(path Path, n Node) bool

// Walk visits n and its descendants depth-first, parents before children, each exactly once.
func Walk(n Node, fn WalkFunc) {
	n = unwrap(n)
	walk(Path{n.UID()}, n, fn)
}

func walk(path Path, n Node, fn WalkFunc) {
	if !fn(path, n) {
		return
	}
	if g, ok := n.(*GroupReport); ok {
		for _, c := range g.children {
			walk(path.Plus(c.UID()), c, fn)
		}
	}
}

// Cases yields every test case below n with its path, in tree order.
func Cases(n Node) iter.Seq2[Path, *CaseReport] {
	return func(yield func(Path, *CaseReport) bool) {
		stopped := false
		Walk(n, func(path Path, node Node) bool {
			if stopped {
				return false
			}
			if c, ok := node.(*CaseReport); ok {
				stopped = !yield(path, c)
			}
			return !stopped
		})
	}
}

// Lookup follows a path of UIDs down from g. The first component names a child of g, not g.
func (g *GroupReport) Lookup(path ...UID) (Node, error) {
	var current Node = g
	for _, uid := range path {
		parent, ok := current.(*GroupReport)
		if !ok {
			return nil, &NotFoundError{Parent: current.UID(), UID: uid}
		}
		child, err := parent.GetByUID(uid)
		if err != nil {
			return nil, err
		}
		current = child
	}
	return current, nil
}

// FindIncomplete returns an *IncompleteRunError if any case below n has neither finished nor
// been marked as not run, and has no status override. It returns nil otherwise.
func FindIncomplete(n Node) error {
	var paths []Path
	for path, c := range Cases(n) {
		if isIncomplete(c) {
			paths = append(paths, path)
		}
	}
	if len(paths) == 0 {
		return nil
	}
	return &IncompleteRunError{Paths: paths}
}

func isIncomplete(c *CaseReport) bool {
	return !c.runtime.done() && !c.override.IsDefined()
}

// MarkIncomplete sets StatusIncomplete as the override on every case that FindIncomplete would
// report, so that an unfinished case can never be mistaken for a passing one. It returns the
// number of cases changed.
func (r *Report) MarkIncomplete() int {
	count := 0
	for _, c := range Cases(r.Root()) {
		if isIncomplete(c) {
			c.SetStatusOverride(StatusIncomplete)
			count++
		}
	}
	return count
}

// Equal compares two trees: kinds, UIDs, names, categories, tags, overrides, runtime statuses,
// derived statuses, entries, and child order. Timers, logs and descriptions are ignored.
func Equal(a, b Node) bool {
	a, b = unwrap(a), unwrap(b)
	if a.UID() != b.UID() || a.Name() != b.Name() || a.Status() != b.Status() ||
		a.RuntimeStatus() != b.RuntimeStatus() || !a.ownTags().Equal(b.ownTags()) {
		return false
	}
	switch ta := a.(type) {
	case *CaseReport:
		tb, ok := b.(*CaseReport)
		return ok && ta.override == tb.override && entryListsEqual(ta.entries, tb.entries)
	case *GroupReport:
		tb, ok := b.(*GroupReport)
		if !ok || ta.category != tb.category || ta.override != tb.override ||
			len(ta.children) != len(tb.children) {
			return false
		}
		for i := range ta.children {
			if !Equal(ta.children[i], tb.children[i]) {
				return false
			}
		}
		return true
	}
	return false
}
