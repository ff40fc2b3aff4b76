package report

import (
	"strings"
)

// UID identifies a node among its siblings. Adapters use plain names, integers, or composites
// like "suite::case[param]"; all of them are carried as strings.
type UID string

func (u UID) String() string { return string(u) }

const pathSeparator = "/"

// Path is the sequence of UIDs from a root to one of its descendants.
type Path []UID

// Plus returns a new Path with uid appended; the receiver is never modified.
func (p Path) Plus(uid UID) Path {
	ret := make(Path, 0, len(p)+1)
	ret = append(ret, p...)
	return append(ret, uid)
}

// String joins the components with slashes, escaping any slashes inside a UID.
func (p Path) String() string {
	parts := make([]string, 0, len(p))
	for _, u := range p {
		parts = append(parts, strings.ReplaceAll(string(u), pathSeparator, "\\"+pathSeparator))
	}
	return strings.Join(parts, pathSeparator)
}

// Equal returns true if both paths have the same components.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}
