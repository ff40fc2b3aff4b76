package report

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Tags maps a tag category to its values. Values are kept sorted and unique so that two tag
// sets with the same content compare equal.
type Tags map[string][]string

// SimpleTagCategory is the category used by adapters that only support flat tags.
const SimpleTagCategory = "simple"

// Add adds values to a category, creating it if necessary.
func (t Tags) Add(category string, values ...string) {
	merged := append(append([]string(nil), t[category]...), values...)
	slices.Sort(merged)
	t[category] = slices.Compact(merged)
}

// Has returns true if the category contains value.
func (t Tags) Has(category, value string) bool {
	_, found := slices.BinarySearch(t[category], value)
	return found
}

// Categories returns the tag categories in sorted order.
func (t Tags) Categories() []string {
	keys := maps.Keys(t)
	slices.Sort(keys)
	return keys
}

// Clone returns a deep copy; a nil receiver gives an empty, non-nil map.
func (t Tags) Clone() Tags {
	ret := make(Tags, len(t))
	for k, v := range t {
		ret[k] = append([]string(nil), v...)
	}
	return ret
}

// Union adds every category and value of other to t.
func (t Tags) Union(other Tags) {
	for k, v := range other {
		t.Add(k, v...)
	}
}

// Equal compares two tag sets, treating nil and empty as the same.
func (t Tags) Equal(other Tags) bool {
	if len(t) != len(other) {
		return false
	}
	for k, v := range t {
		ov, ok := other[k]
		if !ok || !slices.Equal(v, ov) {
			return false
		}
	}
	return true
}

// TagIndex maps category and value to the UIDs of the executed nodes carrying that tag, in
// depth-first order.
type TagIndex map[string]map[string][]UID

func (ti TagIndex) add(uid UID, tags Tags) {
	for category, values := range tags {
		byValue := ti[category]
		if byValue == nil {
			byValue = make(map[string][]UID)
			ti[category] = byValue
		}
		for _, v := range values {
			if !slices.Contains(byValue[v], uid) {
				byValue[v] = append(byValue[v], uid)
			}
		}
	}
}

// UIDs returns the nodes carrying the tag, or nil if none do.
func (ti TagIndex) UIDs(category, value string) []UID {
	return ti[category][value]
}

// Tags flattens the index into a plain tag set, discarding the node UIDs.
func (ti TagIndex) Tags() Tags {
	ret := make(Tags, len(ti))
	for category, byValue := range ti {
		ret.Add(category, maps.Keys(byValue)...)
	}
	return ret
}
