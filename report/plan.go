package report

import (
	"golang.org/x/exp/maps"
)

// Report is the root of a report tree. Its children are the top-level test instances of a
// plan, usually multitests, and it carries metadata describing the plan run as a whole.
type Report struct {
	GroupReport
	Meta       map[string]string
	Attributes map[string]string
}

// New creates an empty report for a plan.
func New(name string) *Report {
	return &Report{
		GroupReport: *NewGroup(UID(name), name, CategoryTestPlan),
		Meta:        make(map[string]string),
		Attributes:  make(map[string]string),
	}
}

// Root returns the report as a group, for use with functions that take a Node.
func (r *Report) Root() *GroupReport { return &r.GroupReport }

// Clone returns a deep copy.
func (r *Report) Clone() *Report {
	return &Report{
		GroupReport: *r.GroupReport.Clone(),
		Meta:        cloneStringMap(r.Meta),
		Attributes:  cloneStringMap(r.Attributes),
	}
}

// Merge combines a partial report into r using the same rules as GroupReport.Merge. The
// plan-level metadata is combined with other's values winning. Metadata is only touched if
// the tree merge succeeds.
func (r *Report) Merge(other *Report, strict bool) error {
	if err := r.GroupReport.Merge(&other.GroupReport, strict); err != nil {
		return err
	}
	if r.Meta == nil {
		r.Meta = make(map[string]string)
	}
	if r.Attributes == nil {
		r.Attributes = make(map[string]string)
	}
	maps.Copy(r.Meta, other.Meta)
	maps.Copy(r.Attributes, other.Attributes)
	return nil
}

// MergeGroup merges a subtree rooted at one of r's top-level instances. A worker that only ran
// part of a plan can submit its multitest this way without wrapping it in a Report.
func (r *Report) MergeGroup(instance *GroupReport, strict bool) error {
	wrapper := NewGroup(r.uid, r.name, r.category)
	wrapper.appendChild(instance)
	return r.GroupReport.Merge(wrapper, strict)
}

func cloneStringMap(m map[string]string) map[string]string {
	ret := make(map[string]string, len(m))
	maps.Copy(ret, m)
	return ret
}
