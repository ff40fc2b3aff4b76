package report

// Node is either a *GroupReport or a *CaseReport.
type Node interface {
	UID() UID
	Name() string
	// Status is always one of the defined statuses, never empty.
	Status() Status
	// Passed is shorthand for Status() == StatusPassed.
	Passed() bool
	RuntimeStatus() RuntimeStatus
	// Tags returns a copy of the tags attached directly to this node.
	Tags() Tags
	// Counter counts the test cases at or below this node by status.
	Counter() Counter
	// Timer returns a copy of the node's timing information.
	Timer() Timer

	ownTags() Tags
	cloneNode() Node
}

// Counter counts test cases by status.
type Counter map[Status]int

// Total is the number of cases counted.
func (c Counter) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Failed is the number of cases with a status that fails an aggregate.
func (c Counter) Failed() int {
	return c[StatusFailed] + c[StatusError] + c[StatusIncomplete]
}

func (c Counter) add(other Counter) {
	for k, v := range other {
		c[k] += v
	}
}

// Kind names used in the interchange form.
const (
	KindGroup = "TestGroupReport"
	KindCase  = "TestCaseReport"
)

// KindOf returns the interchange kind name of n.
func KindOf(n Node) string {
	if _, ok := unwrap(n).(*CaseReport); ok {
		return KindCase
	}
	return KindGroup
}

// unwrap lets a *Report be treated as the group it embeds.
func unwrap(n Node) Node {
	if r, ok := n.(*Report); ok {
		return r.Root()
	}
	return n
}
