package servicedef

import "github.com/multitest/report-harness/serviceinfo"

const (
	// CapabilityStrictMerge means conflicting results are rejected.
	CapabilityStrictMerge = "strict-merge"
	// CapabilityPersistentStore means accepted partials are kept in a store that outlives the
	// coordinator process.
	CapabilityPersistentStore = "persistent-store"
	// CapabilityMergeEvents means the coordinator publishes merge outcomes at PathEvents.
	CapabilityMergeEvents = "merge-events"
)

const (
	PathPartials = "/partials"
	PathPartial  = "/partials/{id}"
	PathReport   = "/report"
	PathEvents   = "/events"

	// HeaderSource optionally names the worker that produced a submitted partial.
	HeaderSource = "X-Report-Source"

	EventMerged   = "merged"
	EventRejected = "rejected"
)

// StatusRep is the response body of the coordinator's status resource.
type StatusRep struct {
	serviceinfo.CoordinatorInfoBase
	Cases map[string]int `json:"cases"`
}

// SubmitResponse is the response body for a submitted partial.
type SubmitResponse struct {
	ID     string `json:"id"`
	Source string `json:"source,omitempty"`
	Cases  int    `json:"cases"`
}

// ErrorResponse is the response body for a rejected request.
type ErrorResponse struct {
	Error string `json:"error"`
	Path  string `json:"path,omitempty"`
}

// MergeEvent is the data of an EventMerged or EventRejected event.
type MergeEvent struct {
	ID             string         `json:"id"`
	Source         string         `json:"source,omitempty"`
	Cases          int            `json:"cases"`
	Counter        map[string]int `json:"counter,omitempty"`
	Status         string         `json:"status"`
	Error          string         `json:"error,omitempty"`
	DurationMillis int64          `json:"durationMillis"`
}
