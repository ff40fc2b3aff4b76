// Package serviceinfo provides a data model for the status information a coordinator
// service reports about itself.
package serviceinfo

import "github.com/multitest/report-harness/framework"

// CoordinatorInfo is status information returned by the coordinator from a status query.
type CoordinatorInfo struct {
	CoordinatorInfoBase

	// FullData is the entire response received from the coordinator, which might contain
	// additional properties beyond CoordinatorInfoBase.
	FullData []byte
}

// CoordinatorInfoBase is the basic set of properties that a coordinator provides.
type CoordinatorInfoBase struct {
	// Name is the name of the plan whose report the coordinator is assembling.
	Name string `json:"name"`

	// Status is the status of the merged report so far.
	Status string `json:"status"`

	// Strict is true if conflicting results are rejected rather than replacing earlier ones.
	Strict bool `json:"strict"`

	// Merged and Rejected count the partial reports submitted so far.
	Merged   int `json:"merged"`
	Rejected int `json:"rejected"`

	// Capabilities is a list of strings representing optional features of the coordinator.
	Capabilities framework.Capabilities `json:"capabilities"`
}

func Empty() CoordinatorInfo {
	return CoordinatorInfo{}
}
