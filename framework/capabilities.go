package framework

import "golang.org/x/exp/slices"

// Capabilities is a list of strings naming optional features of a service, reported in its
// status resource so that clients can check for them before relying on them.
type Capabilities []string

// Has returns true if the specified string appears in the list.
func (cs Capabilities) Has(name string) bool {
	return slices.Contains(cs, name)
}
