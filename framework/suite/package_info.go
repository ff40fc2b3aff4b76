// Package suite runs test cases written in Go and records their outcomes as report trees.
//
// Tests are declared as data: a MultiTest holds suites, a Suite holds cases, and a Case is a
// function that receives a *T, which works much like Go's testing.T and can be passed to
// testify's assert and require functions. Run executes the cases a Filter selects and returns
// a partial report containing only those branches, so several workers can each run a
// Partition of the same plan and have their reports merged afterward. DryRun returns the
// complete skeleton of a plan without running anything.
package suite
