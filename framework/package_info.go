// Package framework contains the low-level infrastructure shared by the rest of the harness.
// The base package holds the Logger abstraction and other small shared types; other
// components are in subpackages:
//
// - suite runs tests written in Go and turns their outcomes into partial reports.
//
// - harness is the client that workers use to talk to a coordinator service.
//
// - helpers and opt are general-purpose utilities.
//
// The general model is that any number of workers each run part of a test plan and submit
// the resulting partial report to a coordinator, which merges them one at a time into the
// report for the whole plan.
package framework
