// Package servicedef contains definitions for the REST protocol that the coordinator
// implements and workers use to submit partial reports.
//
// The package is used by the coordinator and by the worker client in framework/harness, but
// can also be imported by any Go program that produces reports of its own.
package servicedef
