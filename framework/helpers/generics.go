package helpers

import (
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

// IfElse returns valueIfTrue or valueIfFalse depending on isTrue.
func IfElse[V any](isTrue bool, valueIfTrue, valueIfFalse V) V {
	if isTrue {
		return valueIfTrue
	}
	return valueIfFalse
}

// CopyOf returns a shallow copy of a slice; nil stays nil.
func CopyOf[V any](s []V) []V {
	if s == nil {
		return nil
	}
	return append(make([]V, 0, len(s)), s...)
}

// Sorted returns a sorted copy of a slice, leaving the original alone.
func Sorted[V constraints.Ordered](s []V) []V {
	ret := CopyOf(s)
	slices.Sort(ret)
	return ret
}
