package opt

import (
	"encoding/json"
	"fmt"
)

// Maybe holds either a value of type V or nothing. The zero value holds nothing.
//
// Report nodes use it for status overrides, where "no override" must be distinguishable from
// every real status.
type Maybe[V any] struct {
	defined bool
	value   V
}

// Some wraps a value.
func Some[V any](value V) Maybe[V] {
	return Maybe[V]{defined: true, value: value}
}

// None returns an empty Maybe.
func None[V any]() Maybe[V] { return Maybe[V]{} }

// FromPtr is Some(*ptr) for a non-nil ptr and None otherwise.
func FromPtr[V any](ptr *V) Maybe[V] {
	if ptr == nil {
		return None[V]()
	}
	return Some(*ptr)
}

// NonZero is Some(value) unless value is the zero value of its type.
func NonZero[V comparable](value V) Maybe[V] {
	var zero V
	if value == zero {
		return None[V]()
	}
	return Some(value)
}

// IsDefined returns true if the Maybe holds a value.
func (m Maybe[V]) IsDefined() bool { return m.defined }

// Value returns the held value, or the zero value of V if there is none.
func (m Maybe[V]) Value() V { return m.value }

// AsPtr returns a pointer to a copy of the held value, or nil.
func (m Maybe[V]) AsPtr() *V {
	if !m.defined {
		return nil
	}
	v := m.value
	return &v
}

// OrElse returns the held value, or fallback if there is none.
func (m Maybe[V]) OrElse(fallback V) V {
	if m.defined {
		return m.value
	}
	return fallback
}

// Or returns m if it holds a value, and other otherwise.
func (m Maybe[V]) Or(other Maybe[V]) Maybe[V] {
	if m.defined {
		return m
	}
	return other
}

// Map applies fn to the held value, if any.
func Map[V, W any](m Maybe[V], fn func(V) W) Maybe[W] {
	if !m.defined {
		return None[W]()
	}
	return Some(fn(m.value))
}

// String formats the held value with its String method or %v, or returns "[none]".
func (m Maybe[V]) String() string {
	if !m.defined {
		return "[none]"
	}
	if s, ok := any(m.value).(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", m.value)
}

// MarshalJSON writes the held value, or null.
func (m Maybe[V]) MarshalJSON() ([]byte, error) {
	if !m.defined {
		return []byte("null"), nil
	}
	return json.Marshal(m.value)
}

// UnmarshalJSON reads null as None and anything else as Some.
func (m *Maybe[V]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = None[V]()
		return nil
	}
	var value V
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*m = Some(value)
	return nil
}
