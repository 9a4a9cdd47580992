// Package optional models values that may be absent from a source document.
package optional

import "encoding/json"

// Value holds either a T or nothing.
type Value[T any] struct {
	v  T
	ok bool
}

func Some[T any](v T) Value[T] {
	return Value[T]{v: v, ok: true}
}

func None[T any]() Value[T] {
	return Value[T]{}
}

// Get returns the value and whether it is present.
func (o Value[T]) Get() (T, bool) {
	return o.v, o.ok
}

func (o Value[T]) Present() bool {
	return o.ok
}

// Or returns the value, or fallback when absent.
func (o Value[T]) Or(fallback T) T {
	if !o.ok {
		return fallback
	}
	return o.v
}

// Ptr returns nil when absent. Used at the SQL boundary so absent values
// are stored as NULL.
func (o Value[T]) Ptr() *T {
	if !o.ok {
		return nil
	}
	v := o.v
	return &v
}

// FromPtr is the inverse of Ptr.
func FromPtr[T any](p *T) Value[T] {
	if p == nil {
		return None[T]()
	}
	return Some(*p)
}

// Map applies fn to a present value.
func Map[T, U any](o Value[T], fn func(T) (U, bool)) Value[U] {
	v, ok := o.Get()
	if !ok {
		return None[U]()
	}
	u, ok := fn(v)
	if !ok {
		return None[U]()
	}
	return Some(u)
}

// MarshalJSON renders an absent value as null.
func (o Value[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.v)
}

func (o *Value[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Value[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
