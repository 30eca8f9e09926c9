package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Optional holds a value that may be absent. The zero value is absent.
type Optional[T any] struct {
	Val   T
	IsSet bool
}

// Some wraps a present value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Val: v, IsSet: true}
}

// None returns an absent value.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// OptionalString collapses the empty string to absent. Rows read from the
// store pass through here so callers never observe a present-but-empty value.
func OptionalString(s string) Optional[string] {
	if strings.TrimSpace(s) == "" {
		return None[string]()
	}
	return Some(s)
}

// CollapseString normalises an already wrapped string.
func CollapseString(o Optional[string]) Optional[string] {
	if !o.IsSet {
		return o
	}
	return OptionalString(o.Val)
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.Val, o.IsSet
}

// Unwrap returns the value and panics when absent.
func (o Optional[T]) Unwrap() T {
	if !o.IsSet {
		panic("called Unwrap on a None value")
	}
	return o.Val
}

// UnwrapOr returns the value or the supplied default.
func (o Optional[T]) UnwrapOr(defaultVal T) T {
	if !o.IsSet {
		return defaultVal
	}
	return o.Val
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.IsSet {
		return []byte("null"), nil
	}
	return json.Marshal(o.Val)
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Val = v
	o.IsSet = true
	return nil
}

// Scan implements sql.Scanner. NULL scans as absent.
func (o *Optional[T]) Scan(value any) error {
	if value == nil {
		*o = Optional[T]{}
		return nil
	}
	var v T
	switch t := any(&v).(type) {
	case interface{ Scan(any) error }:
		if err := t.Scan(value); err != nil {
			return err
		}
	case *string:
		switch raw := value.(type) {
		case string:
			*t = raw
		case []byte:
			*t = string(raw)
		default:
			return fmt.Errorf("optional: cannot scan %T into string", value)
		}
	default:
		cast, ok := value.(T)
		if !ok {
			return fmt.Errorf("optional: cannot scan %T into %T", value, v)
		}
		v = cast
	}
	o.Val = v
	o.IsSet = true
	return nil
}

// Value implements driver.Valuer. Absent values are written as NULL.
func (o Optional[T]) Value() (driver.Value, error) {
	if !o.IsSet {
		return nil, nil
	}
	switch t := any(o.Val).(type) {
	case driver.Valuer:
		return t.Value()
	default:
		return o.Val, nil
	}
}

func (o Optional[T]) String() string {
	if !o.IsSet {
		return ""
	}
	return fmt.Sprintf("%v", o.Val)
}
