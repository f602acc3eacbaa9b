// Package flowvalue models a field that may carry "no value".
//
// Flow messages are untyped at the boundary: any field can be missing, and a
// missing field must be carried through a transform as an explicit absence
// rather than dropped or replaced with a default. Value makes that absence
// visible in the type.
package flowvalue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Value is either absent or holds an arbitrary decoded value.
// The zero Value is absent.
type Value struct {
	v       any
	present bool
}

// Of returns a present Value holding v. A nil v is treated as absent.
func Of(v any) Value {
	if v == nil {
		return Value{}
	}
	return Value{v: v, present: true}
}

// Absent returns the "no value" marker.
func Absent() Value {
	return Value{}
}

// IsPresent reports whether the Value holds data.
func (v Value) IsPresent() bool {
	return v.present
}

// Get returns the held value and whether it is present.
func (v Value) Get() (any, bool) {
	return v.v, v.present
}

// String renders a present value with fmt. Absent values render as "".
func (v Value) String() string {
	if !v.present {
		return ""
	}
	if s, ok := v.v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v.v)
}

// Equal reports whether both values are absent, or both present with deeply equal data.
func (v Value) Equal(other Value) bool {
	if v.present != other.present {
		return false
	}
	return reflect.DeepEqual(v.v, other.v)
}

// MarshalJSON encodes an absent Value as null so the key is kept in the output.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.present {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

// UnmarshalJSON decodes any JSON value. null decodes as absent.
func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = Value{}
		return nil
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("flowvalue: %w", err)
	}
	*v = Of(decoded)
	return nil
}
