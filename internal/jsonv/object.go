package jsonv

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ParseObject decodes b and requires the top level to be an object.
// A JSON null yields a nil Object.
func ParseObject(b []byte) (Object, error) {
	v, err := Parse(b)
	if err != nil {
		return nil, err
	}
	switch v.kind {
	case KindNull:
		return nil, nil
	case KindObject:
		return v.obj, nil
	default:
		return nil, fmt.Errorf("%w: got %s", ErrNotObject, v.kind)
	}
}

// ObjectFromAny converts a Go map or struct into an Object.
func ObjectFromAny(x any) (Object, error) {
	v, err := FromAny(x)
	if err != nil {
		return nil, err
	}
	if v.kind != KindObject {
		return nil, fmt.Errorf("%w: got %s", ErrNotObject, v.kind)
	}
	return v.obj, nil
}

func (o Object) Clone() Object {
	if o == nil {
		return nil
	}
	c := make(Object, len(o))
	for k, v := range o {
		c[k] = v.Clone()
	}
	return c
}

func (o Object) Get(key string) (Value, bool) {
	v, ok := o[key]
	return v.Clone(), ok
}

func (o Object) Equal(other Object) bool {
	if len(o) != len(other) {
		return false
	}
	for k, v := range o {
		ov, ok := other[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// MarshalJSON emits keys in sorted order (encoding/json map ordering).
func (o Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]Value(o))
}

func (o *Object) UnmarshalJSON(b []byte) error {
	parsed, err := ParseObject(b)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Scan implements sql.Scanner for JSON/TEXT columns.
func (o *Object) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		*o = nil
		return nil
	case []byte:
		return o.UnmarshalJSON(s)
	case string:
		return o.UnmarshalJSON([]byte(s))
	default:
		return fmt.Errorf("jsonv: cannot scan %T into Object", src)
	}
}

// Value implements driver.Valuer.
func (o Object) Value() (driver.Value, error) {
	b, err := o.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return b, nil
}
