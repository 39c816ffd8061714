// Package jsonv is a closed structural representation of JSON values.
//
// A Value is exactly one of null, bool, number, string, array or object.
// Numbers keep their textual form so that payloads survive a store/load
// cycle without float rounding. Values handed out by accessors are copies:
// mutating them never reaches the original.
package jsonv

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is the zero-value-is-null JSON value.
type Value struct {
	kind Kind
	b    bool
	num  json.Number
	str  string
	arr  []Value
	obj  Object
}

// Object is a string-keyed JSON mapping.
type Object map[string]Value

var ErrNotObject = errors.New("jsonv: value is not an object")

func Null() Value           { return Value{} }
func Bool(b bool) Value     { return Value{kind: KindBool, b: b} }
func String(s string) Value { return Value{kind: KindString, str: s} }
func Int(i int64) Value     { return Value{kind: KindNumber, num: json.Number(strconv.FormatInt(i, 10))} }

// Float returns a number value; NaN and infinities have no JSON form and
// become null.
func Float(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Value{kind: KindNumber, num: json.Number(strconv.FormatFloat(f, 'g', -1, 64))}
}

// Number wraps a literal; it fails if n is not a valid JSON number.
func Number(n json.Number) (Value, error) {
	v, err := Parse([]byte(n))
	if err != nil || v.kind != KindNumber {
		return Value{}, fmt.Errorf("jsonv: invalid number literal %q", string(n))
	}
	return v, nil
}

func Array(items ...Value) Value {
	arr := make([]Value, len(items))
	for i, it := range items {
		arr[i] = it.Clone()
	}
	return Value{kind: KindArray, arr: arr}
}

func ObjectOf(o Object) Value {
	c := o.Clone()
	if c == nil {
		c = Object{}
	}
	return Value{kind: KindObject, obj: c}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool)     { return v.b, v.kind == KindBool }
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

func (v Value) AsNumber() (json.Number, bool) { return v.num, v.kind == KindNumber }

func (v Value) AsInt64() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	i, err := v.num.Int64()
	return i, err == nil
}

func (v Value) AsFloat64() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := v.num.Float64()
	return f, err == nil
}

// Items returns a copy of the array elements.
func (v Value) Items() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	out := make([]Value, len(v.arr))
	for i, it := range v.arr {
		out[i] = it.Clone()
	}
	return out, true
}

// Fields returns a copy of the object members.
func (v Value) Fields() (Object, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.obj.Clone(), true
}

// Clone deep-copies v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindArray:
		arr := make([]Value, len(v.arr))
		for i, it := range v.arr {
			arr[i] = it.Clone()
		}
		return Value{kind: KindArray, arr: arr}
	case KindObject:
		c := v.obj.Clone()
		if c == nil {
			c = Object{}
		}
		return Value{kind: KindObject, obj: c}
	default:
		return v
	}
}

// Equal reports structural equality. Numbers compare by literal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return v.obj.Equal(o.obj)
	}
	return false
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		if v.b {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case KindNumber:
		return []byte(v.num), nil
	case KindString:
		return json.Marshal(v.str)
	case KindArray:
		if v.arr == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.arr)
	case KindObject:
		return v.obj.MarshalJSON()
	default:
		return nil, fmt.Errorf("jsonv: unknown kind %d", v.kind)
	}
}

func (v *Value) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("jsonv: trailing data after value")
	}
	parsed, err := fromDecoded(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return "<invalid>"
	}
	return string(b)
}

// Parse decodes a single JSON document.
func Parse(b []byte) (Value, error) {
	var v Value
	if err := v.UnmarshalJSON(b); err != nil {
		return Value{}, err
	}
	return v, nil
}

// FromAny converts a Go value to a Value. Plain JSON-shaped inputs are
// converted directly; anything else goes through encoding/json.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case Value:
		return t.Clone(), nil
	case Object:
		return ObjectOf(t), nil
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint32:
		return Int(int64(t)), nil
	case float64:
		return Float(t), nil
	case float32:
		return Float(float64(t)), nil
	case json.Number:
		return Number(t)
	case []any, map[string]any:
		return fromDecoded(t)
	}

	b, err := json.Marshal(x)
	if err != nil {
		return Value{}, fmt.Errorf("jsonv: encode %T: %w", x, err)
	}
	return Parse(b)
}

func fromDecoded(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return Value{kind: KindNumber, num: t}, nil
	case float64:
		return Float(t), nil
	case []any:
		arr := make([]Value, len(t))
		for i, it := range t {
			v, err := fromDecoded(it)
			if err != nil {
				return Value{}, err
			}
			arr[i] = v
		}
		return Value{kind: KindArray, arr: arr}, nil
	case map[string]any:
		obj := make(Object, len(t))
		for k, it := range t {
			v, err := fromDecoded(it)
			if err != nil {
				return Value{}, err
			}
			obj[k] = v
		}
		return Value{kind: KindObject, obj: obj}, nil
	default:
		return FromAny(t)
	}
}
