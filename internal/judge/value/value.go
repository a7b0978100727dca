// Package value defines the language-neutral data exchanged with submissions:
// test inputs, expected outputs and observed results.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind enumerates the variants of Value.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Value is a recursive sum of integer, float, boolean, string and ordered sequence.
// Null stands for "no value" (a function returning nothing).
// The zero Value is Null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
	list []Value
}

func Null() Value { return Value{} }
func Int(v int64) Value { return Value{kind: KindInt, i: v} }
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }
func String(v string) Value { return Value{kind: KindString, s: v} }
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) IsList() bool { return v.kind == KindList }
func (v Value) Int() int64 { return v.i }
func (v Value) Float() float64 { return v.f }
func (v Value) Bool() bool { return v.b }
func (v Value) Str() string { return v.s }
func (v Value) Items() []Value { return v.list }
func (v Value) Len() int { return len(v.list) }

// IsNumber reports whether v is an integer or a float.
func (v Value) IsNumber() bool { return v.kind == KindInt || v.kind == KindFloat }

// Number returns the numeric value as float64.
func (v Value) Number() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// Depth returns the sequence nesting depth: 0 for scalars, 1 for a flat list.
func (v Value) Depth() int {
	if v.kind != KindList {
		return 0
	}
	max := 0
	for _, item := range v.list {
		if d := item.Depth(); d > max {
			max = d
		}
	}
	return max + 1
}

// String renders v as compact JSON.
func (v Value) String() string {
	var b strings.Builder
	v.writeJSON(&b)
	return b.String()
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindFloat && (math.IsNaN(v.f) || math.IsInf(v.f, 0)) {
		return nil, fmt.Errorf("value: unsupported float %v", v.f)
	}
	var b strings.Builder
	v.writeJSON(&b)
	return []byte(b.String()), nil
}

func (v Value) writeJSON(b *strings.Builder) {
	switch v.kind {
	case KindNull:
		b.WriteString("null")
	case KindInt:
		b.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		b.WriteString(FormatFloat(v.f))
	case KindBool:
		b.WriteString(strconv.FormatBool(v.b))
	case KindString:
		raw, _ := json.Marshal(v.s)
		b.Write(raw)
	case KindList:
		b.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				b.WriteByte(',')
			}
			item.writeJSON(b)
		}
		b.WriteByte(']')
	}
}

// FormatFloat renders f in plain decimal notation with the shortest
// representation that round-trips. Integral floats keep a ".0" suffix.
func FormatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// UnmarshalJSON implements json.Unmarshaler. Numbers without a fraction or
// exponent decode as integers; JSON objects are rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := FromNative(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Parse decodes a JSON document into a Value.
func Parse(data []byte) (Value, error) {
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return Value{}, err
	}
	return v, nil
}

// FromNative converts decoded Go data into a Value. It accepts the shapes
// produced by encoding/json (with UseNumber) and by embedded interpreters.
func FromNative(raw interface{}) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case json.Number:
		s := x.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return Int(i), nil
			}
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("value: invalid number %q", s)
		}
		return Float(f), nil
	case int:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case []interface{}:
		items := make([]Value, 0, len(x))
		for _, item := range x {
			v, err := FromNative(item)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return List(items...), nil
	case []Value:
		return List(x...), nil
	case Value:
		return x, nil
	default:
		return Value{}, fmt.Errorf("value: unsupported type %T", raw)
	}
}

// Native converts v into plain Go data: nil, int64, float64, bool, string
// or []interface{}.
func (v Value) Native() interface{} {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindString:
		return v.s
	case KindList:
		out := make([]interface{}, len(v.list))
		for i, item := range v.list {
			out[i] = item.Native()
		}
		return out
	default:
		return nil
	}
}
