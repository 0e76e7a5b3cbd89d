package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueKind identifies which member of the Value union is set.
type ValueKind uint8

const (
	NullValue ValueKind = iota
	BoolValue
	IntValue
	FloatValue
	StringValue
)

func (k ValueKind) String() string {
	switch k {
	case NullValue:
		return "null"
	case BoolValue:
		return "bool"
	case IntValue:
		return "int"
	case FloatValue:
		return "float"
	case StringValue:
		return "string"
	default:
		return fmt.Sprintf("ValueKind(%d)", k)
	}
}

var ErrUnsupportedValue = errors.New("unsupported attribute value")

// Value is a dynamically typed scalar: null, bool, int, float or string.
// The zero Value is null.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	s    string
}

func Null() Value { return Value{} }
func Bool(b bool) Value { return Value{kind: BoolValue, b: b} }
func Int(i int64) Value { return Value{kind: IntValue, i: i} }
func Float(f float64) Value { return Value{kind: FloatValue, f: f} }
func String(s string) Value { return Value{kind: StringValue, s: s} }
func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool { return v.kind == NullValue }

// IsBlank reports whether v is an empty string.
func (v Value) IsBlank() bool { return v.kind == StringValue && v.s == "" }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == BoolValue }
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == IntValue }
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == FloatValue }
func (v Value) AsString() (string, bool) { return v.s, v.kind == StringValue }

// Interface returns the Go value held by v (nil for null).
func (v Value) Interface() interface{} {
	switch v.kind {
	case BoolValue:
		return v.b
	case IntValue:
		return v.i
	case FloatValue:
		return v.f
	case StringValue:
		return v.s
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case BoolValue:
		return strconv.FormatBool(v.b)
	case IntValue:
		return strconv.FormatInt(v.i, 10)
	case FloatValue:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case StringValue:
		return v.s
	default:
		return "null"
	}
}

// ValueOf converts a scalar Go value into a Value. Pointers are dereferenced,
// nil pointers become null.
func ValueOf(x interface{}) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case string:
		return String(t), nil
	case []byte:
		return String(string(t)), nil
	case *bool:
		if t == nil {
			return Null(), nil
		}
		return Bool(*t), nil
	case *int:
		if t == nil {
			return Null(), nil
		}
		return Int(int64(*t)), nil
	case *int64:
		if t == nil {
			return Null(), nil
		}
		return Int(*t), nil
	case *float64:
		if t == nil {
			return Null(), nil
		}
		return Float(*t), nil
	case *string:
		if t == nil {
			return Null(), nil
		}
		return String(*t), nil
	default:
		return Null(), fmt.Errorf("%w: %T", ErrUnsupportedValue, x)
	}
}

// Equal reports strict equality: same kind and same payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case BoolValue:
		return v.b == o.b
	case IntValue:
		return v.i == o.i
	case FloatValue:
		return v.f == o.f
	case StringValue:
		return v.s == o.s
	default:
		return true
	}
}

// MarshalJSON keeps the int/float distinction: floats always carry a
// fraction or exponent so they decode back as floats.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case BoolValue:
		return strconv.AppendBool(nil, v.b), nil
	case IntValue:
		return strconv.AppendInt(nil, v.i, 10), nil
	case FloatValue:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, fmt.Errorf("%w: non-finite float %v", ErrUnsupportedValue, v.f)
		}
		s := strconv.FormatFloat(v.f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return []byte(s), nil
	case StringValue:
		return json.Marshal(v.s)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = Null()
	case bytes.Equal(data, []byte("true")):
		*v = Bool(true)
	case bytes.Equal(data, []byte("false")):
		*v = Bool(false)
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	default:
		lit := string(data)
		if !strings.ContainsAny(lit, ".eE") {
			if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
				*v = Int(i)
				return nil
			}
		}
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrUnsupportedValue, lit)
		}
		*v = Float(f)
	}
	return nil
}
