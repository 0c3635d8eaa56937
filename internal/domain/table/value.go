package table

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the logical type of a column.
type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Numeric reports whether values of this kind take part in numeric aggregation.
// Booleans are not numeric.
func (k Kind) Numeric() bool {
	return k == KindInt || k == KindFloat
}

// Value is a single typed cell. The zero Value is a null string.
type Value struct {
	kind  Kind
	valid bool
	s     string
	i     int64
	f     float64
	b     bool
	t     time.Time
}

// Null returns a null value of the given kind.
func Null(k Kind) Value { return Value{kind: k} }

// Value constructors.
func String(s string) Value  { return Value{kind: KindString, valid: true, s: s} }
func Int(i int64) Value      { return Value{kind: KindInt, valid: true, i: i} }
func Float(f float64) Value  { return Value{kind: KindFloat, valid: true, f: f} }
func Bool(b bool) Value      { return Value{kind: KindBool, valid: true, b: b} }
func Time(t time.Time) Value { return Value{kind: KindTime, valid: true, t: t} }

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is missing. NaN floats count as missing.
func (v Value) IsNull() bool {
	if !v.valid {
		return true
	}
	return v.kind == KindFloat && math.IsNaN(v.f)
}

// Str returns the string payload of a KindString value.
func (v Value) Str() string { return v.s }

// Int64 returns the integer payload of a KindInt value.
func (v Value) Int64() int64 { return v.i }

// Bool returns the payload of a KindBool value.
func (v Value) Bool() bool { return v.b }

// Time returns the payload of a KindTime value.
func (v Value) Time() time.Time { return v.t }

// Float returns the value as float64 for numeric kinds.
func (v Value) Float() (float64, bool) {
	if v.IsNull() {
		return 0, false
	}
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Text is the canonical text form used for categorical matching.
// Null values render as the empty string.
func (v Value) Text() string {
	if v.IsNull() {
		return ""
	}
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		return v.t.Format(time.RFC3339Nano)
	default:
		return ""
	}
}

// Interface returns the value as a JSON-friendly Go value; null maps to nil.
func (v Value) Interface() any {
	if v.IsNull() {
		return nil
	}
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		if math.IsInf(v.f, 0) {
			return nil
		}
		return v.f
	case KindBool:
		return v.b
	case KindTime:
		return v.t
	default:
		return nil
	}
}

// Compare orders two values of the same kind. Nulls sort last. Values of
// different kinds compare by their text form.
func Compare(a, b Value) int {
	an, bn := a.IsNull(), b.IsNull()
	switch {
	case an && bn:
		return 0
	case an:
		return 1
	case bn:
		return -1
	}
	if a.kind != b.kind {
		if af, ok := a.Float(); ok {
			if bf, ok := b.Float(); ok {
				return compareFloat(af, bf)
			}
		}
		return strings.Compare(a.Text(), b.Text())
	}
	switch a.kind {
	case KindString:
		return strings.Compare(a.s, b.s)
	case KindInt:
		switch {
		case a.i < b.i:
			return -1
		case a.i > b.i:
			return 1
		}
		return 0
	case KindFloat:
		return compareFloat(a.f, b.f)
	case KindBool:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		}
		return 1
	case KindTime:
		return a.t.Compare(b.t)
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
