package vm

import (
	"math"
	"strconv"
	"strings"
)

// ValueKind identifies the dynamic type of a Value.
type ValueKind uint8

const (
	KindUndefined ValueKind = iota
	KindNull
	KindBool
	KindInt
	KindUint
	KindNumber
	KindString
	KindObject
)

// String returns the script-facing name of the kind.
func (k ValueKind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "Boolean"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindNumber:
		return "Number"
	case KindString:
		return "String"
	case KindObject:
		return "Object"
	default:
		return "?"
	}
}

// Value is a script-visible value.
//
// The zero Value is undefined. Numeric kinds share the num field; int and
// uint values are always stored exactly.
type Value struct {
	kind ValueKind
	num  float64
	str  string
	obj  Object
}

// Pre-defined values
var (
	Undefined = Value{kind: KindUndefined}
	Null      = Value{kind: KindNull}
	True      = Value{kind: KindBool, num: 1}
	False     = Value{kind: KindBool}
)

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// Bool creates a Boolean value.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Int creates an int value.
func Int(i int32) Value {
	return Value{kind: KindInt, num: float64(i)}
}

// Uint creates a uint value.
func Uint(u uint32) Value {
	return Value{kind: KindUint, num: float64(u)}
}

// Number creates a Number value.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// String creates a String value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// ObjectValue wraps an object. A nil object yields null.
func ObjectValue(o Object) Value {
	if o == nil {
		return Null
	}
	return Value{kind: KindObject, obj: o}
}

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// Kind returns the dynamic kind of v.
func (v Value) Kind() ValueKind { return v.kind }

// IsUndefined returns true if v is undefined.
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

// IsNull returns true if v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsNullish returns true if v is null or undefined.
func (v Value) IsNullish() bool { return v.kind == KindNull || v.kind == KindUndefined }

// IsNumeric returns true for int, uint and Number values.
func (v Value) IsNumeric() bool {
	return v.kind == KindInt || v.kind == KindUint || v.kind == KindNumber
}

// IsObject returns true if v holds an object.
func (v Value) IsObject() bool { return v.kind == KindObject }

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// AsObject returns the object held by v.
func (v Value) AsObject() (Object, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.obj, true
}

// AsBool returns the Boolean held by v.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.num != 0, true
}

// AsNumber returns the numeric value of an int, uint or Number.
func (v Value) AsNumber() (float64, bool) {
	if !v.IsNumeric() {
		return math.NaN(), false
	}
	return v.num, true
}

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// StrictEquals compares kind and payload; objects compare by identity.
func (v Value) StrictEquals(other Value) bool {
	if v.IsNumeric() && other.IsNumeric() {
		return v.num == other.num
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindUndefined, KindNull:
		return true
	case KindBool:
		return v.num == other.num
	case KindString:
		return v.str == other.str
	case KindObject:
		return v.obj == other.obj
	}
	return false
}

// String renders v for diagnostics and error messages.
func (v Value) String() string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		if v.num != 0 {
			return "true"
		}
		return "false"
	case KindInt, KindUint:
		return strconv.FormatInt(int64(v.num), 10)
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return v.str
	case KindObject:
		return objectString(v.obj)
	}
	return "?"
}

// toNumber converts v the way numeric coercion does. ok is false when the
// result is NaN because v has no numeric reading.
func toNumber(v Value) (float64, bool) {
	switch v.kind {
	case KindInt, KindUint, KindNumber, KindBool:
		return v.num, true
	case KindNull:
		return 0, true
	case KindString:
		s := strings.TrimSpace(v.str)
		if s == "" {
			return 0, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	return math.NaN(), false
}

// truthy reports the boolean reading of v.
func truthy(v Value) bool {
	switch v.kind {
	case KindUndefined, KindNull:
		return false
	case KindBool, KindInt, KindUint, KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindString:
		return v.str != ""
	}
	return true
}

// toUint32 truncates the numeric reading of v and wraps it modulo 2^32.
// NaN and infinities read as 0.
func toUint32(v Value) uint32 {
	n, _ := toNumber(v)
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	m := math.Mod(math.Trunc(n), 4294967296)
	if m < 0 {
		m += 4294967296
	}
	return uint32(m)
}

// toInt32 is toUint32 reinterpreted as a signed 32-bit integer.
func toInt32(v Value) int32 {
	return int32(toUint32(v))
}
