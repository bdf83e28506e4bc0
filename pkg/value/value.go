// Package value provides the raw statistic value union and the codecs that
// convert between raw storage values and application types.
package value

import (
	"bytes"
	"fmt"
	"math"

	"github.com/parqstat/parqstat/internal/errors"
)

// Kind identifies which variant of a Raw value is active.
type Kind int

const (
	// KindInvalid is the zero Kind; no Raw constructor produces it.
	KindInvalid Kind = iota
	KindInt64
	KindInt32
	KindBoolean
	KindByteArray
	KindDouble
	KindFloat
)

// String returns the kind name used in error messages and the catalog.
func (k Kind) String() string {
	switch k {
	case KindInt64:
		return "int64"
	case KindInt32:
		return "int32"
	case KindBoolean:
		return "boolean"
	case KindByteArray:
		return "byte_array"
	case KindDouble:
		return "double"
	case KindFloat:
		return "float"
	default:
		return "invalid"
	}
}

// KindFromString is the inverse of Kind.String. Unknown names yield KindInvalid.
func KindFromString(s string) Kind {
	switch s {
	case "int64":
		return KindInt64
	case "int32":
		return KindInt32
	case "boolean":
		return KindBoolean
	case "byte_array":
		return KindByteArray
	case "double":
		return KindDouble
	case "float":
		return KindFloat
	default:
		return KindInvalid
	}
}

// Raw is a tagged union over the six raw statistic variants the columnar
// store records: int64, int32, boolean, byte sequence, double, float.
// Exactly one variant is active; there is no variant for structured data.
type Raw struct {
	kind Kind
	bits uint64 // numeric and boolean variants
	data []byte // byte sequence variant
}

// Int64Value returns a Raw holding a 64-bit signed integer.
func Int64Value(v int64) Raw { return Raw{kind: KindInt64, bits: uint64(v)} }

// Int32Value returns a Raw holding a 32-bit signed integer.
func Int32Value(v int32) Raw { return Raw{kind: KindInt32, bits: uint64(uint32(v))} }

// BoolValue returns a Raw holding a boolean.
func BoolValue(v bool) Raw {
	var bits uint64
	if v {
		bits = 1
	}
	return Raw{kind: KindBoolean, bits: bits}
}

// BytesValue returns a Raw holding an arbitrary byte sequence.
// The slice is not copied; callers must not mutate it afterwards.
func BytesValue(v []byte) Raw { return Raw{kind: KindByteArray, data: v} }

// StringValue returns a byte-sequence Raw backed by the given text.
func StringValue(v string) Raw { return Raw{kind: KindByteArray, data: []byte(v)} }

// DoubleValue returns a Raw holding a double-precision float.
func DoubleValue(v float64) Raw { return Raw{kind: KindDouble, bits: math.Float64bits(v)} }

// FloatValue returns a Raw holding a single-precision float.
func FloatValue(v float32) Raw { return Raw{kind: KindFloat, bits: uint64(math.Float32bits(v))} }

// Kind returns the active variant.
func (r Raw) Kind() Kind { return r.kind }

// IsValid reports whether the Raw holds any variant at all.
func (r Raw) IsValid() bool { return r.kind != KindInvalid }

// Int64 returns the int64 variant. Callers must check Kind first.
func (r Raw) Int64() int64 { return int64(r.bits) }

// Int32 returns the int32 variant.
func (r Raw) Int32() int32 { return int32(uint32(r.bits)) }

// Bool returns the boolean variant.
func (r Raw) Bool() bool { return r.bits != 0 }

// Bytes returns the byte-sequence variant without copying.
func (r Raw) Bytes() []byte { return r.data }

// Double returns the double variant.
func (r Raw) Double() float64 { return math.Float64frombits(r.bits) }

// Float returns the float variant.
func (r Raw) Float() float32 { return math.Float32frombits(uint32(r.bits)) }

// String renders the value for logs and CLI output.
func (r Raw) String() string {
	switch r.kind {
	case KindInt64:
		return fmt.Sprintf("%d", r.Int64())
	case KindInt32:
		return fmt.Sprintf("%d", r.Int32())
	case KindBoolean:
		return fmt.Sprintf("%t", r.Bool())
	case KindByteArray:
		return string(r.data)
	case KindDouble:
		return fmt.Sprintf("%g", r.Double())
	case KindFloat:
		return fmt.Sprintf("%g", r.Float())
	default:
		return "<invalid>"
	}
}

// Compare orders two raw values of compatible kinds. Integer widths are
// promoted (int32 compares against int64) and float promotes to double, so a
// filter literal may be wider than the stored column. Byte sequences compare
// lexicographically. Incompatible kinds yield a decode-mismatch error.
func Compare(a, b Raw) (int, error) {
	switch {
	case a.kind == KindByteArray && b.kind == KindByteArray:
		return bytes.Compare(a.data, b.data), nil
	case a.kind == KindBoolean && b.kind == KindBoolean:
		return cmpBool(a.Bool(), b.Bool()), nil
	case isInt(a.kind) && isInt(b.kind):
		return cmpInt64(asInt64(a), asInt64(b)), nil
	case isFloat(a.kind) && isFloat(b.kind):
		return cmpFloat64(asFloat64(a), asFloat64(b)), nil
	default:
		return 0, errors.NewDecodeError(errors.CodeKindMismatch,
			fmt.Sprintf("cannot compare %s against %s", a.kind, b.kind))
	}
}

func isInt(k Kind) bool   { return k == KindInt32 || k == KindInt64 }
func isFloat(k Kind) bool { return k == KindFloat || k == KindDouble }

func asInt64(r Raw) int64 {
	if r.kind == KindInt32 {
		return int64(r.Int32())
	}
	return r.Int64()
}

func asFloat64(r Raw) float64 {
	if r.kind == KindFloat {
		return float64(r.Float())
	}
	return r.Double()
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case b:
		return -1
	default:
		return 1
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Ordering supplies a total order over raw values for one semantic type.
// Min/max folding and block pruning are defined in terms of an Ordering so
// that types whose raw encoding does not sort natively (decimals stored as
// two's-complement bytes) can substitute their own comparison.
type Ordering interface {
	Compare(a, b Raw) (int, error)
}

// NaturalOrdering orders values by their raw variant: numeric order for
// numbers, lexicographic order for byte sequences, false < true for booleans.
func NaturalOrdering() Ordering { return naturalOrdering{} }

type naturalOrdering struct{}

func (naturalOrdering) Compare(a, b Raw) (int, error) { return Compare(a, b) }
