package value

import (
	"fmt"

	"github.com/parqstat/parqstat/internal/errors"
)

// Codec converts between raw statistic values of the columnar store and one
// application type T. Decode fails with a decode-mismatch error when the raw
// variant does not correspond to T's storage representation. Encode produces
// the canonical raw form used to compare against stored statistics.
//
// Codec and Ordering are passed explicitly into every statistics call; there
// is no ambient registry.
type Codec[T any] interface {
	Decode(Raw) (T, error)
	Encode(T) Raw
	Compare(a, b T) int
	// Ordering returns the raw-level order consistent with Compare, used
	// for block pruning and min/max folding before values are decoded.
	Ordering() Ordering
}

func mismatch(want string, got Kind) error {
	return errors.NewDecodeError(errors.CodeKindMismatch,
		fmt.Sprintf("requested %s value from %s-tagged raw value", want, got))
}

// Int64Codec round-trips 64-bit signed integers. Decode also accepts the
// int32 variant, widening it, so a single codec serves both integer widths.
type Int64Codec struct{}

func (Int64Codec) Decode(r Raw) (int64, error) {
	switch r.Kind() {
	case KindInt64:
		return r.Int64(), nil
	case KindInt32:
		return int64(r.Int32()), nil
	default:
		return 0, mismatch("int64", r.Kind())
	}
}

func (Int64Codec) Encode(v int64) Raw     { return Int64Value(v) }
func (Int64Codec) Compare(a, b int64) int { return cmpInt64(a, b) }
func (Int64Codec) Ordering() Ordering     { return NaturalOrdering() }

// Int32Codec round-trips 32-bit signed integers.
type Int32Codec struct{}

func (Int32Codec) Decode(r Raw) (int32, error) {
	if r.Kind() != KindInt32 {
		return 0, mismatch("int32", r.Kind())
	}
	return r.Int32(), nil
}

func (Int32Codec) Encode(v int32) Raw     { return Int32Value(v) }
func (Int32Codec) Compare(a, b int32) int { return cmpInt64(int64(a), int64(b)) }
func (Int32Codec) Ordering() Ordering     { return NaturalOrdering() }

// Float64Codec round-trips double-precision floats, widening the float
// variant on decode.
type Float64Codec struct{}

func (Float64Codec) Decode(r Raw) (float64, error) {
	switch r.Kind() {
	case KindDouble:
		return r.Double(), nil
	case KindFloat:
		return float64(r.Float()), nil
	default:
		return 0, mismatch("double", r.Kind())
	}
}

func (Float64Codec) Encode(v float64) Raw     { return DoubleValue(v) }
func (Float64Codec) Compare(a, b float64) int { return cmpFloat64(a, b) }
func (Float64Codec) Ordering() Ordering       { return NaturalOrdering() }

// Float32Codec round-trips single-precision floats.
type Float32Codec struct{}

func (Float32Codec) Decode(r Raw) (float32, error) {
	if r.Kind() != KindFloat {
		return 0, mismatch("float", r.Kind())
	}
	return r.Float(), nil
}

func (Float32Codec) Encode(v float32) Raw     { return FloatValue(v) }
func (Float32Codec) Compare(a, b float32) int { return cmpFloat64(float64(a), float64(b)) }
func (Float32Codec) Ordering() Ordering       { return NaturalOrdering() }

// BoolCodec round-trips booleans, ordered false < true.
type BoolCodec struct{}

func (BoolCodec) Decode(r Raw) (bool, error) {
	if r.Kind() != KindBoolean {
		return false, mismatch("boolean", r.Kind())
	}
	return r.Bool(), nil
}

func (BoolCodec) Encode(v bool) Raw     { return BoolValue(v) }
func (BoolCodec) Compare(a, b bool) int { return cmpBool(a, b) }
func (BoolCodec) Ordering() Ordering    { return NaturalOrdering() }

// StringCodec round-trips text backed by byte sequences, ordered
// lexicographically by bytes.
type StringCodec struct{}

func (StringCodec) Decode(r Raw) (string, error) {
	if r.Kind() != KindByteArray {
		return "", mismatch("string", r.Kind())
	}
	return string(r.Bytes()), nil
}

func (StringCodec) Encode(v string) Raw { return StringValue(v) }

func (StringCodec) Compare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (StringCodec) Ordering() Ordering { return NaturalOrdering() }

// BytesCodec round-trips raw byte sequences.
type BytesCodec struct{}

func (BytesCodec) Decode(r Raw) ([]byte, error) {
	if r.Kind() != KindByteArray {
		return nil, mismatch("bytes", r.Kind())
	}
	return r.Bytes(), nil
}

func (BytesCodec) Encode(v []byte) Raw { return BytesValue(v) }

func (BytesCodec) Compare(a, b []byte) int {
	r, _ := Compare(BytesValue(a), BytesValue(b))
	return r
}

func (BytesCodec) Ordering() Ordering { return NaturalOrdering() }
