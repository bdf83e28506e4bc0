package value

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/parqstat/parqstat/internal/errors"
)

// Decimal is an arbitrary-precision decimal: Unscaled * 10^-Scale.
type Decimal struct {
	Unscaled *big.Int
	Scale    int
}

// String renders the decimal in plain notation, e.g. {1234, 2} -> "12.34".
func (d Decimal) String() string {
	if d.Unscaled == nil {
		return "0"
	}
	s := d.Unscaled.String()
	if d.Scale <= 0 {
		return s + strings.Repeat("0", -d.Scale)
	}
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	for len(s) <= d.Scale {
		s = "0" + s
	}
	out := s[:len(s)-d.Scale] + "." + s[len(s)-d.Scale:]
	if neg {
		out = "-" + out
	}
	return out
}

// DecimalCodec round-trips arbitrary-precision decimals. The store records
// them either as a scaled integer (int32/int64 variant) or as a big-endian
// two's-complement byte sequence; both carry the codec's scale.
type DecimalCodec struct {
	Scale     int
	Precision int
}

func (c DecimalCodec) Decode(r Raw) (Decimal, error) {
	switch r.Kind() {
	case KindInt32:
		return Decimal{Unscaled: big.NewInt(int64(r.Int32())), Scale: c.Scale}, nil
	case KindInt64:
		return Decimal{Unscaled: big.NewInt(r.Int64()), Scale: c.Scale}, nil
	case KindByteArray:
		b := r.Bytes()
		if len(b) == 0 {
			return Decimal{}, errors.NewDecodeError(errors.CodeCorruptValue,
				"decimal byte sequence is empty")
		}
		return Decimal{Unscaled: twosComplementToBig(b), Scale: c.Scale}, nil
	default:
		return Decimal{}, mismatch("decimal", r.Kind())
	}
}

// Encode produces the byte-sequence form: minimal big-endian two's
// complement of the unscaled integer.
func (c DecimalCodec) Encode(v Decimal) Raw {
	u := v.Unscaled
	if u == nil {
		u = new(big.Int)
	}
	if v.Scale != c.Scale {
		u = rescale(u, v.Scale, c.Scale)
	}
	return BytesValue(bigToTwosComplement(u))
}

func (c DecimalCodec) Compare(a, b Decimal) int {
	ua, ub := a.Unscaled, b.Unscaled
	if ua == nil {
		ua = new(big.Int)
	}
	if ub == nil {
		ub = new(big.Int)
	}
	// Align scales before comparing unscaled magnitudes.
	if a.Scale < b.Scale {
		ua = rescale(ua, a.Scale, b.Scale)
	} else if b.Scale < a.Scale {
		ub = rescale(ub, b.Scale, a.Scale)
	}
	return ua.Cmp(ub)
}

// Ordering decodes both sides before comparing: lexicographic byte order is
// wrong for negative two's-complement values, so the natural ordering cannot
// be used for decimals.
func (c DecimalCodec) Ordering() Ordering { return decimalOrdering{c} }

type decimalOrdering struct{ c DecimalCodec }

func (o decimalOrdering) Compare(a, b Raw) (int, error) {
	da, err := o.c.Decode(a)
	if err != nil {
		return 0, err
	}
	db, err := o.c.Decode(b)
	if err != nil {
		return 0, err
	}
	return o.c.Compare(da, db), nil
}

// ParseDecimal parses plain decimal notation ("12.34", "-0.5") at the given
// scale. Excess fractional digits are rejected rather than rounded.
func ParseDecimal(s string, scale int) (Decimal, error) {
	intPart, fracPart := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if len(fracPart) > scale {
		return Decimal{}, errors.NewDecodeError(errors.CodeCorruptValue,
			fmt.Sprintf("decimal %q has more than %d fractional digits", s, scale))
	}
	digits := intPart + fracPart + strings.Repeat("0", scale-len(fracPart))
	u, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Decimal{}, errors.NewDecodeError(errors.CodeCorruptValue,
			fmt.Sprintf("invalid decimal %q", s))
	}
	return Decimal{Unscaled: u, Scale: scale}, nil
}

var bigTen = big.NewInt(10)

func rescale(u *big.Int, from, to int) *big.Int {
	out := new(big.Int).Set(u)
	for i := from; i < to; i++ {
		out.Mul(out, bigTen)
	}
	return out
}

func twosComplementToBig(b []byte) *big.Int {
	u := new(big.Int).SetBytes(b)
	if b[0]&0x80 != 0 {
		// Negative: subtract 2^(8*len).
		shift := new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8))
		u.Sub(u, shift)
	}
	return u
}

func bigToTwosComplement(u *big.Int) []byte {
	if u.Sign() >= 0 {
		b := u.Bytes()
		if len(b) == 0 {
			return []byte{0}
		}
		if b[0]&0x80 != 0 {
			b = append([]byte{0}, b...)
		}
		return b
	}
	// Negative: find the minimal width whose two's complement holds u.
	width := (u.BitLen() + 8) / 8
	if width == 0 {
		width = 1
	}
	shift := new(big.Int).Lsh(big.NewInt(1), uint(width*8))
	v := new(big.Int).Add(u, shift)
	b := v.Bytes()
	out := make([]byte, width)
	copy(out[width-len(b):], b)
	return out
}
