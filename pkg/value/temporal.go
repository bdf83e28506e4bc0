package value

import "time"

// DateCodec round-trips calendar dates stored as int32 day counts offset
// from the Unix epoch (1970-01-01). Decoded dates are midnight UTC; the
// time-of-day portion of an encoded value is discarded.
type DateCodec struct{}

var epochDay = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

func (DateCodec) Decode(r Raw) (time.Time, error) {
	switch r.Kind() {
	case KindInt32:
		return epochDay.AddDate(0, 0, int(r.Int32())), nil
	case KindInt64:
		return epochDay.AddDate(0, 0, int(r.Int64())), nil
	default:
		return time.Time{}, mismatch("date", r.Kind())
	}
}

func (DateCodec) Encode(v time.Time) Raw {
	days := v.UTC().Truncate(24*time.Hour).Sub(epochDay) / (24 * time.Hour)
	return Int32Value(int32(days))
}

func (DateCodec) Compare(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func (DateCodec) Ordering() Ordering { return NaturalOrdering() }
