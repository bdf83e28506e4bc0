// Package bloom provides the probabilistic membership filters backing the
// catalog's zone maps. A filter answers "definitely not present" or "maybe
// present" for a column value without reading the file.
package bloom

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/golang/snappy"
	"github.com/spaolacci/murmur3"
)

// Filter is a bloom filter over byte items, hashed with murmur3 128-bit
// double hashing. It guarantees no false negatives. Filters are not safe
// for concurrent mutation; the catalog builds them single-threaded.
type Filter struct {
	bits      []uint64
	numBits   uint64
	numHashes uint64
	count     uint64
}

// New creates a filter sized for the expected number of items and target
// false positive rate.
func New(expectedItems int, targetFPR float64) *Filter {
	if expectedItems <= 0 {
		expectedItems = 1000
	}
	if targetFPR <= 0 || targetFPR >= 1 {
		targetFPR = 0.01
	}

	n := float64(expectedItems)
	m := -n * math.Log(targetFPR) / (math.Ln2 * math.Ln2)
	k := (m / n) * math.Ln2

	numBits := int(math.Ceil(m))
	if numBits < 64 {
		numBits = 64
	}
	numHashes := int(math.Ceil(k))
	if numHashes < 1 {
		numHashes = 1
	}

	words := (numBits + 63) / 64
	return &Filter{
		bits:      make([]uint64, words),
		numBits:   uint64(words * 64),
		numHashes: uint64(numHashes),
	}
}

// Add inserts an item.
func (f *Filter) Add(item []byte) {
	h1, h2 := hash128(item)
	for i := uint64(0); i < f.numHashes; i++ {
		pos := (h1 + i*h2) % f.numBits
		f.bits[pos/64] |= 1 << (pos % 64)
	}
	f.count++
}

// Contains reports whether the item might be present. False means
// definitely absent.
func (f *Filter) Contains(item []byte) bool {
	h1, h2 := hash128(item)
	for i := uint64(0); i < f.numHashes; i++ {
		pos := (h1 + i*h2) % f.numBits
		if f.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}

// Count returns the number of items added.
func (f *Filter) Count() uint64 { return f.count }

// Union merges other into f by OR-ing the bit arrays. Both filters must
// share the same geometry.
func (f *Filter) Union(other *Filter) error {
	if f.numBits != other.numBits || f.numHashes != other.numHashes {
		return fmt.Errorf("bloom: incompatible geometry %d/%d vs %d/%d",
			f.numBits, f.numHashes, other.numBits, other.numHashes)
	}
	for i := range f.bits {
		f.bits[i] |= other.bits[i]
	}
	f.count += other.count
	return nil
}

func hash128(item []byte) (uint64, uint64) {
	h := murmur3.New128()
	h.Write(item)
	return h.Sum128()
}

// Marshal serializes the filter with a snappy-compressed bit array.
// Layout: numBits, numHashes, count as little-endian uint64, then
// snappy(bit array).
func (f *Filter) Marshal() []byte {
	raw := make([]byte, len(f.bits)*8)
	for i, w := range f.bits {
		binary.LittleEndian.PutUint64(raw[i*8:], w)
	}
	compressed := snappy.Encode(nil, raw)

	out := make([]byte, 24+len(compressed))
	binary.LittleEndian.PutUint64(out[0:8], f.numBits)
	binary.LittleEndian.PutUint64(out[8:16], f.numHashes)
	binary.LittleEndian.PutUint64(out[16:24], f.count)
	copy(out[24:], compressed)
	return out
}

// Unmarshal reconstructs a filter produced by Marshal.
func Unmarshal(data []byte) (*Filter, error) {
	if len(data) < 24 {
		return nil, errors.New("bloom: serialized filter too short")
	}
	numBits := binary.LittleEndian.Uint64(data[0:8])
	numHashes := binary.LittleEndian.Uint64(data[8:16])
	count := binary.LittleEndian.Uint64(data[16:24])
	if numBits == 0 || numBits%64 != 0 || numHashes == 0 {
		return nil, errors.New("bloom: invalid filter geometry")
	}

	raw, err := snappy.Decode(nil, data[24:])
	if err != nil {
		return nil, fmt.Errorf("bloom: snappy decode failed: %w", err)
	}
	words := int(numBits / 64)
	if len(raw) != words*8 {
		return nil, fmt.Errorf("bloom: bit array is %d bytes, expected %d", len(raw), words*8)
	}

	bits := make([]uint64, words)
	for i := range bits {
		bits[i] = binary.LittleEndian.Uint64(raw[i*8:])
	}
	return &Filter{bits: bits, numBits: numBits, numHashes: numHashes, count: count}, nil
}
