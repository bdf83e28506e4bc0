package filter

import "github.com/parqstat/parqstat/pkg/value"

// ColumnBounds are one block's recorded statistics for one leaf column.
// Empty means the store recorded no usable bounds (unsupported physical
// type, or every value null); Min/Max must not be consulted when set.
type ColumnBounds struct {
	Min       value.Raw
	Max       value.Raw
	RowCount  int64
	NullCount int64
	Empty     bool
}

// BlockView exposes a block's per-column statistics to the skip test.
// ok=false means the column does not exist in the file's schema at all,
// which is stronger than Empty: no row in the block carries a value.
type BlockView interface {
	Bounds(column string) (bounds ColumnBounds, ok bool)
}

// CanSkipBlock reports whether the block provably contains no row matching
// f, using only recorded min/max bounds. The test is conservative
// three-valued logic: a block is skipped only when the filter cannot match
// any possible row; whenever the bounds leave doubt, the block is scanned.
func CanSkipBlock(f Filter, block BlockView) bool {
	return !mightMatch(f, block)
}

// mightMatch returns false only when no row in the block can satisfy f.
func mightMatch(f Filter, block BlockView) bool {
	switch n := f.(type) {
	case noopFilter:
		return true
	case *conjunction:
		for _, c := range n.children {
			if !mightMatch(c, block) {
				return false
			}
		}
		return true
	case *disjunction:
		for _, c := range n.children {
			if mightMatch(c, block) {
				return true
			}
		}
		return false
	case *negation:
		// Bounds cannot prove the child true for every row, so a negation
		// never justifies a skip.
		return true
	case *compare:
		return compareMightMatch(n, block)
	case *membership:
		return membershipMightMatch(n, block)
	default:
		return true
	}
}

func compareMightMatch(c *compare, block BlockView) bool {
	b, inSchema := block.Bounds(c.column)
	if !inSchema {
		// No row carries a value, and comparisons never match absence.
		return false
	}
	if b.Empty {
		return true
	}
	switch c.op {
	case OpEq:
		if lt, ok := rawLess(c.lit, b.Min); ok && lt {
			return false
		}
		if gt, ok := rawGreater(c.lit, b.Max); ok && gt {
			return false
		}
	case OpLt:
		// Needs some v < lit, impossible when min >= lit.
		if ge, ok := rawGreaterEq(b.Min, c.lit); ok && ge {
			return false
		}
	case OpLe:
		if gt, ok := rawGreater(b.Min, c.lit); ok && gt {
			return false
		}
	case OpGt:
		if le, ok := rawLessEq(b.Max, c.lit); ok && le {
			return false
		}
	case OpGe:
		if lt, ok := rawLess(b.Max, c.lit); ok && lt {
			return false
		}
	}
	return true
}

func membershipMightMatch(m *membership, block BlockView) bool {
	b, inSchema := block.Bounds(m.column)
	if !inSchema {
		return false
	}
	if b.Empty {
		return true
	}
	// The block might match if any literal falls inside [min, max].
	for _, lit := range m.lits {
		lt, ok := rawLess(lit, b.Min)
		if !ok || lt {
			if !ok {
				return true // incomparable literal: cannot prove anything
			}
			continue
		}
		gt, ok := rawGreater(lit, b.Max)
		if !ok {
			return true
		}
		if !gt {
			return true
		}
	}
	return false
}

func rawLess(a, b value.Raw) (bool, bool) {
	cmp, err := value.Compare(a, b)
	return cmp < 0, err == nil
}

func rawLessEq(a, b value.Raw) (bool, bool) {
	cmp, err := value.Compare(a, b)
	return cmp <= 0, err == nil
}

func rawGreater(a, b value.Raw) (bool, bool) {
	cmp, err := value.Compare(a, b)
	return cmp > 0, err == nil
}

func rawGreaterEq(a, b value.Raw) (bool, bool) {
	cmp, err := value.Compare(a, b)
	return cmp >= 0, err == nil
}
