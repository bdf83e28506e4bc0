// Package evaluator implements the dual-path statistics core: a fast
// metadata-only evaluator, a filtered scanning evaluator, and the
// multi-file aggregate that folds them into one answer.
package evaluator

import (
	"context"

	"github.com/parqstat/parqstat/pkg/value"
)

// Direction selects which extremum a bounds fold computes.
type Direction int

const (
	MinOf Direction = iota
	MaxOf
)

// Evaluator answers statistics questions for one file (or, for the
// aggregate, an ordered collection of files). Implementations hold no open
// resources between calls: every call opens, reads, and closes on all exit
// paths, so one Evaluator may serve concurrent callers.
type Evaluator interface {
	// RecordCount returns the number of rows (matching the filter, for the
	// filtered evaluator).
	RecordCount(ctx context.Context) (int64, error)

	// Extremum folds the column's min or max into best, which may be nil
	// when no prior file improved it. The threaded best is what lets a
	// block be skipped once the running bound already dominates its
	// statistics. An unresolvable column leaves best unchanged.
	Extremum(ctx context.Context, column string, dir Direction, ord value.Ordering, best *value.Raw) (*value.Raw, error)
}

// improves reports whether candidate tightens best in the given direction.
func improves(candidate value.Raw, dir Direction, ord value.Ordering, best *value.Raw) (bool, error) {
	if best == nil {
		return true, nil
	}
	cmp, err := ord.Compare(candidate, *best)
	if err != nil {
		return false, err
	}
	if dir == MinOf {
		return cmp < 0, nil
	}
	return cmp > 0, nil
}
