package evaluator

import (
	"context"

	"github.com/parqstat/parqstat/pkg/value"
)

// aggregateEvaluator combines an ordered collection of per-file evaluators
// into one logical view. It owns its members exclusively.
type aggregateEvaluator struct {
	members []Evaluator
}

// NewAggregate wraps the members. The dispatcher only calls this with two or
// more; a single file needs no aggregation overhead.
func NewAggregate(members []Evaluator) Evaluator {
	return &aggregateEvaluator{members: members}
}

// RecordCount sums the members' counts. Sum is associative and commutative,
// so the result does not depend on member order. Any member failure aborts
// the whole call; there is no partial answer.
func (a *aggregateEvaluator) RecordCount(ctx context.Context) (int64, error) {
	var total int64
	for _, m := range a.members {
		n, err := m.RecordCount(ctx)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// Extremum left-folds over the members, threading the running best into
// each subsequent member as its seed. Min/max over a set is
// order-independent, so correctness does not depend on member order; the
// threading exists so later members can skip blocks the running bound
// already dominates.
func (a *aggregateEvaluator) Extremum(ctx context.Context, column string, dir Direction, ord value.Ordering, best *value.Raw) (*value.Raw, error) {
	for _, m := range a.members {
		next, err := m.Extremum(ctx, column, dir, ord, best)
		if err != nil {
			return nil, err
		}
		best = next
	}
	return best, nil
}
