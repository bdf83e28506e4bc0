package evaluator

import (
	"context"

	"github.com/parqstat/parqstat/internal/store"
	"github.com/parqstat/parqstat/pkg/value"
)

// fastEvaluator answers from footer-level block statistics alone. It never
// decodes a row, so it is only valid when no filter is active; the
// dispatcher guarantees that.
type fastEvaluator struct {
	store *store.Store
	path  string
}

// NewFast creates the metadata-only evaluator for one file.
func NewFast(st *store.Store, path string) Evaluator {
	return &fastEvaluator{store: st, path: path}
}

func (e *fastEvaluator) RecordCount(ctx context.Context) (int64, error) {
	f, err := e.store.Open(ctx, e.path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var total int64
	for b := 0; b < f.BlockCount(); b++ {
		total += f.BlockRows(b)
	}
	return total, nil
}

func (e *fastEvaluator) Extremum(ctx context.Context, column string, dir Direction, ord value.Ordering, best *value.Raw) (*value.Raw, error) {
	f, err := e.store.Open(ctx, e.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	for b := 0; b < f.BlockCount(); b++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stats, inSchema := f.ColumnStats(b, column)
		if !inSchema {
			// The column resolves nowhere in this file; the running best
			// passes through unchanged.
			return best, nil
		}
		if stats.Empty {
			continue
		}
		bound := stats.Min
		if dir == MaxOf {
			bound = stats.Max
		}
		better, err := improves(bound, dir, ord, best)
		if err != nil {
			return nil, err
		}
		if better {
			v := bound
			best = &v
		}
	}
	return best, nil
}
