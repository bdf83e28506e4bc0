package evaluator

import (
	"context"

	"github.com/parqstat/parqstat/internal/store"
	"github.com/parqstat/parqstat/pkg/filter"
	"github.com/parqstat/parqstat/pkg/value"
)

// filteredEvaluator decodes rows and applies a filter, using block
// statistics only to skip whole row groups when that is provably safe.
// With the no-op filter it degenerates to the fast evaluator's results,
// but the dispatcher never selects it in that case.
type filteredEvaluator struct {
	store      *store.Store
	path       string
	filter     filter.Filter
	projection []string // non-nil restricts which columns scans materialize
}

// NewFiltered creates the scanning evaluator for one file.
func NewFiltered(st *store.Store, path string, f filter.Filter, projection []string) Evaluator {
	return &filteredEvaluator{store: st, path: path, filter: f, projection: projection}
}

func (e *filteredEvaluator) RecordCount(ctx context.Context) (int64, error) {
	f, err := e.store.Open(ctx, e.path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var count int64
	for b := 0; b < f.BlockCount(); b++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if filter.CanSkipBlock(e.filter, f.BlockView(b)) {
			continue
		}
		err := f.Scan(ctx, b, e.scanColumns(nil), func(row filter.Row) error {
			ok, err := e.filter.Matches(row)
			if err != nil {
				return err
			}
			if ok {
				count++
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return count, nil
}

func (e *filteredEvaluator) Extremum(ctx context.Context, column string, dir Direction, ord value.Ordering, best *value.Raw) (*value.Raw, error) {
	f, err := e.store.Open(ctx, e.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !f.HasColumn(column) {
		return best, nil
	}

	for b := 0; b < f.BlockCount(); b++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if filter.CanSkipBlock(e.filter, f.BlockView(b)) {
			continue
		}
		if skip, err := e.boundIrrelevant(f, b, column, dir, ord, best); err != nil {
			return nil, err
		} else if skip {
			continue
		}

		err := f.Scan(ctx, b, e.scanColumns([]string{column}), func(row filter.Row) error {
			ok, err := e.filter.Matches(row)
			if err != nil || !ok {
				return err
			}
			v, present := row.Value(column)
			if !present {
				return nil
			}
			better, err := improves(v, dir, ord, best)
			if err != nil {
				return err
			}
			if better {
				cp := v
				best = &cp
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return best, nil
}

// boundIrrelevant reports whether the block's statistics for the target
// column prove it cannot tighten the running best, in which case the block
// is skipped even though some of its rows may pass the filter.
func (e *filteredEvaluator) boundIrrelevant(f *store.File, block int, column string, dir Direction, ord value.Ordering, best *value.Raw) (bool, error) {
	if best == nil {
		return false, nil
	}
	stats, inSchema := f.ColumnStats(block, column)
	if !inSchema || stats.Empty {
		return false, nil
	}
	bound := stats.Min
	if dir == MaxOf {
		bound = stats.Max
	}
	better, err := improves(bound, dir, ord, best)
	if err != nil {
		// Incomparable bounds prove nothing; scan.
		return false, nil
	}
	return !better, nil
}

// scanColumns returns the columns a scan must materialize: the filter's
// referenced columns, the extremum target if any, narrowed by the
// configured projection.
func (e *filteredEvaluator) scanColumns(extra []string) []string {
	cols := e.filter.Columns()
	for _, c := range extra {
		if !containsColumn(cols, c) {
			cols = append(cols, c)
		}
	}
	if e.projection == nil {
		return cols
	}
	var out []string
	for _, c := range cols {
		if containsColumn(e.projection, c) {
			out = append(out, c)
		}
	}
	return out
}

func containsColumn(cols []string, c string) bool {
	for _, have := range cols {
		if have == c {
			return true
		}
	}
	return false
}
