package stats

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/parqstat/parqstat/pkg/filter"
	"github.com/parqstat/parqstat/pkg/value"
)

// TestProperty_FilteredStatsMatchReference checks that for arbitrary data
// and an arbitrary threshold, the evaluator's count/min/max over idx > t
// equal a direct in-memory fold over the same rows.
func TestProperty_FilteredStatsMatchReference(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25
	properties := gopter.NewProperties(parameters)

	dir := t.TempDir()

	properties.Property("count, min, and max agree with a direct fold", prop.ForAll(
		func(values []int64, threshold int64) bool {
			if len(values) == 0 {
				return true
			}

			rows := make([]record, len(values))
			for i, v := range values {
				rows[i] = record{Idx: v, Name: "r", Score: float64(v)}
			}
			groups := [][]record{rows}
			if len(rows) > 3 {
				groups = [][]record{rows[:len(rows)/2], rows[len(rows)/2:]}
			}
			path := filepath.Join(dir, "sample.parquet")
			writeRecords(t, path, groups...)
			defer os.Remove(path)

			ctx := context.Background()
			s, err := Open(ctx, path, Options{}, filter.Gt("idx", value.Int64Value(threshold)))
			if err != nil {
				return false
			}

			count, err := s.RecordCount(ctx)
			if err != nil {
				return false
			}
			min, err := Min(ctx, s, "idx", value.Int64Codec{})
			if err != nil {
				return false
			}
			max, err := Max(ctx, s, "idx", value.Int64Codec{})
			if err != nil {
				return false
			}

			var wantCount int64
			var wantMin, wantMax *int64
			for _, v := range values {
				if v <= threshold {
					continue
				}
				wantCount++
				v := v
				if wantMin == nil || v < *wantMin {
					wantMin = &v
				}
				if wantMax == nil || v > *wantMax {
					wantMax = &v
				}
			}

			if count != wantCount {
				return false
			}
			if (min == nil) != (wantMin == nil) || (min != nil && *min != *wantMin) {
				return false
			}
			if (max == nil) != (wantMax == nil) || (max != nil && *max != *wantMax) {
				return false
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(-1000, 1000)),
		gen.Int64Range(-1000, 1000),
	))

	properties.TestingRun(t)
}

// TestProperty_FastPathMatchesScan checks that for arbitrary data the
// metadata-only path and a filter every row satisfies produce identical
// answers.
func TestProperty_FastPathMatchesScan(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 15
	properties := gopter.NewProperties(parameters)

	dir := t.TempDir()

	properties.Property("fast and scanned answers coincide", prop.ForAll(
		func(values []int64) bool {
			if len(values) == 0 {
				return true
			}

			rows := make([]record, len(values))
			for i, v := range values {
				rows[i] = record{Idx: v, Name: "r", Score: float64(v)}
			}
			path := filepath.Join(dir, "sample.parquet")
			writeRecords(t, path, rows)
			defer os.Remove(path)

			ctx := context.Background()
			fast, err := Open(ctx, path, Options{}, nil)
			if err != nil {
				return false
			}
			scanned, err := Open(ctx, path, Options{}, filter.Ge("idx", value.Int64Value(-1001)))
			if err != nil {
				return false
			}

			nFast, err := fast.RecordCount(ctx)
			if err != nil {
				return false
			}
			nScanned, err := scanned.RecordCount(ctx)
			if err != nil {
				return false
			}
			if nFast != nScanned {
				return false
			}

			minFast, err := Min(ctx, fast, "idx", value.Int64Codec{})
			if err != nil {
				return false
			}
			minScanned, err := Min(ctx, scanned, "idx", value.Int64Codec{})
			if err != nil {
				return false
			}
			if minFast == nil || minScanned == nil || *minFast != *minScanned {
				return false
			}

			maxFast, err := Max(ctx, fast, "idx", value.Int64Codec{})
			if err != nil {
				return false
			}
			maxScanned, err := Max(ctx, scanned, "idx", value.Int64Codec{})
			if err != nil {
				return false
			}
			return maxFast != nil && maxScanned != nil && *maxFast == *maxScanned
		},
		gen.SliceOf(gen.Int64Range(-1000, 1000)),
	))

	properties.TestingRun(t)
}
