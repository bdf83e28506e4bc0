package catalog

import (
	"context"
	"log"

	"github.com/parqstat/parqstat/internal/bloom"
	"github.com/parqstat/parqstat/internal/store"
	"github.com/parqstat/parqstat/pkg/filter"
	"github.com/parqstat/parqstat/pkg/value"
)

// zoneMapFPR is the target false positive rate for zone-map blooms.
const zoneMapFPR = 0.01

// Indexer registers parquet files into a catalog.
type Indexer struct {
	store   *store.Store
	catalog *Catalog
}

// NewIndexer creates an indexer backed by the given store and catalog.
func NewIndexer(st *store.Store, c *Catalog) *Indexer {
	return &Indexer{store: st, catalog: c}
}

// IndexPath resolves the path and registers every constituent file.
// Returns the number of files registered.
func (ix *Indexer) IndexPath(ctx context.Context, path string) (int, error) {
	files, err := ix.store.Resolve(ctx, path)
	if err != nil {
		return 0, err
	}
	for i, file := range files {
		if err := ix.IndexFile(ctx, file); err != nil {
			return i, err
		}
		log.Printf("indexed %s", file)
	}
	return len(files), nil
}

// IndexFile reads one file's footer statistics and column values, and
// registers the resulting record, per-column bounds, and zone maps.
func (ix *Indexer) IndexFile(ctx context.Context, path string) error {
	f, err := ix.store.Open(ctx, path)
	if err != nil {
		return err
	}
	defer f.Close()

	rec := &FileRecord{Path: path, SizeBytes: f.Size()}
	for b := 0; b < f.BlockCount(); b++ {
		rec.RowCount += f.BlockRows(b)
	}

	columns := f.ScalarColumns()
	stats, err := fileColumnStats(ctx, f, columns)
	if err != nil {
		return err
	}
	zoneMaps, err := buildZoneMaps(ctx, f, columns, rec.RowCount)
	if err != nil {
		return err
	}
	return ix.catalog.RegisterFile(ctx, rec, stats, zoneMaps)
}

// fileColumnStats folds block bounds into one [min, max] per column, the
// way the aggregate evaluator folds across files: empty blocks contribute
// nothing, and a column whose blocks are all empty gets absent bounds.
func fileColumnStats(ctx context.Context, f *store.File, columns []string) ([]ColumnStat, error) {
	out := make([]ColumnStat, 0, len(columns))
	for _, column := range columns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		st := ColumnStat{Column: column}
		for b := 0; b < f.BlockCount(); b++ {
			bounds, ok := f.ColumnStats(b, column)
			if !ok {
				break
			}
			st.NullCount += bounds.NullCount
			if bounds.Empty {
				continue
			}
			st.Kind = bounds.Min.Kind()
			if !st.Min.IsValid() {
				st.Min, st.Max = bounds.Min, bounds.Max
				continue
			}
			if cmp, err := value.Compare(bounds.Min, st.Min); err == nil && cmp < 0 {
				st.Min = bounds.Min
			}
			if cmp, err := value.Compare(bounds.Max, st.Max); err == nil && cmp > 0 {
				st.Max = bounds.Max
			}
		}
		out = append(out, st)
	}
	return out, nil
}

// buildZoneMaps scans every column once and hashes each present value into
// that column's bloom filter.
func buildZoneMaps(ctx context.Context, f *store.File, columns []string, rowCount int64) (map[string]*bloom.Filter, error) {
	expected := int(rowCount)
	if expected <= 0 {
		expected = 1
	}
	filters := make(map[string]*bloom.Filter, len(columns))
	for _, c := range columns {
		filters[c] = bloom.New(expected, zoneMapFPR)
	}

	for b := 0; b < f.BlockCount(); b++ {
		err := f.Scan(ctx, b, columns, func(row filter.Row) error {
			for _, c := range columns {
				if v, ok := row.Value(c); ok {
					filters[c].Add(zoneMapItem(v))
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return filters, nil
}
