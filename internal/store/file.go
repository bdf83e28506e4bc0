package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/parqstat/parqstat/internal/errors"
	"github.com/parqstat/parqstat/pkg/filter"
	"github.com/parqstat/parqstat/pkg/value"
)

// File is one open parquet file. It exposes footer-level block statistics
// and column-projected scans; it never caches anything across calls.
type File struct {
	path    string
	pf      *parquet.File
	src     *os.File
	scratch string // non-empty when src is a downloaded temp file
}

func openLocal(path, scratch string) (*File, error) {
	src, err := os.Open(path)
	if err != nil {
		return nil, errors.NewStorageError(errors.CodeOpenFailed,
			fmt.Sprintf("cannot open %s", path), err)
	}
	info, err := src.Stat()
	if err != nil {
		src.Close()
		return nil, errors.NewStorageError(errors.CodeOpenFailed,
			fmt.Sprintf("cannot stat %s", path), err)
	}
	pf, err := parquet.OpenFile(src, info.Size())
	if err != nil {
		src.Close()
		return nil, errors.NewStorageError(errors.CodeOpenFailed,
			fmt.Sprintf("cannot read parquet footer of %s", path), err)
	}
	return &File{path: path, pf: pf, src: src, scratch: scratch}, nil
}

// Path returns the path the file was opened from (the s3:// URI for
// downloaded objects, not the scratch location).
func (f *File) Path() string { return f.path }

// Size returns the file size in bytes.
func (f *File) Size() int64 { return f.pf.Size() }

// Close releases the read handle and deletes any scratch download.
func (f *File) Close() error {
	err := f.src.Close()
	if f.scratch != "" {
		if rmErr := os.Remove(f.scratch); err == nil {
			err = rmErr
		}
	}
	return err
}

// BlockCount returns the number of row groups.
func (f *File) BlockCount() int { return len(f.pf.RowGroups()) }

// BlockRows returns the row count of one row group.
func (f *File) BlockRows(block int) int64 {
	return f.pf.RowGroups()[block].NumRows()
}

// Columns returns the dotted paths of all leaf columns in schema order.
func (f *File) Columns() []string {
	cols := f.pf.Schema().Columns()
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = strings.Join(c, ".")
	}
	return out
}

// ScalarColumns returns the dotted paths of the non-repeated leaf columns,
// the ones dotted-path resolution and scans support.
func (f *File) ScalarColumns() []string {
	var out []string
	for _, c := range f.Columns() {
		if leaf, ok := f.lookup(c); ok && leaf.MaxRepetitionLevel == 0 {
			out = append(out, c)
		}
	}
	return out
}

// lookup resolves a dotted column path to its leaf column. Resolution is
// case-sensitive; a missing path reports ok=false, never an error.
func (f *File) lookup(column string) (parquet.LeafColumn, bool) {
	leaf, ok := f.pf.Schema().Lookup(strings.Split(column, ".")...)
	return leaf, ok
}

// HasColumn reports whether the dotted path resolves in this file's schema.
func (f *File) HasColumn(column string) bool {
	_, ok := f.lookup(column)
	return ok
}

// ColumnStats returns one row group's statistics for a leaf column.
// ok=false means the column is not in the schema. Bounds the store did not
// record, or physical types this layer has no variant for (Int96), yield
// Empty statistics: uninformative, usable neither for pruning nor answers.
func (f *File) ColumnStats(block int, column string) (filter.ColumnBounds, bool) {
	leaf, ok := f.lookup(column)
	if !ok {
		return filter.ColumnBounds{}, false
	}
	rg := f.pf.RowGroups()[block]
	chunk := rg.ColumnChunks()[leaf.ColumnIndex]
	bounds := filter.ColumnBounds{RowCount: rg.NumRows(), Empty: true}

	fcc, ok := chunk.(*parquet.FileColumnChunk)
	if !ok {
		return bounds, true
	}
	bounds.NullCount = fcc.NullCount()
	min, max, ok := fcc.Bounds()
	if !ok {
		return bounds, true
	}
	rawMin, okMin := rawFromParquet(min)
	rawMax, okMax := rawFromParquet(max)
	if !okMin || !okMax {
		return bounds, true
	}
	bounds.Min = rawMin
	bounds.Max = rawMax
	bounds.Empty = false
	return bounds, true
}

// blockView adapts one row group's statistics to the filter skip test.
type blockView struct {
	f     *File
	block int
}

func (v blockView) Bounds(column string) (filter.ColumnBounds, bool) {
	return v.f.ColumnStats(v.block, column)
}

// BlockView returns the statistics view of one row group for block pruning.
func (f *File) BlockView(block int) filter.BlockView {
	return blockView{f: f, block: block}
}

// Row is a scanned row restricted to the requested columns. Absent values
// (null, or column missing from the schema) are simply not present.
type Row struct {
	columns []string
	values  []value.Raw // KindInvalid marks absence
}

// Value implements filter.Row.
func (r Row) Value(column string) (value.Raw, bool) {
	for i, c := range r.columns {
		if c == column {
			v := r.values[i]
			return v, v.IsValid()
		}
	}
	return value.Raw{}, false
}

// Scan decodes one row group, materializing only the requested columns, and
// calls fn for every row in the store's natural order. Columns missing from
// the schema are permitted and yield absent values. fn returning an error
// aborts the scan.
func (f *File) Scan(ctx context.Context, block int, columns []string, fn func(filter.Row) error) error {
	nRows := f.pf.RowGroups()[block].NumRows()
	cells := make([][]value.Raw, len(columns))
	for i, col := range columns {
		vals, err := f.readColumn(ctx, block, col, nRows)
		if err != nil {
			return err
		}
		cells[i] = vals
	}

	row := Row{columns: columns, values: make([]value.Raw, len(columns))}
	for r := int64(0); r < nRows; r++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := range columns {
			if cells[i] == nil {
				row.values[i] = value.Raw{}
			} else {
				row.values[i] = cells[i][r]
			}
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

// readColumn materializes one leaf column of a row group, one slot per row,
// with invalid Raw marking nulls. A nil slice means the column is absent
// from the schema entirely.
func (f *File) readColumn(ctx context.Context, block int, column string, nRows int64) ([]value.Raw, error) {
	leaf, ok := f.lookup(column)
	if !ok {
		return nil, nil
	}
	if leaf.MaxRepetitionLevel > 0 {
		return nil, errors.NewDecodeError(errors.CodeUnsupportedType,
			fmt.Sprintf("column %s is repeated; dotted paths resolve scalar leaves only", column))
	}

	chunk := f.pf.RowGroups()[block].ColumnChunks()[leaf.ColumnIndex]
	pages := chunk.Pages()
	defer pages.Close()

	out := make([]value.Raw, 0, nRows)
	buf := make([]parquet.Value, 256)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := pages.ReadPage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewStorageError(errors.CodeOpenFailed,
				fmt.Sprintf("cannot read page of column %s in %s", column, f.path), err)
		}
		reader := page.Values()
		for {
			n, err := reader.ReadValues(buf)
			for _, pv := range buf[:n] {
				raw, _ := rawFromParquet(pv)
				out = append(out, raw)
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, errors.NewStorageError(errors.CodeOpenFailed,
					fmt.Sprintf("cannot decode column %s in %s", column, f.path), err)
			}
		}
	}
	if int64(len(out)) != nRows {
		return nil, errors.NewDecodeError(errors.CodeCorruptValue,
			fmt.Sprintf("column %s in %s decoded %d values for %d rows", column, f.path, len(out), nRows))
	}
	return out, nil
}

// rawFromParquet converts a parquet value to the raw union. Nulls and
// physical types without a variant (Int96) report ok=false. Byte sequences
// are copied: page buffers are reused once the reader advances.
func rawFromParquet(v parquet.Value) (value.Raw, bool) {
	if v.IsNull() {
		return value.Raw{}, false
	}
	switch v.Kind() {
	case parquet.Boolean:
		return value.BoolValue(v.Boolean()), true
	case parquet.Int32:
		return value.Int32Value(v.Int32()), true
	case parquet.Int64:
		return value.Int64Value(v.Int64()), true
	case parquet.Float:
		return value.FloatValue(v.Float()), true
	case parquet.Double:
		return value.DoubleValue(v.Double()), true
	case parquet.ByteArray, parquet.FixedLenByteArray:
		b := v.ByteArray()
		cp := make([]byte, len(b))
		copy(cp, b)
		return value.BytesValue(cp), true
	default:
		return value.Raw{}, false
	}
}
