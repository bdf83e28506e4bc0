package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parqstat/parqstat/internal/errors"
	"github.com/parqstat/parqstat/pkg/filter"
	"github.com/parqstat/parqstat/pkg/value"
)

// event is the row shape the fixtures use. Tags is a repeated leaf; Opt is
// optional and null for odd rows unless set.
type event struct {
	Idx   int64    `parquet:"idx"`
	Name  string   `parquet:"name"`
	Score float64  `parquet:"score"`
	Flag  bool     `parquet:"flag"`
	Opt   *int64   `parquet:"opt,optional"`
	Tags  []string `parquet:"tags"`
}

// writeEvents writes one parquet file with one row group per slice.
func writeEvents(t *testing.T, path string, groups ...[]event) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w := parquet.NewGenericWriter[event](f)
	for _, g := range groups {
		_, err := w.Write(g)
		require.NoError(t, err)
		require.NoError(t, w.Flush())
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

// makeEvents builds n rows with idx starting at base. Opt is set to idx for
// even rows and null for odd ones.
func makeEvents(base, n int64) []event {
	out := make([]event, 0, n)
	for i := int64(0); i < n; i++ {
		idx := base + i
		e := event{
			Idx:   idx,
			Name:  fmt.Sprintf("name-%04d", idx),
			Score: float64(idx) / 2,
			Flag:  idx%2 == 0,
			Tags:  []string{"a", "b"},
		}
		if idx%2 == 0 {
			v := idx
			e.Opt = &v
		}
		out = append(out, e)
	}
	return out
}

func openFixture(t *testing.T, groups ...[]event) *File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.parquet")
	writeEvents(t, path, groups...)
	f, err := openLocal(path, "")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestFileBlocks(t *testing.T) {
	f := openFixture(t, makeEvents(0, 10), makeEvents(100, 5))

	assert.Equal(t, 2, f.BlockCount())
	assert.Equal(t, int64(10), f.BlockRows(0))
	assert.Equal(t, int64(5), f.BlockRows(1))
}

func TestFileColumns(t *testing.T) {
	f := openFixture(t, makeEvents(0, 4))

	cols := f.Columns()
	assert.Contains(t, cols, "idx")
	assert.Contains(t, cols, "opt")
	assert.Contains(t, cols, "tags")

	scalar := f.ScalarColumns()
	assert.Contains(t, scalar, "idx")
	assert.Contains(t, scalar, "opt")
	assert.NotContains(t, scalar, "tags")

	assert.True(t, f.HasColumn("idx"))
	assert.False(t, f.HasColumn("Idx"))
	assert.False(t, f.HasColumn("nope"))
}

func TestColumnStats(t *testing.T) {
	f := openFixture(t, makeEvents(0, 10), makeEvents(100, 5))

	b, ok := f.ColumnStats(0, "idx")
	require.True(t, ok)
	require.False(t, b.Empty)
	assert.Equal(t, int64(0), b.Min.Int64())
	assert.Equal(t, int64(9), b.Max.Int64())
	assert.Equal(t, int64(10), b.RowCount)

	b, ok = f.ColumnStats(1, "idx")
	require.True(t, ok)
	require.False(t, b.Empty)
	assert.Equal(t, int64(100), b.Min.Int64())
	assert.Equal(t, int64(104), b.Max.Int64())

	b, ok = f.ColumnStats(0, "name")
	require.True(t, ok)
	require.False(t, b.Empty)
	assert.Equal(t, "name-0000", string(b.Min.Bytes()))
	assert.Equal(t, "name-0009", string(b.Max.Bytes()))

	_, ok = f.ColumnStats(0, "nope")
	assert.False(t, ok)
}

func TestColumnStatsAllNull(t *testing.T) {
	// A block where opt is always null has no usable bounds.
	f := openFixture(t, makeEvents(1, 1), makeEvents(3, 1))

	b, ok := f.ColumnStats(0, "opt")
	require.True(t, ok)
	assert.True(t, b.Empty)
	assert.Equal(t, int64(1), b.NullCount)
}

func TestScan(t *testing.T) {
	f := openFixture(t, makeEvents(0, 10))

	var got []int64
	err := f.Scan(context.Background(), 0, []string{"idx", "name"}, func(row filter.Row) error {
		v, ok := row.Value("idx")
		require.True(t, ok)
		got = append(got, v.Int64())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestScanNullsAreAbsent(t *testing.T) {
	f := openFixture(t, makeEvents(0, 6))

	var present []int64
	err := f.Scan(context.Background(), 0, []string{"idx", "opt"}, func(row filter.Row) error {
		if v, ok := row.Value("opt"); ok {
			present = append(present, v.Int64())
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 2, 4}, present)
}

func TestScanUnknownColumn(t *testing.T) {
	f := openFixture(t, makeEvents(0, 3))

	rows := 0
	err := f.Scan(context.Background(), 0, []string{"idx", "nope"}, func(row filter.Row) error {
		rows++
		_, ok := row.Value("nope")
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, rows)
}

func TestScanRepeatedColumnFails(t *testing.T) {
	f := openFixture(t, makeEvents(0, 3))

	err := f.Scan(context.Background(), 0, []string{"tags"}, func(filter.Row) error { return nil })
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnsupportedType, errors.GetCode(err))
}

func TestScanCancelled(t *testing.T) {
	f := openFixture(t, makeEvents(0, 3))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := f.Scan(ctx, 0, []string{"idx"}, func(filter.Row) error { return nil })
	require.Error(t, err)
}

func TestBlockViewPruning(t *testing.T) {
	f := openFixture(t, makeEvents(0, 10), makeEvents(100, 5))

	// Block 0 holds idx 0..9, block 1 holds idx 100..104.
	pred := filter.Gt("idx", value.Int64Value(50))
	assert.True(t, filter.CanSkipBlock(pred, f.BlockView(0)))
	assert.False(t, filter.CanSkipBlock(pred, f.BlockView(1)))
}
