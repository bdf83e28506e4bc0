package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parqstat/parqstat/internal/bloom"
	"github.com/parqstat/parqstat/pkg/value"
)

func openCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func registerTestFile(t *testing.T, c *Catalog, path string, lo, hi int64, names ...string) {
	t.Helper()
	bf := bloom.New(len(names)+1, 0.01)
	for _, n := range names {
		bf.Add(zoneMapItem(value.StringValue(n)))
	}
	err := c.RegisterFile(context.Background(),
		&FileRecord{Path: path, RowCount: hi - lo + 1, SizeBytes: 1 << 20},
		[]ColumnStat{
			{Column: "idx", Kind: value.KindInt64, Min: value.Int64Value(lo), Max: value.Int64Value(hi)},
		},
		map[string]*bloom.Filter{"name": bf})
	require.NoError(t, err)
}

func TestRegisterAndList(t *testing.T) {
	c := openCatalog(t)
	registerTestFile(t, c, "/data/b.parquet", 100, 199)
	registerTestFile(t, c, "/data/a.parquet", 0, 99)

	files, err := c.ListFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "/data/a.parquet", files[0].Path)
	assert.Equal(t, "/data/b.parquet", files[1].Path)
	assert.Equal(t, int64(100), files[0].RowCount)
	assert.NotEmpty(t, files[0].FileID)
	assert.False(t, files[0].RegisteredAt.IsZero())
}

func TestRegisterReplacesSamePath(t *testing.T) {
	c := openCatalog(t)
	registerTestFile(t, c, "/data/a.parquet", 0, 99)
	registerTestFile(t, c, "/data/a.parquet", 0, 499)

	files, err := c.ListFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, int64(500), files[0].RowCount)
}

func TestGetFileStats(t *testing.T) {
	c := openCatalog(t)
	registerTestFile(t, c, "/data/a.parquet", 7, 42)

	stats, err := c.GetFileStats(context.Background(), "/data/a.parquet")
	require.NoError(t, err)
	st, ok := stats["idx"]
	require.True(t, ok)
	assert.Equal(t, value.KindInt64, st.Kind)
	assert.Equal(t, int64(7), st.Min.Int64())
	assert.Equal(t, int64(42), st.Max.Int64())
}

func TestPruneByRange(t *testing.T) {
	c := openCatalog(t)
	registerTestFile(t, c, "/data/a.parquet", 0, 99)
	registerTestFile(t, c, "/data/b.parquet", 100, 199)
	registerTestFile(t, c, "/data/c.parquet", 200, 299)
	ctx := context.Background()

	files, err := c.PruneByRange(ctx, "idx", value.Int64Value(150), value.Int64Value(250))
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "/data/b.parquet", files[0].Path)
	assert.Equal(t, "/data/c.parquet", files[1].Path)

	// Boundary overlap keeps the file.
	files, err = c.PruneByRange(ctx, "idx", value.Int64Value(99), value.Int64Value(99))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "/data/a.parquet", files[0].Path)

	// A range beyond every file prunes everything.
	files, err = c.PruneByRange(ctx, "idx", value.Int64Value(1000), value.Int64Value(2000))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestPruneByRangeMissingStatsKeepsFile(t *testing.T) {
	c := openCatalog(t)
	registerTestFile(t, c, "/data/a.parquet", 0, 99)

	// No file has stats for this column, so pruning must keep everything.
	files, err := c.PruneByRange(context.Background(), "other",
		value.Int64Value(10000), value.Int64Value(20000))
	require.NoError(t, err)
	require.Len(t, files, 1)
}

func TestPruneByMembership(t *testing.T) {
	c := openCatalog(t)
	registerTestFile(t, c, "/data/a.parquet", 0, 99, "alpha", "beta")
	registerTestFile(t, c, "/data/b.parquet", 100, 199, "gamma")
	ctx := context.Background()

	files, err := c.PruneByMembership(ctx, "name", value.StringValue("alpha"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "/data/a.parquet", files[0].Path)

	// A value in no zone map prunes everything (modulo false positives,
	// which two small filters will not produce for one probe).
	files, err = c.PruneByMembership(ctx, "name", value.StringValue("this-value-is-nowhere"))
	require.NoError(t, err)
	assert.Empty(t, files)

	// A column with no zone maps keeps every file.
	files, err = c.PruneByMembership(ctx, "score", value.StringValue("x"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestBlobRoundTrip(t *testing.T) {
	values := []value.Raw{
		value.Int64Value(-42),
		value.Int32Value(7),
		value.BoolValue(true),
		value.DoubleValue(2.75),
		value.FloatValue(-1.5),
		value.StringValue("hello"),
	}
	for _, v := range values {
		got := blobRaw(v.Kind(), rawBlob(v))
		cmp, err := value.Compare(v, got)
		require.NoError(t, err, "kind %s", v.Kind())
		assert.Equal(t, 0, cmp, "kind %s", v.Kind())
	}

	// Absent bounds round-trip to an invalid value.
	assert.Nil(t, rawBlob(value.Raw{}))
	assert.False(t, blobRaw(value.KindInt64, []byte{1, 2}).IsValid())
}
