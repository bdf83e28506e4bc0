package stats

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

// record is the row shape the fixtures use. Opt carries the row's idx for
// odd rows and is null otherwise.
type record struct {
	Idx   int64   `parquet:"idx"`
	Name  string  `parquet:"name"`
	Score float64 `parquet:"score"`
	Opt   *int64  `parquet:"opt,optional"`
}

func makeRecords(base, n int64) []record {
	out := make([]record, 0, n)
	for i := int64(0); i < n; i++ {
		idx := base + i
		r := record{
			Idx:   idx,
			Name:  fmt.Sprintf("name-%06d", idx),
			Score: float64(idx) / 4,
		}
		if idx%2 == 1 {
			v := idx
			r.Opt = &v
		}
		out = append(out, r)
	}
	return out
}

// writeRecords writes one parquet file with one row group per slice.
func writeRecords(t *testing.T, path string, groups ...[]record) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w := parquet.NewGenericWriter[record](f)
	for _, g := range groups {
		_, err := w.Write(g)
		require.NoError(t, err)
		require.NoError(t, w.Flush())
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

// writeDataset writes files files of rowsPerFile contiguous rows each into
// dir, four row groups per file.
func writeDataset(t *testing.T, dir string, files, rowsPerFile int64) {
	t.Helper()
	groupRows := rowsPerFile / 4
	for i := int64(0); i < files; i++ {
		base := i * rowsPerFile
		groups := make([][]record, 0, 4)
		for g := int64(0); g < 4; g++ {
			groups = append(groups, makeRecords(base+g*groupRows, groupRows))
		}
		writeRecords(t, filepath.Join(dir, fmt.Sprintf("part-%02d.parquet", i)), groups...)
	}
}

func TestRecordCountFastPath(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, 2, 1024)

	s, err := Open(context.Background(), dir, Options{}, nil)
	require.NoError(t, err)

	n, err := s.RecordCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2048), n)
}

func TestFilteredBandAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, 4, 16384)

	f := filter.And(
		filter.Gt("idx", value.Int64Value(16)),
		filter.Le("idx", value.Int64Value(116)),
	)
	s, err := Open(context.Background(), dir, Options{}, f)
	require.NoError(t, err)

	n, err := s.RecordCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(100), n)

	min, err := Min(context.Background(), s, "idx", value.Int64Codec{})
	require.NoError(t, err)
	require.NotNil(t, min)
	assert.Equal(t, int64(17), *min)

	max, err := Max(context.Background(), s, "idx", value.Int64Codec{})
	require.NoError(t, err)
	require.NotNil(t, max)
	assert.Equal(t, int64(116), *max)
}

func TestFastPathMinMaxMultiFile(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, 3, 512)

	s, err := Open(context.Background(), dir, Options{}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	min, err := Min(ctx, s, "idx", value.Int64Codec{})
	require.NoError(t, err)
	require.NotNil(t, min)
	assert.Equal(t, int64(0), *min)

	max, err := Max(ctx, s, "idx", value.Int64Codec{})
	require.NoError(t, err)
	require.NotNil(t, max)
	assert.Equal(t, int64(1535), *max)

	name, err := Min(ctx, s, "name", value.StringCodec{})
	require.NoError(t, err)
	require.NotNil(t, name)
	assert.Equal(t, "name-000000", *name)

	score, err := Max(ctx, s, "score", value.Float64Codec{})
	require.NoError(t, err)
	require.NotNil(t, score)
	assert.Equal(t, float64(1535)/4, *score)
}

func TestUnknownColumnIsAbsent(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, 1, 64)
	ctx := context.Background()

	for _, f := range []filter.Filter{nil, filter.Ge("idx", value.Int64Value(0))} {
		s, err := Open(ctx, dir, Options{}, f)
		require.NoError(t, err)

		min, err := Min(ctx, s, "nope", value.Int64Codec{})
		require.NoError(t, err)
		assert.Nil(t, min)

		max, err := Max(ctx, s, "nope", value.Int64Codec{})
		require.NoError(t, err)
		assert.Nil(t, max)
	}
}

func TestOptionalColumnSkipsNulls(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, 1, 256)

	// Only odd rows carry opt, so its filtered minimum is 1, not 0.
	f := filter.Ge("idx", value.Int64Value(0))
	s, err := Open(context.Background(), dir, Options{}, f)
	require.NoError(t, err)

	min, err := Min(context.Background(), s, "opt", value.Int64Codec{})
	require.NoError(t, err)
	require.NotNil(t, min)
	assert.Equal(t, int64(1), *min)

	max, err := Max(context.Background(), s, "opt", value.Int64Codec{})
	require.NoError(t, err)
	require.NotNil(t, max)
	assert.Equal(t, int64(255), *max)
}

func TestFastAndFilteredAgree(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, 2, 512)
	ctx := context.Background()

	fast, err := Open(ctx, dir, Options{}, nil)
	require.NoError(t, err)
	// A filter every row satisfies forces the scanning path.
	scanned, err := Open(ctx, dir, Options{}, filter.Ge("idx", value.Int64Value(0)))
	require.NoError(t, err)

	nFast, err := fast.RecordCount(ctx)
	require.NoError(t, err)
	nScanned, err := scanned.RecordCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, nFast, nScanned)

	minFast, err := Min(ctx, fast, "idx", value.Int64Codec{})
	require.NoError(t, err)
	minScanned, err := Min(ctx, scanned, "idx", value.Int64Codec{})
	require.NoError(t, err)
	require.NotNil(t, minFast)
	require.NotNil(t, minScanned)
	assert.Equal(t, *minFast, *minScanned)

	maxFast, err := Max(ctx, fast, "idx", value.Int64Codec{})
	require.NoError(t, err)
	maxScanned, err := Max(ctx, scanned, "idx", value.Int64Codec{})
	require.NoError(t, err)
	require.NotNil(t, maxFast)
	require.NotNil(t, maxScanned)
	assert.Equal(t, *maxFast, *maxScanned)
}

func TestRepeatedCallsAreStable(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, 2, 256)
	ctx := context.Background()

	s, err := Open(ctx, dir, Options{}, filter.Lt("idx", value.Int64Value(100)))
	require.NoError(t, err)

	n1, err := s.RecordCount(ctx)
	require.NoError(t, err)
	n2, err := s.RecordCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, n1, n2)

	m1, err := Min(ctx, s, "idx", value.Int64Codec{})
	require.NoError(t, err)
	m2, err := Min(ctx, s, "idx", value.Int64Codec{})
	require.NoError(t, err)
	require.NotNil(t, m1)
	require.NotNil(t, m2)
	assert.Equal(t, *m1, *m2)
}

func TestProjectionMustCoverFilter(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, 1, 64)

	f := filter.Gt("idx", value.Int64Value(5))
	_, err := OpenWithProjection(context.Background(), dir, Options{}, f, []string{"name"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidProjection, errors.GetCode(err))
}

func TestProjectionExcludesTarget(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, 1, 64)
	ctx := context.Background()

	f := filter.Gt("idx", value.Int64Value(5))
	s, err := OpenWithProjection(ctx, dir, Options{}, f, []string{"idx"})
	require.NoError(t, err)

	// score is outside the projection: scans never materialize it, so its
	// extremum is absent rather than an error.
	min, err := Min(ctx, s, "score", value.Float64Codec{})
	require.NoError(t, err)
	assert.Nil(t, min)

	// The projected column still answers.
	idxMin, err := Min(ctx, s, "idx", value.Int64Codec{})
	require.NoError(t, err)
	require.NotNil(t, idxMin)
	assert.Equal(t, int64(6), *idxMin)
}

func TestKindMismatchSurfacesAsError(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, 1, 64)

	s, err := Open(context.Background(), dir, Options{}, filter.Eq("idx", value.StringValue("7")))
	require.NoError(t, err)

	_, err = s.RecordCount(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeKindMismatch, errors.GetCode(err))
}

func TestEmptyFilterMatchSetYieldsNil(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, 1, 64)
	ctx := context.Background()

	s, err := Open(ctx, dir, Options{}, filter.Gt("idx", value.Int64Value(1000)))
	require.NoError(t, err)

	n, err := s.RecordCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	min, err := Min(ctx, s, "idx", value.Int64Codec{})
	require.NoError(t, err)
	assert.Nil(t, min)
}

func TestOpenMissingPath(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "nope"), Options{}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeObjectNotFound, errors.GetCode(err))
}

func TestSingleFilePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "one.parquet")
	writeRecords(t, path, makeRecords(0, 128))

	s, err := Open(context.Background(), path, Options{}, nil)
	require.NoError(t, err)

	n, err := s.RecordCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(128), n)
}
