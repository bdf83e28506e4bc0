// Package catalog maintains a SQLite index over parquet files: per-file row
// counts and column min/max statistics, plus bloom-filter zone maps for
// membership pruning. It is populated offline by the indexer binary and
// queried by tooling; the statistics evaluators never read it, because
// their answers must come from the files themselves.
package catalog

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/parqstat/parqstat/internal/bloom"
	"github.com/parqstat/parqstat/internal/errors"
	"github.com/parqstat/parqstat/pkg/value"
)

// FileRecord describes one indexed parquet file.
type FileRecord struct {
	FileID       string
	Path         string
	RowCount     int64
	SizeBytes    int64
	RegisteredAt time.Time
}

// ColumnStat is one file's aggregated statistics for one leaf column.
// Min and Max are invalid when the file recorded no usable bounds.
type ColumnStat struct {
	Column    string
	Kind      value.Kind
	Min       value.Raw
	Max       value.Raw
	NullCount int64
}

// Catalog is the SQLite-backed file index.
type Catalog struct {
	mu sync.Mutex
	db *sql.DB
}

// NewCatalog opens (creating if necessary) the catalog database at path.
func NewCatalog(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.NewCatalogError(errors.CodeQueryFailed,
			"failed to open catalog database", err)
	}
	c := &Catalog{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close releases the database handle.
func (c *Catalog) Close() error { return c.db.Close() }

func (c *Catalog) migrate() error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS files (
			file_id       TEXT PRIMARY KEY,
			path          TEXT UNIQUE NOT NULL,
			row_count     INTEGER NOT NULL,
			size_bytes    INTEGER NOT NULL,
			registered_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS file_stats (
			file_id     TEXT NOT NULL,
			column_name TEXT NOT NULL,
			kind        TEXT NOT NULL,
			min_value   BLOB,
			max_value   BLOB,
			null_count  INTEGER NOT NULL,
			PRIMARY KEY (file_id, column_name)
		)`,
		`CREATE TABLE IF NOT EXISTS zone_maps (
			file_id     TEXT NOT NULL,
			column_name TEXT NOT NULL,
			bloom_data  BLOB NOT NULL,
			item_count  INTEGER NOT NULL,
			PRIMARY KEY (file_id, column_name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_file_stats_column ON file_stats(column_name)`,
	}
	for _, stmt := range ddl {
		if _, err := c.db.Exec(stmt); err != nil {
			return errors.NewCatalogError(errors.CodeQueryFailed,
				"failed to create catalog schema", err)
		}
	}
	return nil
}

// RegisterFile records a file, its column statistics, and its zone maps,
// replacing any previous registration of the same path.
func (c *Catalog) RegisterFile(ctx context.Context, rec *FileRecord, stats []ColumnStat, zoneMaps map[string]*bloom.Filter) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rec.FileID == "" {
		rec.FileID = uuid.NewString()
	}
	if rec.RegisteredAt.IsZero() {
		rec.RegisteredAt = time.Now()
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewCatalogError(errors.CodeRegisterFailed,
			"failed to begin transaction", err)
	}
	defer tx.Rollback()

	// Drop any prior registration of this path.
	var oldID string
	err = tx.QueryRowContext(ctx, "SELECT file_id FROM files WHERE path = ?", rec.Path).Scan(&oldID)
	if err == nil {
		for _, table := range []string{"files", "file_stats", "zone_maps"} {
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf("DELETE FROM %s WHERE file_id = ?", table), oldID); err != nil {
				return errors.NewCatalogError(errors.CodeRegisterFailed,
					"failed to replace prior registration", err)
			}
		}
	} else if err != sql.ErrNoRows {
		return errors.NewCatalogError(errors.CodeRegisterFailed,
			"failed to look up prior registration", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO files (file_id, path, row_count, size_bytes, registered_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.FileID, rec.Path, rec.RowCount, rec.SizeBytes, rec.RegisteredAt.Unix())
	if err != nil {
		return errors.NewCatalogError(errors.CodeRegisterFailed,
			fmt.Sprintf("failed to register %s", rec.Path), err)
	}

	for _, st := range stats {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO file_stats (file_id, column_name, kind, min_value, max_value, null_count)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rec.FileID, st.Column, st.Kind.String(),
			rawBlob(st.Min), rawBlob(st.Max), st.NullCount)
		if err != nil {
			return errors.NewCatalogError(errors.CodeRegisterFailed,
				fmt.Sprintf("failed to register stats for %s/%s", rec.Path, st.Column), err)
		}
	}

	for column, bf := range zoneMaps {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO zone_maps (file_id, column_name, bloom_data, item_count)
			 VALUES (?, ?, ?, ?)`,
			rec.FileID, column, bf.Marshal(), int64(bf.Count()))
		if err != nil {
			return errors.NewCatalogError(errors.CodeRegisterFailed,
				fmt.Sprintf("failed to register zone map for %s/%s", rec.Path, column), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewCatalogError(errors.CodeRegisterFailed,
			"failed to commit registration", err)
	}
	return nil
}

// ListFiles returns every registered file ordered by path.
func (c *Catalog) ListFiles(ctx context.Context) ([]*FileRecord, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT file_id, path, row_count, size_bytes, registered_at
		 FROM files ORDER BY path`)
	if err != nil {
		return nil, errors.NewCatalogError(errors.CodeQueryFailed,
			"failed to list files", err)
	}
	defer rows.Close()
	return scanFileRecords(rows)
}

// GetFileStats returns one file's column statistics, keyed by column.
func (c *Catalog) GetFileStats(ctx context.Context, path string) (map[string]ColumnStat, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT s.column_name, s.kind, s.min_value, s.max_value, s.null_count
		 FROM file_stats s JOIN files f ON f.file_id = s.file_id
		 WHERE f.path = ?`, path)
	if err != nil {
		return nil, errors.NewCatalogError(errors.CodeQueryFailed,
			fmt.Sprintf("failed to load stats for %s", path), err)
	}
	defer rows.Close()

	out := make(map[string]ColumnStat)
	for rows.Next() {
		var st ColumnStat
		var kind string
		var minBlob, maxBlob []byte
		if err := rows.Scan(&st.Column, &kind, &minBlob, &maxBlob, &st.NullCount); err != nil {
			return nil, errors.NewCatalogError(errors.CodeQueryFailed,
				"failed to scan stats row", err)
		}
		st.Kind = value.KindFromString(kind)
		st.Min = blobRaw(st.Kind, minBlob)
		st.Max = blobRaw(st.Kind, maxBlob)
		out[st.Column] = st
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewCatalogError(errors.CodeQueryFailed,
			"error iterating stats rows", err)
	}
	return out, nil
}

// PruneByRange returns files whose recorded [min, max] for the column
// overlaps [lo, hi]. Files with no recorded bounds for the column are
// included: absent statistics must never exclude a file. Comparison happens
// here rather than in SQL because bounds are stored as raw blobs.
func (c *Catalog) PruneByRange(ctx context.Context, column string, lo, hi value.Raw) ([]*FileRecord, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT f.file_id, f.path, f.row_count, f.size_bytes, f.registered_at,
		        s.kind, s.min_value, s.max_value
		 FROM files f
		 LEFT JOIN file_stats s ON s.file_id = f.file_id AND s.column_name = ?
		 ORDER BY f.path`, column)
	if err != nil {
		return nil, errors.NewCatalogError(errors.CodeQueryFailed,
			"failed to query range pruning", err)
	}
	defer rows.Close()

	var out []*FileRecord
	for rows.Next() {
		var rec FileRecord
		var registeredAt int64
		var kind sql.NullString
		var minBlob, maxBlob []byte
		if err := rows.Scan(&rec.FileID, &rec.Path, &rec.RowCount, &rec.SizeBytes,
			&registeredAt, &kind, &minBlob, &maxBlob); err != nil {
			return nil, errors.NewCatalogError(errors.CodeQueryFailed,
				"failed to scan pruning row", err)
		}
		rec.RegisteredAt = time.Unix(registeredAt, 0)

		if !kind.Valid || minBlob == nil || maxBlob == nil {
			out = append(out, &rec)
			continue
		}
		k := value.KindFromString(kind.String)
		min, max := blobRaw(k, minBlob), blobRaw(k, maxBlob)
		overlaps, err := rangesOverlap(min, max, lo, hi)
		if err != nil || overlaps {
			// Incomparable bounds prove nothing; keep the file.
			out = append(out, &rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewCatalogError(errors.CodeQueryFailed,
			"error iterating pruning rows", err)
	}
	return out, nil
}

// PruneByMembership returns files whose zone map for the column might
// contain the value. Files without a zone map for the column are included.
func (c *Catalog) PruneByMembership(ctx context.Context, column string, v value.Raw) ([]*FileRecord, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT f.file_id, f.path, f.row_count, f.size_bytes, f.registered_at, z.bloom_data
		 FROM files f
		 LEFT JOIN zone_maps z ON z.file_id = f.file_id AND z.column_name = ?
		 ORDER BY f.path`, column)
	if err != nil {
		return nil, errors.NewCatalogError(errors.CodeQueryFailed,
			"failed to query membership pruning", err)
	}
	defer rows.Close()

	item := zoneMapItem(v)
	var out []*FileRecord
	for rows.Next() {
		var rec FileRecord
		var registeredAt int64
		var blob []byte
		if err := rows.Scan(&rec.FileID, &rec.Path, &rec.RowCount, &rec.SizeBytes,
			&registeredAt, &blob); err != nil {
			return nil, errors.NewCatalogError(errors.CodeQueryFailed,
				"failed to scan membership row", err)
		}
		rec.RegisteredAt = time.Unix(registeredAt, 0)

		if blob == nil {
			out = append(out, &rec)
			continue
		}
		bf, err := bloom.Unmarshal(blob)
		if err != nil {
			// A corrupt filter must not hide a file.
			out = append(out, &rec)
			continue
		}
		if bf.Contains(item) {
			out = append(out, &rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewCatalogError(errors.CodeQueryFailed,
			"error iterating membership rows", err)
	}
	return out, nil
}

func scanFileRecords(rows *sql.Rows) ([]*FileRecord, error) {
	var out []*FileRecord
	for rows.Next() {
		var rec FileRecord
		var registeredAt int64
		if err := rows.Scan(&rec.FileID, &rec.Path, &rec.RowCount,
			&rec.SizeBytes, &registeredAt); err != nil {
			return nil, errors.NewCatalogError(errors.CodeQueryFailed,
				"failed to scan file record", err)
		}
		rec.RegisteredAt = time.Unix(registeredAt, 0)
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewCatalogError(errors.CodeQueryFailed,
			"error iterating file records", err)
	}
	return out, nil
}

// rangesOverlap reports whether [aMin, aMax] intersects [bMin, bMax].
func rangesOverlap(aMin, aMax, bMin, bMax value.Raw) (bool, error) {
	c1, err := value.Compare(aMin, bMax)
	if err != nil {
		return false, err
	}
	c2, err := value.Compare(aMax, bMin)
	if err != nil {
		return false, err
	}
	return c1 <= 0 && c2 >= 0, nil
}

// rawBlob encodes a raw value for BLOB storage; nil marks absent bounds.
func rawBlob(r value.Raw) []byte {
	switch r.Kind() {
	case value.KindInt64:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(r.Int64()))
		return b
	case value.KindInt32:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(r.Int32()))
		return b
	case value.KindBoolean:
		if r.Bool() {
			return []byte{1}
		}
		return []byte{0}
	case value.KindDouble:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, math.Float64bits(r.Double()))
		return b
	case value.KindFloat:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, math.Float32bits(r.Float()))
		return b
	case value.KindByteArray:
		return r.Bytes()
	default:
		return nil
	}
}

// blobRaw is rawBlob's inverse; malformed blobs yield an invalid Raw.
func blobRaw(kind value.Kind, blob []byte) value.Raw {
	switch kind {
	case value.KindInt64:
		if len(blob) != 8 {
			return value.Raw{}
		}
		return value.Int64Value(int64(binary.LittleEndian.Uint64(blob)))
	case value.KindInt32:
		if len(blob) != 4 {
			return value.Raw{}
		}
		return value.Int32Value(int32(binary.LittleEndian.Uint32(blob)))
	case value.KindBoolean:
		if len(blob) != 1 {
			return value.Raw{}
		}
		return value.BoolValue(blob[0] != 0)
	case value.KindDouble:
		if len(blob) != 8 {
			return value.Raw{}
		}
		return value.DoubleValue(math.Float64frombits(binary.LittleEndian.Uint64(blob)))
	case value.KindFloat:
		if len(blob) != 4 {
			return value.Raw{}
		}
		return value.FloatValue(math.Float32frombits(binary.LittleEndian.Uint32(blob)))
	case value.KindByteArray:
		if blob == nil {
			return value.Raw{}
		}
		return value.BytesValue(blob)
	default:
		return value.Raw{}
	}
}

// zoneMapItem returns the canonical byte form a value hashes as.
func zoneMapItem(v value.Raw) []byte {
	if v.Kind() == value.KindByteArray {
		return v.Bytes()
	}
	return rawBlob(v)
}
