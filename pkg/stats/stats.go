// Package stats is the entry point for computing aggregate statistics (row
// count, per-column min/max) over one or more parquet files, optionally
// restricted by a row-level filter.
//
// Opening a path builds an immutable Stats handle. When the filter is the
// no-op sentinel, answers come from footer-level block statistics alone;
// otherwise rows are decoded and tested, with whole blocks skipped whenever
// their recorded bounds prove that safe.
package stats

import (
	"context"
	"fmt"
	"sync"

	"github.com/parqstat/parqstat/internal/errors"
	"github.com/parqstat/parqstat/internal/evaluator"
	"github.com/parqstat/parqstat/internal/store"
	"github.com/parqstat/parqstat/pkg/filter"
	"github.com/parqstat/parqstat/pkg/value"
)

// S3Options configures access to s3:// paths.
type S3Options struct {
	Region       string
	Endpoint     string
	UsePathStyle bool
}

// Options holds store-connection configuration.
type Options struct {
	// ScratchDir receives temporary downloads of remote objects; empty
	// means the OS temp directory.
	ScratchDir string

	// S3 enables s3://bucket/prefix paths when non-nil.
	S3 *S3Options
}

func (o Options) storeConfig() store.Config {
	cfg := store.Config{ScratchDir: o.ScratchDir}
	if o.S3 != nil {
		cfg.S3 = &store.S3Config{
			Region:       o.S3.Region,
			Endpoint:     o.S3.Endpoint,
			UsePathStyle: o.S3.UsePathStyle,
		}
	}
	return cfg
}

// Stats is a live, re-evaluatable handle bound to a path, options, and
// filter. It is immutable after Open and safe for concurrent use: each call
// performs an independent scoped read of the underlying files. RecordCount
// is memoized once computed; Min and Max are recomputed per call, so
// callers needing repeated access to the same extremum should cache it.
type Stats struct {
	eval evaluator.Evaluator

	mu        sync.Mutex
	countOnce bool
	count     int64
}

// Open resolves path (a single parquet file, a directory, or an s3://
// prefix) and builds the evaluator tree for it. A nil filter means
// filter.Noop. The file set is fixed at Open time.
func Open(ctx context.Context, path string, opts Options, f filter.Filter) (*Stats, error) {
	return open(ctx, path, opts, f, nil)
}

// OpenWithProjection is Open with a projection restricting which columns
// filtered scans materialize. The projection must include every column the
// filter references; a narrower projection is a configuration error,
// reported here, before any file is scanned. Requesting Min or Max of a
// column outside the projection yields an absent result.
func OpenWithProjection(ctx context.Context, path string, opts Options, f filter.Filter, projection []string) (*Stats, error) {
	if projection == nil {
		projection = []string{}
	}
	return open(ctx, path, opts, f, projection)
}

func open(ctx context.Context, path string, opts Options, f filter.Filter, projection []string) (*Stats, error) {
	if f == nil {
		f = filter.Noop
	}
	if projection != nil {
		for _, col := range f.Columns() {
			if !contains(projection, col) {
				return nil, errors.NewValidationError(errors.CodeInvalidProjection,
					fmt.Sprintf("filter references column %s missing from projection", col))
			}
		}
	}

	st := store.NewStore(opts.storeConfig())
	files, err := st.Resolve(ctx, path)
	if err != nil {
		return nil, err
	}

	members := make([]evaluator.Evaluator, 0, len(files))
	for _, file := range files {
		if filter.IsNoop(f) {
			members = append(members, evaluator.NewFast(st, file))
		} else {
			members = append(members, evaluator.NewFiltered(st, file, f, projection))
		}
	}

	var eval evaluator.Evaluator
	if len(members) == 1 {
		eval = members[0]
	} else {
		eval = evaluator.NewAggregate(members)
	}
	return &Stats{eval: eval}, nil
}

// RecordCount returns the number of rows matching the filter across every
// resolved file. The first successful computation is memoized: the count
// does not depend on any per-call column or type, so repeated calls return
// the stored value without touching storage. A failed call memoizes
// nothing and the next call retries.
func (s *Stats) RecordCount(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countOnce {
		return s.count, nil
	}
	n, err := s.eval.RecordCount(ctx)
	if err != nil {
		return 0, err
	}
	s.count = n
	s.countOnce = true
	return n, nil
}

// Min computes the minimum of a column across every resolved file, decoded
// as T. The result is nil when no row contributes a value: the column
// resolves nowhere, every block's statistics are empty with no filter
// forcing a scan, or no row passes the filter. Unknown columns are not an
// error.
func Min[T any](ctx context.Context, s *Stats, column string, codec value.Codec[T]) (*T, error) {
	return extremum(ctx, s, column, evaluator.MinOf, codec)
}

// Max is Min's counterpart for the maximum.
func Max[T any](ctx context.Context, s *Stats, column string, codec value.Codec[T]) (*T, error) {
	return extremum(ctx, s, column, evaluator.MaxOf, codec)
}

func extremum[T any](ctx context.Context, s *Stats, column string, dir evaluator.Direction, codec value.Codec[T]) (*T, error) {
	raw, err := s.eval.Extremum(ctx, column, dir, codec.Ordering(), nil)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	v, err := codec.Decode(*raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func contains(cols []string, c string) bool {
	for _, have := range cols {
		if have == c {
			return true
		}
	}
	return false
}
