// Package store provides read-only access to the columnar store: resolving
// a path to its constituent parquet files, opening them, exposing per-block
// (row group) column statistics, and column-projected row scans.
//
// Files may live on the local filesystem or in S3 (s3://bucket/prefix). S3
// objects are downloaded to a scratch file before reading; the scratch file
// lives only as long as the returned File.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/parqstat/parqstat/internal/errors"
)

// ParquetSuffix is the filename suffix directory resolution selects.
const ParquetSuffix = ".parquet"

// Config holds store-connection configuration.
type Config struct {
	// ScratchDir receives temporary downloads of remote objects.
	// Empty means the OS temp directory.
	ScratchDir string

	// S3 configures the S3 backend; nil disables s3:// paths.
	S3 *S3Config
}

// Store resolves paths and opens parquet files.
type Store struct {
	cfg Config

	mu sync.Mutex
	s3 *s3Backend
}

// NewStore creates a store for the given configuration. The S3 client is
// only constructed when an s3:// path is first used.
func NewStore(cfg Config) *Store {
	return &Store{cfg: cfg}
}

// Resolve expands path into the ordered list of parquet files it denotes:
// a file resolves to itself, a directory to its *.parquet entries in name
// order, and an s3:// prefix to the matching object keys.
func (s *Store) Resolve(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if isS3Path(path) {
		return s.resolveS3(ctx, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.NewStorageError(errors.CodeObjectNotFound,
			fmt.Sprintf("cannot stat %s", path), err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.NewStorageError(errors.CodeListFailed,
			fmt.Sprintf("cannot list %s", path), err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ParquetSuffix) {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Open opens a single resolved file for reading. The returned File holds an
// open handle (and possibly a scratch download) until Close.
func (s *Store) Open(ctx context.Context, path string) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if isS3Path(path) {
		return s.openS3(ctx, path)
	}
	return openLocal(path, "")
}

func isS3Path(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// splitS3Path splits "s3://bucket/key" into bucket and key.
func splitS3Path(path string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(path, "s3://")
	i := strings.IndexByte(rest, '/')
	if i <= 0 {
		return "", "", errors.NewValidationError(errors.CodeInvalidPath,
			fmt.Sprintf("malformed S3 path %q", path))
	}
	return rest[:i], rest[i+1:], nil
}

func (s *Store) resolveS3(ctx context.Context, path string) ([]string, error) {
	backend, err := s.s3Backend(ctx)
	if err != nil {
		return nil, err
	}
	bucket, key, err := splitS3Path(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(key, ParquetSuffix) {
		return []string{path}, nil
	}
	keys, err := backend.List(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, k := range keys {
		if strings.HasSuffix(k, ParquetSuffix) {
			files = append(files, "s3://"+bucket+"/"+k)
		}
	}
	sort.Strings(files)
	return files, nil
}

func (s *Store) openS3(ctx context.Context, path string) (*File, error) {
	backend, err := s.s3Backend(ctx)
	if err != nil {
		return nil, err
	}
	bucket, key, err := splitS3Path(path)
	if err != nil {
		return nil, err
	}

	scratch, err := os.CreateTemp(s.cfg.ScratchDir, "parqstat-*"+ParquetSuffix)
	if err != nil {
		return nil, errors.NewStorageError(errors.CodeDownloadFailed,
			"cannot create scratch file", err)
	}
	scratchPath := scratch.Name()
	if err := backend.Download(ctx, bucket, key, scratch); err != nil {
		scratch.Close()
		os.Remove(scratchPath)
		return nil, err
	}
	if err := scratch.Close(); err != nil {
		os.Remove(scratchPath)
		return nil, errors.NewStorageError(errors.CodeDownloadFailed,
			fmt.Sprintf("cannot finish download of %s", path), err)
	}

	f, err := openLocal(scratchPath, scratchPath)
	if err != nil {
		os.Remove(scratchPath)
		return nil, err
	}
	f.path = path
	return f, nil
}

func (s *Store) s3Backend(ctx context.Context) (*s3Backend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.s3 != nil {
		return s.s3, nil
	}
	if s.cfg.S3 == nil {
		return nil, errors.NewValidationError(errors.CodeInvalidConfig,
			"s3:// path used but no S3 configuration supplied")
	}
	backend, err := newS3Backend(ctx, *s.cfg.S3)
	if err != nil {
		return nil, err
	}
	s.s3 = backend
	return s.s3, nil
}
