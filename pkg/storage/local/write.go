package local

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bert42/fileserver/pkg/fserrors"
)

// Write stores data at path and syncs it to stable storage.
//
// Parent directories are created with the configured DirMode. A non-nil
// offset on an existing file performs a positioned write without
// truncation; otherwise the file is created or truncated.
func (s *Store) Write(ctx context.Context, path string, data []byte, offset *uint64) (uint64, error) {
	// ========================================================================
	// Step 1: Check context before filesystem operation
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(path), s.cfg.DirMode); err != nil {
		return 0, mapError(err, path, "create parent directories failed")
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return 0, fserrors.New(fserrors.InvalidPath, "Path is a directory").WithPath(path)
	}

	// ========================================================================
	// Step 2: Open for positioned write or truncate
	// ========================================================================

	var (
		f   *os.File
		pos int64
		err error
	)
	if offset != nil && exists(path) {
		f, err = os.OpenFile(path, os.O_WRONLY, s.cfg.FileMode)
		pos = int64(*offset)
	} else {
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, s.cfg.FileMode)
	}
	if err != nil {
		return 0, mapError(err, path, "open for writing failed")
	}

	// ========================================================================
	// Step 3: Write and flush
	// ========================================================================

	if _, err := f.WriteAt(data, pos); err != nil {
		_ = f.Close()
		return 0, fserrors.Wrap(fserrors.Internal, err, "write failed").WithPath(path)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return 0, fserrors.Wrap(fserrors.Internal, err, "sync failed").WithPath(path)
	}
	if err := f.Close(); err != nil {
		return 0, fserrors.Wrap(fserrors.Internal, err, "close failed").WithPath(path)
	}

	return uint64(len(data)), nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
