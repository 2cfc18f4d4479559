// Package local implements storage.Store on the host filesystem.
package local

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bert42/fileserver/pkg/fserrors"
	"github.com/bert42/fileserver/pkg/storage"
)

// Config holds tunables for the local store.
type Config struct {
	// DirMode is applied to directories created on write.
	DirMode os.FileMode `mapstructure:"dir_mode"`

	// FileMode is applied to files created on write.
	FileMode os.FileMode `mapstructure:"file_mode"`
}

func (c *Config) applyDefaults() {
	if c.DirMode == 0 {
		c.DirMode = 0755
	}
	if c.FileMode == 0 {
		c.FileMode = 0644
	}
}

// Store implements storage.Store using the local filesystem.
//
// Thread Safety:
// Safe for concurrent use. Concurrent writes to the same path are not
// serialized.
type Store struct {
	cfg Config
}

var _ storage.Store = (*Store)(nil)

// New creates a local store. Zero modes fall back to 0755/0644.
func New(cfg Config) *Store {
	cfg.applyDefaults()
	return &Store{cfg: cfg}
}

// Stat returns metadata for path.
func (s *Store) Stat(ctx context.Context, path string) (*storage.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, mapError(err, path, "stat failed")
	}

	return &storage.Metadata{
		Name:         filepath.Base(path),
		Size:         uint64(info.Size()),
		IsDirectory:  info.IsDir(),
		Permissions:  storage.Label(info.IsDir()),
		ModifiedTime: info.ModTime().Unix(),
		CreatedTime:  birthTime(path, info),
	}, nil
}

// List returns the children of a directory.
//
// Directories sort before files; within each group entries sort by name.
func (s *Store) List(ctx context.Context, path string) ([]storage.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, mapError(err, path, "list failed")
	}
	if !info.IsDir() {
		return nil, fserrors.New(fserrors.InvalidPath, "Path is not a directory")
	}

	dirents, err := os.ReadDir(path)
	if err != nil {
		return nil, mapError(err, path, "read directory failed")
	}

	entries := make([]storage.Entry, 0, len(dirents))
	for _, d := range dirents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Follow symlinks like Stat does, so a link to a directory lists as one.
		childInfo, err := os.Stat(filepath.Join(path, d.Name()))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// Dangling link or removed concurrently.
				continue
			}
			return nil, mapError(err, path, "stat entry failed")
		}

		entries = append(entries, storage.Entry{
			Name:         d.Name(),
			Size:         uint64(childInfo.Size()),
			IsDirectory:  childInfo.IsDir(),
			Permissions:  storage.Label(childInfo.IsDir()),
			ModifiedTime: childInfo.ModTime().Unix(),
		})
	}

	SortEntries(entries)
	return entries, nil
}

// SortEntries orders entries directories first, then by name.
func SortEntries(entries []storage.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDirectory != b.IsDirectory {
			return a.IsDirectory
		}
		return a.Name < b.Name
	})
}

// Delete removes a file or a directory tree.
func (s *Store) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fserrors.New(fserrors.NotFound, "File not found").WithPath(path)
		}
		return mapError(err, path, "delete failed")
	}

	switch {
	case info.Mode().IsRegular(), info.Mode()&fs.ModeSymlink != 0:
		err = os.Remove(path)
	case info.IsDir():
		err = os.RemoveAll(path)
	default:
		return fserrors.New(fserrors.InvalidPath, "Path is neither a file nor a directory")
	}
	if err != nil {
		return mapError(err, path, "delete failed")
	}
	return nil
}

// mapError converts an OS error into the fserrors taxonomy.
func mapError(err error, path, msg string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fserrors.Wrap(fserrors.NotFound, err, "File not found").WithPath(path)
	default:
		return fserrors.Wrap(fserrors.Internal, err, "%s", msg).WithPath(path)
	}
}
