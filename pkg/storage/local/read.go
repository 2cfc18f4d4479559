package local

import (
	"context"
	"io"
	"os"

	"github.com/bert42/fileserver/pkg/fserrors"
	"github.com/bert42/fileserver/pkg/storage"
)

// Read returns the requested byte range of a regular file.
//
// The effective end is clamped to the file size; an offset at or past the
// end yields an empty slice.
func (s *Store) Read(ctx context.Context, path string, offset uint64, length *uint64) ([]byte, error) {
	section, err := s.OpenRange(ctx, path, offset, length)
	if err != nil {
		return nil, err
	}
	defer func() { _ = section.Close() }()

	buf := make([]byte, section.Size())
	if _, err := io.ReadFull(section, buf); err != nil {
		return nil, fserrors.Wrap(fserrors.Internal, err, "read failed").WithPath(path)
	}
	return buf, nil
}

// OpenRange opens a regular file and returns a section covering the clamped
// byte range.
func (s *Store) OpenRange(ctx context.Context, path string, offset uint64, length *uint64) (*storage.Section, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 1: Open and verify the node is a regular file
	// ========================================================================

	f, err := os.Open(path)
	if err != nil {
		return nil, mapError(err, path, "open failed")
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, mapError(err, path, "stat failed")
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, fserrors.New(fserrors.InvalidPath, "Path is not a file")
	}

	// ========================================================================
	// Step 2: Clamp the range to the file size
	// ========================================================================

	start, n := clampRange(uint64(info.Size()), offset, length)
	return storage.NewSection(f, f, int64(start), int64(n)), nil
}

// clampRange computes the start offset and byte count of a read.
func clampRange(size, offset uint64, length *uint64) (start, n uint64) {
	if offset >= size {
		return size, 0
	}

	end := size
	if length != nil && *length < size-offset {
		end = offset + *length
	}
	return offset, end - offset
}
