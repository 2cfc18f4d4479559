package storage

import (
	"context"
	"io"
)

// ============================================================================
// Store Interface
// ============================================================================

// Store performs byte-level operations on already-resolved absolute paths.
//
// A Store never re-derives authorization: every path it receives has been
// approved and confined by the access engine. Callers must not hand it raw
// client input.
//
// Error Handling:
// All methods return *fserrors.Error values:
//   - NotFound: the path does not exist (Stat, Delete, Read, List)
//   - InvalidPath: the node has the wrong type for the operation
//   - Internal: unexpected I/O failure
//
// Thread Safety:
// Implementations must be safe for concurrent use. No cross-client locking is
// provided; concurrent writers to the same path race at the filesystem level.
type Store interface {
	// Stat returns metadata for a file or directory.
	Stat(ctx context.Context, path string) (*Metadata, error)

	// List returns the children of a directory, directories first, each
	// group sorted lexicographically by name.
	List(ctx context.Context, path string) ([]Entry, error)

	// Read returns up to length bytes starting at offset. A nil length
	// reads to the end of the file. An offset at or beyond the end of the
	// file yields an empty slice, not an error.
	Read(ctx context.Context, path string, offset uint64, length *uint64) ([]byte, error)

	// OpenRange opens the same byte range Read would return, without
	// loading it into memory. The caller must Close the returned Section.
	OpenRange(ctx context.Context, path string, offset uint64, length *uint64) (*Section, error)

	// Write stores data at path, creating parent directories as needed.
	//
	// With a nil offset the file is created or truncated. With a non-nil
	// offset and an existing file, data is written at that offset without
	// truncation. The data is flushed to stable storage before returning.
	Write(ctx context.Context, path string, data []byte, offset *uint64) (uint64, error)

	// Delete removes a file, or a directory tree recursively.
	Delete(ctx context.Context, path string) error
}

// Metadata describes a single file or directory.
type Metadata struct {
	// Name is the last path segment.
	Name string

	// Size in bytes (as reported by the filesystem for directories).
	Size uint64

	IsDirectory bool

	// Permissions is a coarse type label: "dir" or "file".
	Permissions string

	// ModifiedTime and CreatedTime are seconds since the Unix epoch.
	// CreatedTime is 0 when the platform cannot supply a birth time.
	ModifiedTime int64
	CreatedTime  int64
}

// Entry is one child of a listed directory.
type Entry struct {
	Name         string
	Size         uint64
	IsDirectory  bool
	Permissions  string
	ModifiedTime int64
}

// Section is an open, bounded byte range of a file.
//
// Reads start at the requested offset and stop after Size() bytes.
type Section struct {
	*io.SectionReader
	closer io.Closer
}

// NewSection wraps r so that reads cover [offset, offset+n) and Close
// releases closer.
func NewSection(r io.ReaderAt, closer io.Closer, offset, n int64) *Section {
	return &Section{SectionReader: io.NewSectionReader(r, offset, n), closer: closer}
}

// Close releases the underlying file.
func (s *Section) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Offset returns the absolute file offset at which the section starts.
func (s *Section) Offset() int64 {
	_, off, _ := s.SectionReader.Outer()
	return off
}

// Permission labels used in Metadata and Entry.
const (
	LabelDirectory = "dir"
	LabelFile      = "file"
)

// Label returns the permission label for a node type.
func Label(isDir bool) string {
	if isDir {
		return LabelDirectory
	}
	return LabelFile
}
