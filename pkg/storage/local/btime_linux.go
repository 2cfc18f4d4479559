//go:build linux

package local

import (
	"io/fs"

	"golang.org/x/sys/unix"
)

// birthTime returns the creation time via statx, or 0 when the filesystem
// does not record it.
func birthTime(path string, _ fs.FileInfo) int64 {
	var stx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, 0, unix.STATX_BTIME, &stx); err != nil {
		return 0
	}
	if stx.Mask&unix.STATX_BTIME == 0 {
		return 0
	}
	return stx.Btime.Sec
}
