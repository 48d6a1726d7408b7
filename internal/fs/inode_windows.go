//go:build windows

package fs

import "os"

// Windows has no POSIX inode; copy change detection falls back to size and mtime.
func inodeOf(os.FileInfo) uint64 {
	return 0
}
