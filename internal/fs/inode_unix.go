//go:build unix

package fs

import (
	"os"
	"syscall"
)

// inodeOf lets copy detect a source that was replaced (same name, new file)
// between attempts.
func inodeOf(info os.FileInfo) uint64 {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return uint64(st.Ino)
	}
	return 0
}
