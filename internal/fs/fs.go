// Package fs defines the filesystem abstraction used by media-mirror.
// It provides the FS interface and the FileInfo type shared across the system.
package fs

import (
	"context"
	"time"
)

type FileInfo struct {
	Path  string
	Name  string
	Size  int64
	MTime time.Time
	Inode uint64
	IsDir bool
}

type FS interface {
	// ReadDir lists the direct children of dir, sorted by name.
	ReadDir(dir string) ([]FileInfo, error)
	Stat(path string) (FileInfo, error)
	// Readable reports whether path can be opened for reading.
	Readable(path string) bool
	CopyFile(ctx context.Context, src, dst string) error
	MkdirAll(path string) error
	Remove(path string) error
}
