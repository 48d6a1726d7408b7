// Package snapshot captures immutable listings of the source and
// destination directories for a single admission or reconciliation pass.
package snapshot

import (
	"fmt"
	"time"

	"github.com/raoulx24/media-mirror/internal/clock"
	"github.com/raoulx24/media-mirror/internal/fs"
)

// SourceEntry describes one directory entry as seen by a scan.
type SourceEntry struct {
	Path     string
	Name     string
	Size     int64
	SizeAt   time.Time // when Size was observed
	Readable bool
	IsDir    bool
}

// Listing is the immutable result of scanning one directory.
type Listing struct {
	Dir     string
	Taken   time.Time
	Entries []SourceEntry

	paths map[string]struct{}
}

// Scan lists dir once. Readability is probed for regular files only.
func Scan(f fs.FS, c clock.Clock, dir string) (Listing, error) {
	infos, err := f.ReadDir(dir)
	if err != nil {
		return Listing{}, fmt.Errorf("listing %s: %w", dir, err)
	}

	now := c.Now()
	entries := make([]SourceEntry, 0, len(infos))
	for _, info := range infos {
		e := SourceEntry{
			Path:   info.Path,
			Name:   info.Name,
			Size:   info.Size,
			SizeAt: now,
			IsDir:  info.IsDir,
		}
		if !info.IsDir {
			e.Readable = f.Readable(info.Path)
		}
		entries = append(entries, e)
	}

	return NewListing(dir, now, entries), nil
}

// NewListing builds a listing from already collected entries.
func NewListing(dir string, taken time.Time, entries []SourceEntry) Listing {
	paths := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if !e.IsDir {
			paths[e.Path] = struct{}{}
		}
	}
	return Listing{Dir: dir, Taken: taken, Entries: entries, paths: paths}
}

// Contains reports whether the listing holds a regular file at path.
func (l Listing) Contains(path string) bool {
	_, ok := l.paths[path]
	return ok
}

// Files returns the regular-file entries.
func (l Listing) Files() []SourceEntry {
	out := make([]SourceEntry, 0, len(l.Entries))
	for _, e := range l.Entries {
		if !e.IsDir {
			out = append(out, e)
		}
	}
	return out
}
