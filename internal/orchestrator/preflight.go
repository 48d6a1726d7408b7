package orchestrator

import (
	"errors"
	"path/filepath"

	"github.com/raoulx24/media-mirror/internal/config"
	"github.com/raoulx24/media-mirror/internal/fs"
)

var (
	errNotDir = errors.New("not a directory")
	errSame   = errors.New("source and destination are the same directory")
)

// Preflight checks that the source is an existing directory and creates the
// destination when missing.
func Preflight(f fs.FS, cfg *config.Config) error {
	src, dst := cfg.Source.Path, cfg.Destination.Path

	info, err := f.Stat(src)
	if err != nil {
		return &AdmissionError{Op: "stat source", Path: src, Err: err}
	}
	if !info.IsDir {
		return &AdmissionError{Op: "check source", Path: src, Err: errNotDir}
	}

	if err := f.MkdirAll(dst); err != nil {
		return &AdmissionError{Op: "create destination", Path: dst, Err: err}
	}
	dinfo, err := f.Stat(dst)
	if err != nil {
		return &AdmissionError{Op: "stat destination", Path: dst, Err: err}
	}
	if !dinfo.IsDir {
		return &AdmissionError{Op: "check destination", Path: dst, Err: errNotDir}
	}
	if samePath(src, dst) {
		return &AdmissionError{Op: "check destination", Path: dst, Err: errSame}
	}
	return nil
}

func samePath(a, b string) bool {
	aa, errA := filepath.Abs(a)
	bb, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return aa == bb
}
