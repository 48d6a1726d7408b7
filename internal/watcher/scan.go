package watcher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/raoulx24/media-mirror/internal/fsprobe"
)

// signature summarises the source listing: names, sizes and modification
// times of every regular file. Any addition, removal or growth changes it.
func (w *Watcher) signature() (string, error) {
	w.mu.RLock()
	dir := w.dir
	w.mu.RUnlock()

	infos, err := w.fs.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", dir, err)
	}

	h := sha256.New()
	for _, info := range infos {
		if info.IsDir || fsprobe.IsProbeFile(info.Name) {
			continue
		}
		fmt.Fprintf(h, "%s\x00%d\x00%d\n", info.Name, info.Size, info.MTime.UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (w *Watcher) baseline() error {
	sig, err := w.signature()
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.lastSig = sig
	w.mu.Unlock()
	return nil
}
