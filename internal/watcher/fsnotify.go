package watcher

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/raoulx24/media-mirror/internal/fsprobe"
)

func (w *Watcher) newFsNotify() (*fsnotify.Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w.mu.RLock()
	dir := w.dir
	w.mu.RUnlock()

	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}
	return fw, nil
}

// runFsNotify triggers detect() once fsnotify has been quiet for the
// debounce window.
func (w *Watcher) runFsNotify(ctx context.Context, fw *fsnotify.Watcher) {
	defer fw.Close()

	w.mu.RLock()
	debounce := w.debounce
	w.mu.RUnlock()

	// Channel to request debounce resets
	resetCh := make(chan struct{}, 1)
	defer close(resetCh)

	// Debounce goroutine
	go func() {
		var t *time.Timer
		for range resetCh {
			if t != nil {
				t.Stop()
			}
			t = time.AfterFunc(debounce, func() {
				defer func() {
					if r := recover(); r != nil {
						w.log.Error("detect panic", "panic", r)
					}
				}()
				if ctx.Err() == nil {
					w.detect("fsnotify")
				}
			})
		}
		if t != nil {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fw.Events:
			if !ok {
				w.log.Error("events channel closed")
				return
			}

			if fsprobe.IsProbeFile(ev.Name) {
				continue
			}
			w.log.Debug("event", "name", ev.Name, "op", ev.Op.String())

			// Non-blocking send to reset debounce
			select {
			case resetCh <- struct{}{}:
			default:
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.Error("fsnotify error", "error", err)
		}
	}
}
