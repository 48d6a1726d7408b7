// Package watcher monitors the source directory and signals when it changed,
// so watch mode can start a new mirror run.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/raoulx24/media-mirror/internal/config"
	"github.com/raoulx24/media-mirror/internal/fs"
	"github.com/raoulx24/media-mirror/internal/fsprobe"
	"github.com/raoulx24/media-mirror/internal/mailbox"
)

// Trigger asks the runner for a new mirror pass.
type Trigger struct {
	Reason string
	At     time.Time
}

// Watcher observes the source directory and posts a Trigger whenever its
// listing changed.
type Watcher struct {
	mu sync.RWMutex

	dir      string
	interval time.Duration
	mode     string
	debounce time.Duration

	fs  fs.FS
	log *slog.Logger

	lastSig string

	mb *mailbox.Mailbox[Trigger]
	wg sync.WaitGroup
}

// New creates a watcher for the configured source directory.
func New(cfg *config.Config, f fs.FS, log *slog.Logger, mb *mailbox.Mailbox[Trigger]) *Watcher {
	return &Watcher{
		dir:      cfg.Source.Path,
		interval: cfg.Watch.PollInterval,
		mode:     cfg.Watch.Mode,
		debounce: cfg.Watch.DebounceWindow,
		fs:       f,
		log:      log,
		mb:       mb,
	}
}

// Start records the current listing as the baseline, picks the watching
// strategy and runs it in the background until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	mode, err := w.resolveMode()
	if err != nil {
		return err
	}

	if err := w.baseline(); err != nil {
		return err
	}

	switch mode {
	case "fsnotify":
		fw, err := w.newFsNotify()
		if err != nil {
			return err
		}
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runFsNotify(ctx, fw)
		}()
	default:
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runPolling(ctx)
		}()
	}

	w.log.Info("watching source directory", "dir", w.dir, "mode", mode)
	return nil
}

// Wait blocks until the background watcher stopped.
func (w *Watcher) Wait() { w.wg.Wait() }

func (w *Watcher) resolveMode() (string, error) {
	w.mu.RLock()
	mode, dir := w.mode, w.dir
	w.mu.RUnlock()

	switch mode {
	case "fsnotify", "poll":
		return mode, nil
	case "auto", "":
		res := fsprobe.Probe(dir, fsprobe.DefaultTimeout)
		if res.FsnotifySupported {
			return "fsnotify", nil
		}
		w.log.Warn("fsnotify disabled, falling back to polling", "reason", res.Reason)
		return "poll", nil
	default:
		return "", fmt.Errorf("unknown watch mode %q", mode)
	}
}
