// Package stability decides whether a source file has finished being
// written, by requiring its size to stay constant across a quiescence window.
package stability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/raoulx24/media-mirror/internal/clock"
	"github.com/raoulx24/media-mirror/internal/fs"
)

// ErrUnstable means the file kept changing size; it is retried next run.
var ErrUnstable = errors.New("file size still changing")

// waits shorter than this are skipped
const minSleep = 10 * time.Millisecond

// Baseline is a size observation and the time it was taken.
type Baseline struct {
	Size int64
	At   time.Time
}

type Gate struct {
	fs          fs.FS
	clock       clock.Clock
	window      time.Duration
	maxRechecks int
	log         *slog.Logger
}

func New(f fs.FS, c clock.Clock, window time.Duration, maxRechecks int, log *slog.Logger) *Gate {
	return &Gate{fs: f, clock: c, window: window, maxRechecks: maxRechecks, log: log}
}

// Check sleeps until the window has passed since b.At, then compares the
// current size against b.Size. When the size moved it reports false and the
// new observation to re-arm with.
func (g *Gate) Check(ctx context.Context, path string, b Baseline) (bool, Baseline, error) {
	if remaining := g.window - g.clock.Now().Sub(b.At); remaining >= minSleep {
		select {
		case <-ctx.Done():
			return false, b, ctx.Err()
		case <-g.clock.After(remaining):
		}
	}

	info, err := g.fs.Stat(path)
	if err != nil {
		return false, b, fmt.Errorf("stat %s: %w", path, err)
	}

	if info.Size != b.Size {
		g.log.Info("file size changed", "path", path, "was", b.Size, "now", info.Size)
		return false, Baseline{Size: info.Size, At: g.clock.Now()}, nil
	}
	return true, b, nil
}

// Wait runs Check, re-arming with the newest observation up to the
// configured number of rechecks. It returns ErrUnstable when the file never
// settled.
func (g *Gate) Wait(ctx context.Context, path string, b Baseline) error {
	for attempt := 0; attempt <= g.maxRechecks; attempt++ {
		stable, next, err := g.Check(ctx, path, b)
		if err != nil {
			return err
		}
		if stable {
			return nil
		}
		b = next
	}
	return ErrUnstable
}
