// Package reconcile removes destination files whose source is gone.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/raoulx24/media-mirror/internal/clock"
	"github.com/raoulx24/media-mirror/internal/fs"
	"github.com/raoulx24/media-mirror/internal/metrics"
	"github.com/raoulx24/media-mirror/internal/pathmap"
	"github.com/raoulx24/media-mirror/internal/snapshot"
)

// ErrPassRunning is returned when a pass is requested while one is in progress.
var ErrPassRunning = errors.New("reconcile pass already running")

type Options struct {
	FS        fs.FS
	Clock     clock.Clock
	SourceDir string
	DestDir   string
	// Ext is the extension the converter produces.
	Ext string
	// Ignore holds filepath.Match patterns of destination names that are
	// never deleted.
	Ignore []string
	// Baseline is the set of sources admission found valid at run start. It
	// stands in for the source listing when the source directory cannot be
	// listed; without it such a pass fails.
	Baseline []snapshot.SourceEntry
	Metrics  *metrics.Collector
	Log      *slog.Logger
}

// Report is the outcome of one pass.
type Report struct {
	Deleted []string
	Failed  []string
	Kept    int
}

// Dispatcher runs a light task, normally on the worker pool.
type Dispatcher interface {
	Go(name string, fn func(ctx context.Context)) error
}

type Reconciler struct {
	opts    Options
	running atomic.Bool

	mu     sync.Mutex
	cron   *cron.Cron
	totals Report
}

func New(opts Options) *Reconciler {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	return &Reconciler{opts: opts}
}

// Reconcile takes fresh listings of both directories and deletes every
// destination file that no current source maps to. When the source cannot
// be listed the Baseline is used instead. Directories and ignored
// names are left alone. Delete failures are logged and counted; a scan
// failure aborts the pass.
func (r *Reconciler) Reconcile(ctx context.Context) (Report, error) {
	if !r.running.CompareAndSwap(false, true) {
		return Report{}, ErrPassRunning
	}
	defer r.running.Store(false)

	log := r.opts.Log
	start := r.opts.Clock.Now()

	dest, err := snapshot.Scan(r.opts.FS, r.opts.Clock, r.opts.DestDir)
	if err != nil {
		return Report{}, fmt.Errorf("scanning destination: %w", err)
	}
	var sources []snapshot.SourceEntry
	source, err := snapshot.Scan(r.opts.FS, r.opts.Clock, r.opts.SourceDir)
	switch {
	case err == nil:
		sources = source.Files()
	case r.opts.Baseline != nil:
		log.Warn("cannot list source, reconciling against run-start baseline", "error", err)
		sources = r.opts.Baseline
	default:
		return Report{}, fmt.Errorf("scanning source: %w", err)
	}

	wanted := make(map[string]struct{}, len(sources))
	for _, e := range sources {
		wanted[pathmap.Destination(r.opts.DestDir, e.Path, r.opts.Ext)] = struct{}{}
	}

	var rep Report
	defer r.record(&rep)

	for _, e := range dest.Files() {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if _, ok := wanted[e.Path]; ok || r.ignored(e.Name) {
			rep.Kept++
			continue
		}

		if err := r.opts.FS.Remove(e.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Error("failed to delete orphaned destination", "path", e.Path, "error", err)
			rep.Failed = append(rep.Failed, e.Path)
			continue
		}
		log.Info("deleted orphaned destination", "path", e.Path)
		rep.Deleted = append(rep.Deleted, e.Path)
	}

	log.Debug("reconcile pass finished",
		"deleted", len(rep.Deleted),
		"failed", len(rep.Failed),
		"kept", rep.Kept,
		"took", r.opts.Clock.Now().Sub(start))
	return rep, nil
}

// record adds a pass, complete or interrupted, to the totals.
func (r *Reconciler) record(rep *Report) {
	r.opts.Metrics.RecordReconcile(len(rep.Deleted), len(rep.Failed))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.totals.Deleted = append(r.totals.Deleted, rep.Deleted...)
	r.totals.Failed = append(r.totals.Failed, rep.Failed...)
	r.totals.Kept = rep.Kept
}

func (r *Reconciler) ignored(name string) bool {
	for _, pat := range r.opts.Ignore {
		if ok, _ := filepath.Match(pat, name); ok {
			return true
		}
	}
	return false
}

// Totals accumulates every pass since the reconciler was created.
func (r *Reconciler) Totals() Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Report{
		Deleted: append([]string(nil), r.totals.Deleted...),
		Failed:  append([]string(nil), r.totals.Failed...),
		Kept:    r.totals.Kept,
	}
}

// Start schedules a pass every interval. Each pass is handed to d so it
// counts against the pool's worker ceiling. A tick is dropped while the
// previous pass is still running.
func (r *Reconciler) Start(d Dispatcher, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("reconcile interval must be positive, got %s", interval)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return errors.New("reconciler already started")
	}

	c := cron.New()
	_, err := c.AddFunc("@every "+interval.String(), func() {
		if r.running.Load() {
			r.opts.Log.Debug("skipping reconcile tick, pass still running")
			return
		}
		err := d.Go("reconcile", func(ctx context.Context) {
			if _, err := r.Reconcile(ctx); err != nil && !errors.Is(err, ErrPassRunning) {
				r.opts.Log.Error("reconcile pass failed", "error", err)
			}
		})
		if err != nil {
			r.opts.Log.Debug("reconcile tick not dispatched", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling reconcile: %w", err)
	}

	c.Start()
	r.cron = c
	return nil
}

// Stop removes the schedule and waits for a tick being dispatched. Passes
// already handed to the dispatcher are not interrupted.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}
