// Package orchestrator drives one mirror run: scan both directories, admit
// jobs, execute them on the worker pool under the watchdog, keep the
// destination reconciled and report a summary.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raoulx24/media-mirror/internal/admission"
	"github.com/raoulx24/media-mirror/internal/clock"
	"github.com/raoulx24/media-mirror/internal/config"
	"github.com/raoulx24/media-mirror/internal/converter"
	"github.com/raoulx24/media-mirror/internal/fs"
	"github.com/raoulx24/media-mirror/internal/metrics"
	"github.com/raoulx24/media-mirror/internal/reconcile"
	"github.com/raoulx24/media-mirror/internal/snapshot"
	"github.com/raoulx24/media-mirror/internal/stability"
	"github.com/raoulx24/media-mirror/internal/watchdog"
	"github.com/raoulx24/media-mirror/internal/worker"
)

type State int

const (
	Pending State = iota
	Scanning
	Admitting
	Running
	Idle
	Draining
	Reconciling
	Done
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Scanning:
		return "scanning"
	case Admitting:
		return "admitting"
	case Running:
		return "running"
	case Idle:
		return "idle"
	case Draining:
		return "draining"
	case Reconciling:
		return "reconciling"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// unwindGrace is how long the watchdog waits for killed jobs before deleting
// their destinations.
const unwindGrace = 5 * time.Second

type Options struct {
	Config   *config.Config
	FS       fs.FS
	Clock    clock.Clock
	Strategy converter.Strategy
	Metrics  *metrics.Collector
	Log      *slog.Logger
	// Exit is handed to the watchdog. Defaults to os.Exit.
	Exit func(code int)
	// NewRunID defaults to a random UUID.
	NewRunID func() string
}

type Orchestrator struct {
	opts Options

	mu    sync.Mutex
	state State
}

func New(opts Options) *Orchestrator {
	if opts.FS == nil {
		opts.FS = fs.New()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.NewRunID == nil {
		opts.NewRunID = uuid.NewString
	}
	return &Orchestrator{opts: opts}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State, log *slog.Logger) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	log.Debug("run state", "state", s.String())
}

// Run executes one mirror pass. Per-job failures are reported in the
// summary, not as an error. The error is an *AdmissionError when the run
// could not start, an *OverrunError when the deadline swept outstanding
// jobs, or the context error when ctx was cancelled. Run does not return
// while a deadline sweep is in progress.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	cfg := o.opts.Config
	started := o.opts.Clock.Now()
	run := worker.NewRun(o.opts.NewRunID(), started, o.opts.Metrics, o.opts.Log)
	log := run.Log
	sum := Summary{RunID: run.ID, Started: started}

	srcDir, destDir := cfg.Source.Path, cfg.Destination.Path
	ext := o.opts.Strategy.ProducedExtension()

	o.setState(Scanning, log)
	source, err := snapshot.Scan(o.opts.FS, o.opts.Clock, srcDir)
	if err != nil {
		return sum, &AdmissionError{Op: "scan source", Path: srcDir, Err: err}
	}
	dest, err := snapshot.Scan(o.opts.FS, o.opts.Clock, destDir)
	if err != nil {
		return sum, &AdmissionError{Op: "scan destination", Path: destDir, Err: err}
	}

	o.setState(Admitting, log)
	adm := admission.Admit(source, dest, destDir, ext, log)
	o.opts.Metrics.RecordAdmission(len(adm.Jobs), len(adm.AlreadyConverted))
	sum.Admitted = len(adm.Jobs)
	sum.AlreadyConverted = len(adm.AlreadyConverted)
	sum.Unreadable = len(adm.Unreadable)
	sum.Duplicates = len(adm.Duplicates)
	log.Info("admission complete",
		"jobs", len(adm.Jobs),
		"already_converted", len(adm.AlreadyConverted),
		"unreadable", len(adm.Unreadable))

	gate := stability.New(o.opts.FS, o.opts.Clock, cfg.Stability.Window, cfg.Stability.MaxRechecks, log)
	pool := worker.New(worker.Options{
		Workers:       cfg.Pool.Workers,
		EncodeWorkers: cfg.Pool.EncodeWorkers,
	}, o.opts.Strategy, gate, run)
	if err := pool.Start(ctx); err != nil {
		return sum, err
	}

	rec := reconcile.New(reconcile.Options{
		FS:        o.opts.FS,
		Clock:     o.opts.Clock,
		SourceDir: srcDir,
		DestDir:   destDir,
		Ext:       ext,
		Ignore:    cfg.ReconcileIgnore(),
		Baseline:  adm.Valid,
		Metrics:   o.opts.Metrics,
		Log:       log.With("component", "reconcile"),
	})

	dog := watchdog.New(watchdog.Options{
		Clock: o.opts.Clock,
		FS:    o.opts.FS,
		Run:   run,
		Abort: pool.Abort,
		Exit:  o.opts.Exit,
		Grace: unwindGrace,
	})
	if err := dog.Arm(started, cfg.Watchdog.Deadline); err != nil {
		pool.Shutdown()
		return sum, err
	}
	if err := rec.Start(pool, cfg.Reconcile.Interval); err != nil {
		dog.Stop()
		pool.Shutdown()
		return sum, err
	}

	handles := make([]*worker.Handle, 0, len(adm.Jobs))
	if len(adm.Jobs) == 0 {
		o.setState(Idle, log)
	} else {
		o.setState(Running, log)
		for _, job := range adm.Jobs {
			handles = append(handles, pool.Submit(job))
		}
	}

	o.setState(Draining, log)
	runErr := o.drain(ctx, pool, handles, log)
	for _, h := range handles {
		sum.add(h)
	}

	rec.Stop()
	pool.Shutdown()

	// a sweep in progress owns the outcome of the run
	dog.Stop()
	<-dog.Done()
	if overruns := dog.Overruns(); len(overruns) > 0 {
		runErr = &OverrunError{Overruns: overruns}
	}

	if runErr == nil {
		o.setState(Reconciling, log)
		if _, err := rec.Reconcile(ctx); err != nil {
			log.Error("final reconcile failed", "error", err)
		}
	}
	totals := rec.Totals()
	sum.Deleted = len(totals.Deleted)
	sum.DeleteFailures = len(totals.Failed)

	o.setState(Done, log)

	sum.Duration = o.opts.Clock.Now().Sub(started)
	o.opts.Metrics.RunFinished(sum.Duration)
	log.Info("run finished",
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"skipped", sum.Skipped,
		"deleted", sum.Deleted,
		"duration", sum.Duration.Round(time.Millisecond))

	return sum, runErr
}

// drain waits for every handle, logging progress each ProgressInterval. A
// cancelled ctx aborts the pool; the handles still resolve.
func (o *Orchestrator) drain(ctx context.Context, pool *worker.Pool, handles []*worker.Handle, log *slog.Logger) error {
	all := make(chan struct{})
	go func() {
		for _, h := range handles {
			<-h.Done()
		}
		close(all)
	}()

	interval := o.opts.Config.Pool.ProgressInterval
	var cause error
	done := ctx.Done()
	for {
		var tick <-chan time.Time
		if interval > 0 {
			tick = o.opts.Clock.After(interval)
		}

		select {
		case <-all:
			return cause
		case <-tick:
			logProgress(log, handles)
		case <-done:
			cause = ctx.Err()
			log.Warn("run cancelled, stopping jobs", "error", cause)
			pool.Abort()
			done = nil
		}
	}
}

func logProgress(log *slog.Logger, handles []*worker.Handle) {
	completed := 0
	for _, h := range handles {
		if h.Completed() {
			completed++
		}
	}
	pct := 100.0
	if len(handles) > 0 {
		pct = float64(completed) * 100 / float64(len(handles))
	}
	log.Info("progress", "completed", completed, "total", len(handles), "percent", fmt.Sprintf("%.1f", pct))
}

// IsOverrun reports whether err is a deadline overrun.
func IsOverrun(err error) bool {
	var oe *OverrunError
	return errors.As(err, &oe)
}

// IsAdmission reports whether err stopped the run before any job started.
func IsAdmission(err error) bool {
	var ae *AdmissionError
	return errors.As(err, &ae)
}
