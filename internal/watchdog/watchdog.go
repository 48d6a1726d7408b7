// Package watchdog enforces the run deadline. When the deadline passes every
// job still outstanding is treated as overrun: its encoder is killed, its
// destination is removed and the process exits.
package watchdog

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/raoulx24/media-mirror/internal/clock"
	"github.com/raoulx24/media-mirror/internal/fs"
	"github.com/raoulx24/media-mirror/internal/worker"
)

type State int

const (
	Idle State = iota
	Armed
	Sweeping
	Terminated
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Sweeping:
		return "sweeping"
	case Terminated:
		return "terminated"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ExitCode is passed to the exit function after a sweep.
const ExitCode = 1

var ErrNotIdle = errors.New("watchdog already armed or finished")

// Overrun describes one job that was still running at the deadline.
type Overrun struct {
	Source      string
	Destination string
	// Removed is false when the destination was absent or could not be deleted.
	Removed bool
	Err     error
}

func (o Overrun) Error() string {
	return fmt.Sprintf("job for %s overran the run deadline", o.Source)
}

type Options struct {
	Clock clock.Clock
	FS    fs.FS
	Run   *worker.Run
	// Abort cancels the run context; encoder process groups die with it.
	Abort func()
	// Exit terminates the process. Defaults to os.Exit.
	Exit func(code int)
	// Grace bounds how long the sweep waits for aborted jobs to unwind
	// before deleting their destinations. Zero skips the wait.
	Grace time.Duration
}

type Watchdog struct {
	opts Options

	mu       sync.Mutex
	state    State
	timer    clock.Timer
	overruns []Overrun

	done     chan struct{}
	doneOnce sync.Once
}

func New(opts Options) *Watchdog {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Abort == nil {
		opts.Abort = func() {}
	}
	if opts.Exit == nil {
		opts.Exit = os.Exit
	}
	return &Watchdog{opts: opts, done: make(chan struct{})}
}

// Arm schedules the sweep at start+deadline. A deadline already in the past
// fires immediately.
func (w *Watchdog) Arm(start time.Time, deadline time.Duration) error {
	w.mu.Lock()
	if w.state != Idle {
		w.mu.Unlock()
		return ErrNotIdle
	}
	w.state = Armed
	w.mu.Unlock()

	at := start.Add(deadline)
	w.opts.Run.Log.Debug("watchdog armed", "deadline", at)

	// the timer may fire before AfterFunc returns, so it is scheduled unlocked
	t := w.opts.Clock.AfterFunc(at.Sub(w.opts.Clock.Now()), w.fire)

	w.mu.Lock()
	w.timer = t
	w.mu.Unlock()
	return nil
}

// Stop cancels a pending deadline. It reports whether the watchdog was still
// armed; once a sweep started it cannot be stopped and Done closes when the
// sweep has finished.
func (w *Watchdog) Stop() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case Idle:
		w.state = Stopped
		w.finish()
		return false
	case Armed:
		w.state = Stopped
		if w.timer != nil {
			w.timer.Stop()
		}
		w.finish()
		return true
	default:
		return false
	}
}

// Done is closed once the watchdog was stopped or its sweep completed.
func (w *Watchdog) Done() <-chan struct{} { return w.done }

// Overruns returns the jobs handled by a completed sweep.
func (w *Watchdog) Overruns() []Overrun {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Overrun(nil), w.overruns...)
}

func (w *Watchdog) finish() {
	w.doneOnce.Do(func() { close(w.done) })
}

func (w *Watchdog) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// fire runs the sweep and exits when anything overran. Done is closed after
// the exit function returns, so a caller blocked on it never sees the run
// end before cleanup and exit.
func (w *Watchdog) fire() {
	swept := false
	defer func() {
		if r := recover(); r != nil {
			w.opts.Run.Log.Error("watchdog panic", "panic", r)
			w.opts.Exit(ExitCode)
			swept = true
		}
		if swept {
			w.finish()
		}
	}()

	overruns, ok := w.sweep()
	if len(overruns) > 0 {
		w.opts.Run.Log.Error("run deadline exceeded, exiting", "overrun_jobs", len(overruns))
		w.opts.Exit(ExitCode)
	}
	swept = ok
}

// Sweep handles every outstanding job as overrun and returns them. It does
// not call the exit function. A stopped or already swept watchdog returns
// nil.
func (w *Watchdog) Sweep() []Overrun {
	overruns, ok := w.sweep()
	if ok {
		w.finish()
	}
	return overruns
}

func (w *Watchdog) sweep() ([]Overrun, bool) {
	w.mu.Lock()
	if w.state != Armed {
		w.mu.Unlock()
		return nil, false
	}
	w.state = Sweeping
	w.mu.Unlock()

	run := w.opts.Run
	handles := run.Registry.Outstanding()
	overruns := make([]Overrun, 0, len(handles))
	for _, h := range handles {
		o := Overrun{Source: h.Job.Source.Path, Destination: h.Job.Destination}
		run.Log.Warn("job overran deadline", "path", o.Source, "destination", o.Destination)
		overruns = append(overruns, o)
	}
	run.Metrics.RecordOverruns(len(overruns))

	w.opts.Abort()
	w.awaitUnwind(handles)

	for i := range overruns {
		o := &overruns[i]
		err := w.opts.FS.Remove(o.Destination)
		switch {
		case err == nil:
			o.Removed = true
			run.Log.Info("removed partial destination", "path", o.Destination)
		case errors.Is(err, os.ErrNotExist):
		default:
			o.Err = err
			run.Log.Error("failed to remove partial destination", "path", o.Destination, "error", err)
		}
	}

	w.mu.Lock()
	w.state = Terminated
	w.overruns = overruns
	w.mu.Unlock()
	return overruns, true
}

// awaitUnwind gives aborted jobs up to Grace to release their destinations.
func (w *Watchdog) awaitUnwind(handles []*worker.Handle) {
	if w.opts.Grace <= 0 || len(handles) == 0 {
		return
	}
	timeout := w.opts.Clock.After(w.opts.Grace)
	for _, h := range handles {
		select {
		case <-h.Done():
		case <-timeout:
			w.opts.Run.Log.Warn("jobs still unwinding after grace period", "grace", w.opts.Grace)
			return
		}
	}
}
