// Package worker runs admitted jobs on a bounded pool.
//
// Two limits apply. At most Workers tasks execute at once, which bounds
// stability waits, reconciliation passes and conversions together. Inside
// that, at most EncodeWorkers jobs hold an encode slot, which is taken only
// after the stability gate passes and held while the converter runs.
//
// When Workers exceeds EncodeWorkers one worker is kept out of job duty, and
// light tasks queued with Go are always handed out before jobs, so a
// scheduled reconciliation never waits behind the job backlog.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/raoulx24/media-mirror/internal/converter"
	"github.com/raoulx24/media-mirror/internal/stability"
)

var (
	ErrPoolClosed     = errors.New("worker pool is closed")
	ErrPoolNotStarted = errors.New("worker pool not started")
)

// Gate blocks until a source file has stopped growing.
type Gate interface {
	Wait(ctx context.Context, path string, b stability.Baseline) error
}

type Options struct {
	Workers       int
	EncodeWorkers int
}

type Pool struct {
	opts     Options
	strategy converter.Strategy
	gate     Gate
	run      *Run

	queue  *queue
	encode *semaphore.Weighted
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(opts Options, strategy converter.Strategy, gate Gate, run *Run) *Pool {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.EncodeWorkers < 1 {
		opts.EncodeWorkers = 1
	}
	return &Pool{
		opts:     opts,
		strategy: strategy,
		gate:     gate,
		run:      run,
		queue:    newQueue(jobLimit(opts)),
		encode:   semaphore.NewWeighted(int64(opts.EncodeWorkers)),
	}
}

// jobLimit is how many workers may run jobs at once.
func jobLimit(opts Options) int {
	if opts.Workers > opts.EncodeWorkers {
		return opts.Workers - 1
	}
	return opts.Workers
}

// Start launches the workers. Jobs run under a context derived from ctx
// that Abort cancels.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return errors.New("pool already started")
	}
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.loop(id)
		}(i)
	}

	p.started = true
	return nil
}

// Submit registers and queues a job. The returned handle is already
// resolved as failed when the pool is closed or the source has a job in
// flight.
func (p *Pool) Submit(job Job) *Handle {
	h := newHandle(job)

	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case !p.started:
		h.resolve(Result{Status: Failed, Err: ErrPoolNotStarted})
		return h
	case p.stopped:
		h.resolve(Result{Status: Failed, Err: ErrPoolClosed})
		return h
	}

	if err := p.run.Registry.Register(job.Source.Path, h); err != nil {
		h.resolve(Result{Status: Failed, Err: fmt.Errorf("%s: %w", job.Source.Path, err)})
		return h
	}

	p.run.Metrics.JobSubmitted()
	p.queue.push(task{
		name: job.Source.Path,
		job:  true,
		run:  func(ctx context.Context) { p.finish(h, p.safeExecute(ctx, job)) },
	})
	return h
}

// Go queues a light task. It shares the worker ceiling but never takes an
// encode slot, and it runs ahead of queued jobs.
func (p *Pool) Go(name string, fn func(ctx context.Context)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return ErrPoolNotStarted
	}
	if p.stopped {
		return ErrPoolClosed
	}
	p.queue.push(task{name: name, run: fn})
	return nil
}

// Abort cancels the context running jobs see. Encoders are killed and
// their jobs resolve as failed.
func (p *Pool) Abort() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Shutdown stops accepting work, lets queued tasks finish and waits for the
// workers to exit.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.queue.close()
	p.wg.Wait()
	p.cancel()
}

// Pending is the number of queued tasks not yet picked up by a worker.
func (p *Pool) Pending() int { return p.queue.len() }

// safeExecute turns a panic in the converter into a failed result so the
// handle always resolves.
func (p *Pool) safeExecute(ctx context.Context, job Job) (r Result) {
	start := time.Now()
	defer func() {
		if v := recover(); v != nil {
			r = Result{Status: Failed, Err: fmt.Errorf("panic: %v", v), Duration: time.Since(start)}
		}
	}()
	return p.execute(ctx, job)
}

func (p *Pool) execute(ctx context.Context, job Job) Result {
	start := time.Now()
	src := job.Source.Path
	log := p.run.Log.With("path", src)

	if err := ctx.Err(); err != nil {
		return Result{Status: Failed, Err: err}
	}

	baseline := stability.Baseline{Size: job.Source.Size, At: job.Source.SizeAt}
	if err := p.gate.Wait(ctx, src, baseline); err != nil {
		if errors.Is(err, stability.ErrUnstable) {
			log.Info("file still being written, retrying next run")
			return Result{Status: Skipped, Reason: ReasonUnstable, Duration: time.Since(start)}
		}
		return Result{Status: Failed, Err: fmt.Errorf("stability check: %w", err), Duration: time.Since(start)}
	}

	if err := p.encode.Acquire(ctx, 1); err != nil {
		return Result{Status: Failed, Err: fmt.Errorf("waiting for encode slot: %w", err), Duration: time.Since(start)}
	}
	defer p.encode.Release(1)
	p.run.Metrics.EncodeStarted()
	defer p.run.Metrics.EncodeFinished()

	action, err := p.strategy.Decide(ctx, src)
	if err != nil {
		return Result{Status: Failed, Err: fmt.Errorf("deciding action: %w", err), Duration: time.Since(start)}
	}

	log.Info("converting", "action", action.Kind.String(), "note", action.Note, "destination", job.Destination)
	if err := p.strategy.Perform(ctx, action, src, job.Destination); err != nil {
		return Result{Status: Failed, Err: err, Action: action.Kind.String(), Duration: time.Since(start)}
	}

	return Result{Status: Succeeded, Action: action.Kind.String(), Duration: time.Since(start)}
}

func (p *Pool) finish(h *Handle, r Result) {
	h.resolve(r)
	p.run.Registry.Remove(h.Job.Source.Path, h)

	action := r.Action
	if action == "" {
		action = "none"
	}
	p.run.Metrics.JobFinished(r.Status.String(), action, r.Duration)

	log := p.run.Log.With("path", h.Job.Source.Path, "status", r.Status.String(), "duration", r.Duration.Round(time.Millisecond))
	switch r.Status {
	case Failed:
		log.Error("job failed", "error", r.Err)
	case Skipped:
		log.Info("job skipped", "reason", r.Reason)
	default:
		log.Info("job finished", "destination", h.Job.Destination)
	}
}
