package worker

import (
	"context"
	"sync"
)

// Handle tracks completion of one submitted job.
type Handle struct {
	Job Job

	once   sync.Once
	done   chan struct{}
	result Result
}

func newHandle(job Job) *Handle {
	return &Handle{Job: job, done: make(chan struct{})}
}

func (h *Handle) resolve(r Result) {
	h.once.Do(func() {
		h.result = r
		close(h.done)
	})
}

// Done is closed once the job has a result.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Completed reports whether the job finished, without blocking.
func (h *Handle) Completed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Result returns the job outcome. Only meaningful once Completed is true.
func (h *Handle) Result() Result {
	<-h.done
	return h.result
}

// Wait blocks until the job completes or ctx is done.
func (h *Handle) Wait(ctx context.Context) (Result, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
