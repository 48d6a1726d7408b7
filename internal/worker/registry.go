package worker

import (
	"errors"
	"sort"
	"sync"
)

// ErrAlreadyInFlight is returned when a source already has an outstanding job.
var ErrAlreadyInFlight = errors.New("job already in flight for source")

// Registry maps source paths to the handle of their outstanding job. It is
// shared by the pool's completion path, the watchdog sweep and the
// orchestrator.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*Handle
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Handle)}
}

// Register records h as the job for source. A second registration for the
// same source fails while the first is still present.
func (r *Registry) Register(source string, h *Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[source]; ok {
		return ErrAlreadyInFlight
	}
	r.jobs[source] = h
	return nil
}

// Remove deletes the entry for source if it still points at h.
func (r *Registry) Remove(source string, h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.jobs[source]; ok && cur == h {
		delete(r.jobs, source)
	}
}

// Outstanding returns the handles that have not completed, ordered by
// source path.
func (r *Registry) Outstanding() []*Handle {
	r.mu.Lock()
	out := make([]*Handle, 0, len(r.jobs))
	for _, h := range r.jobs {
		if !h.Completed() {
			out = append(out, h)
		}
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Job.Source.Path < out[j].Job.Source.Path })
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}
