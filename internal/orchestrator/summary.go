package orchestrator

import (
	"time"

	"github.com/raoulx24/media-mirror/internal/worker"
)

// Failure is one job that did not succeed.
type Failure struct {
	Source string
	Err    error
}

// Summary describes a finished run.
type Summary struct {
	RunID    string
	Started  time.Time
	Duration time.Duration

	Admitted         int
	Succeeded        int
	Failed           int
	Skipped          int
	AlreadyConverted int
	Unreadable       int
	Duplicates       int
	Deleted          int
	DeleteFailures   int

	Failures []Failure
}

func (s *Summary) add(h *worker.Handle) {
	r := h.Result()
	switch r.Status {
	case worker.Succeeded:
		s.Succeeded++
	case worker.Skipped:
		s.Skipped++
	default:
		s.Failed++
		s.Failures = append(s.Failures, Failure{Source: h.Job.Source.Path, Err: r.Err})
	}
}
