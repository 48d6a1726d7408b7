package orchestrator

import (
	"fmt"

	"github.com/raoulx24/media-mirror/internal/watchdog"
)

// AdmissionError is a fatal problem found before any job started, such as a
// missing source directory or an unlistable destination.
type AdmissionError struct {
	Op   string
	Path string
	Err  error
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *AdmissionError) Unwrap() error { return e.Err }

// OverrunError reports that the run deadline passed with jobs still
// outstanding. The watchdog has already killed them and removed their
// destinations.
type OverrunError struct {
	Overruns []watchdog.Overrun
}

func (e *OverrunError) Error() string {
	return fmt.Sprintf("run deadline exceeded with %d job(s) outstanding", len(e.Overruns))
}
