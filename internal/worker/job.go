package worker

import (
	"fmt"
	"time"

	"github.com/raoulx24/media-mirror/internal/snapshot"
)

// Job converts one source file into one destination file.
type Job struct {
	Source      snapshot.SourceEntry
	Destination string
}

type Status int

const (
	Succeeded Status = iota
	Failed
	Skipped
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ReasonUnstable is attached to a Skipped result when the source was still
// being written. Already converted sources never become jobs; admission
// counts them instead.
const ReasonUnstable = "unstable-file"

// Result is what a job's handle resolves to.
type Result struct {
	Status   Status
	Reason   string
	Err      error
	Action   string // "copy", "encode" or "" when the converter never ran
	Duration time.Duration
}
