package worker

import (
	"log/slog"
	"time"

	"github.com/raoulx24/media-mirror/internal/metrics"
)

// Run is the per-run state shared by the pool, the watchdog and the
// orchestrator. A new Run is created for every mirror pass.
type Run struct {
	ID       string
	Started  time.Time
	Registry *Registry
	Metrics  *metrics.Collector
	Log      *slog.Logger
}

func NewRun(id string, started time.Time, m *metrics.Collector, log *slog.Logger) *Run {
	return &Run{
		ID:       id,
		Started:  started,
		Registry: NewRegistry(),
		Metrics:  m,
		Log:      log.With("run_id", id),
	}
}
