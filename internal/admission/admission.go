// Package admission turns the start-of-run directory snapshots into the set
// of jobs to execute.
package admission

import (
	"log/slog"

	"github.com/raoulx24/media-mirror/internal/pathmap"
	"github.com/raoulx24/media-mirror/internal/snapshot"
	"github.com/raoulx24/media-mirror/internal/worker"
)

// Admission is the outcome of one admission pass.
type Admission struct {
	Jobs []worker.Job
	// Valid is every source whose destination must be kept: readable files
	// plus unreadable files that were already converted. It is the
	// reconciler's baseline when the source cannot be listed mid-run.
	Valid            []snapshot.SourceEntry
	AlreadyConverted []string
	Unreadable       []string
	// Duplicates map onto a destination another source already claimed.
	Duplicates []string
}

// Admit decides which source files need a job. It only consults the two
// listings, which must have been taken once at the start of the run.
func Admit(source, dest snapshot.Listing, destDir, ext string, log *slog.Logger) Admission {
	var a Admission
	claimed := make(map[string]string)

	for _, e := range source.Entries {
		if e.IsDir {
			continue
		}

		target := pathmap.Destination(destDir, e.Path, ext)
		exists := dest.Contains(target)

		if !e.Readable {
			a.Unreadable = append(a.Unreadable, e.Path)
			if exists {
				log.Warn("cannot read source, keeping converted file", "path", e.Path, "destination", target)
				a.Valid = append(a.Valid, e)
			} else {
				log.Warn("cannot read source", "path", e.Path)
			}
			continue
		}

		a.Valid = append(a.Valid, e)

		if exists {
			a.AlreadyConverted = append(a.AlreadyConverted, e.Path)
			continue
		}

		if owner, ok := claimed[target]; ok {
			log.Warn("destination already claimed by another source", "path", e.Path, "owner", owner, "destination", target)
			a.Duplicates = append(a.Duplicates, e.Path)
			continue
		}
		claimed[target] = e.Path

		a.Jobs = append(a.Jobs, worker.Job{Source: e, Destination: target})
	}

	return a
}
