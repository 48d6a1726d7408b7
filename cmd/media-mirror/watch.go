package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/raoulx24/media-mirror/internal/config"
	"github.com/raoulx24/media-mirror/internal/mailbox"
	"github.com/raoulx24/media-mirror/internal/orchestrator"
	"github.com/raoulx24/media-mirror/internal/watcher"
)

func newWatchCommand(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [flags] " + argsUsage,
		Short: "Mirror once, then again whenever the source directory changes",
		Args:  cobra.RangeArgs(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, flags, args)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true
			return runWatch(cmd, cfg)
		},
	}
}

func runWatch(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()

	a, err := newApp(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	mb := mailbox.New[watcher.Trigger]()
	w := watcher.New(cfg, a.fs, a.log.With("component", "watcher"), mb)
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Wait()

	mb.Put(watcher.Trigger{Reason: "startup", At: time.Now()})
	return serveTriggers(ctx, a, mb, func(s orchestrator.Summary) {
		_, _ = cmd.OutOrStdout().Write([]byte(renderSummary(s) + "\n"))
	})
}

// serveTriggers runs one mirror pass per trigger. Runs never overlap; triggers
// arriving during a run collapse into one follow-up run.
func serveTriggers(ctx context.Context, a *app, mb *mailbox.Mailbox[watcher.Trigger], report func(orchestrator.Summary)) error {
	for {
		tr, err := mb.Take(ctx)
		if err != nil {
			return nil
		}

		a.log.Info("starting run", "reason", tr.Reason)
		sum, err := a.mirror(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			return nil
		case orchestrator.IsOverrun(err):
			return err
		case err != nil:
			// the source may come back; keep watching
			a.log.Error("run failed", "error", err)
			continue
		}
		report(sum)

		if sum.Skipped > 0 {
			retryUnstable(ctx, mb, a.cfg.Stability.Window)
		}
	}
}

// retryUnstable re-triggers after a stability window so files skipped while
// still being written are picked up even if nothing else changes.
func retryUnstable(ctx context.Context, mb *mailbox.Mailbox[watcher.Trigger], window time.Duration) {
	t := time.AfterFunc(window, func() {
		if ctx.Err() == nil {
			mb.Put(watcher.Trigger{Reason: "retry-unstable", At: time.Now()})
		}
	})
	context.AfterFunc(ctx, func() { t.Stop() })
}
