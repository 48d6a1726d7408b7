package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/raoulx24/media-mirror/internal/config"
	"github.com/raoulx24/media-mirror/internal/converter"
	"github.com/raoulx24/media-mirror/internal/fs"
	"github.com/raoulx24/media-mirror/internal/logging"
	"github.com/raoulx24/media-mirror/internal/metrics"
	"github.com/raoulx24/media-mirror/internal/orchestrator"
)

// app holds what lives for the whole process: logger, converter, metrics
// and the destination lock. Per-run state is owned by the orchestrator.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	fs       fs.FS
	strategy converter.Strategy
	metrics  *metrics.Collector

	lock   *flock.Flock
	server *http.Server
}

func newApp(cfg *config.Config, logOut io.Writer) (*app, error) {
	log, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: logOut,
	})
	if err != nil {
		return nil, err
	}

	f := fs.New()
	strategy, err := converter.New(cfg.Converter.Name, converter.Options{
		FS:         f,
		Executable: cfg.Converter.Executable,
	})
	if err != nil {
		return nil, err
	}

	if err := orchestrator.Preflight(f, cfg); err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		fs:       f,
		strategy: strategy,
		metrics:  metrics.NewCollector(),
	}

	if err := a.acquireLock(); err != nil {
		return nil, err
	}
	if err := a.serveMetrics(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) acquireLock() error {
	path := filepath.Join(a.cfg.Destination.Path, a.cfg.Destination.LockName)
	lock := flock.New(path)

	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another media-mirror instance is writing to %s", a.cfg.Destination.Path)
	}
	a.lock = lock
	return nil
}

func (a *app) serveMetrics() error {
	addr := a.cfg.Metrics.Listen
	if addr == "" {
		return nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	a.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server stopped", "error", err)
		}
	}()
	a.log.Info("serving metrics", "addr", ln.Addr().String())
	return nil
}

func (a *app) mirror(ctx context.Context) (orchestrator.Summary, error) {
	o := orchestrator.New(orchestrator.Options{
		Config:   a.cfg,
		FS:       a.fs,
		Strategy: a.strategy,
		Metrics:  a.metrics,
		Log:      a.log,
	})
	return o.Run(ctx)
}

func (a *app) close() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.server.Shutdown(ctx)
	}
	if a.lock != nil {
		if err := a.lock.Unlock(); err != nil {
			a.log.Warn("failed to release destination lock", "error", err)
		}
	}
}
