package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultConverter        = "mencoder"
	DefaultLockName         = ".media-mirror.lock"
	DefaultWorkers          = 8
	DefaultEncodeWorkers    = 4
	DefaultProgressInterval = time.Minute
	DefaultStabilityWindow  = 10 * time.Second
	DefaultDeadline         = 48 * time.Hour
	DefaultReconcileEvery   = 10 * time.Minute
	DefaultPollInterval     = time.Minute
	DefaultDebounceWindow   = 5 * time.Second
)

// Default returns a configuration populated with the built-in defaults.
// Source and destination paths are left empty.
func Default() *Config {
	return &Config{
		Destination: DestinationConfig{LockName: DefaultLockName},
		Converter:   ConverterConfig{Name: DefaultConverter},
		Pool: PoolConfig{
			Workers:          DefaultWorkers,
			EncodeWorkers:    DefaultEncodeWorkers,
			ProgressInterval: DefaultProgressInterval,
		},
		Stability: StabilityConfig{Window: DefaultStabilityWindow},
		Watchdog:  WatchdogConfig{Deadline: DefaultDeadline},
		Reconcile: ReconcileConfig{Interval: DefaultReconcileEvery},
		Watch: WatchConfig{
			Mode:           "auto",
			PollInterval:   DefaultPollInterval,
			DebounceWindow: DefaultDebounceWindow,
		},
		Logging: LoggingConfig{Level: "info", Format: "auto"},
	}
}

// applyDefaults fills zero values left by a partial YAML document.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Destination.LockName == "" {
		c.Destination.LockName = d.Destination.LockName
	}
	if c.Converter.Name == "" {
		c.Converter.Name = d.Converter.Name
	}
	if c.Pool.Workers == 0 {
		c.Pool.Workers = d.Pool.Workers
	}
	if c.Pool.EncodeWorkers == 0 {
		c.Pool.EncodeWorkers = d.Pool.EncodeWorkers
	}
	if c.Pool.ProgressInterval == 0 {
		c.Pool.ProgressInterval = d.Pool.ProgressInterval
	}
	if c.Stability.Window == 0 {
		c.Stability.Window = d.Stability.Window
	}
	if c.Watchdog.Deadline == 0 {
		c.Watchdog.Deadline = d.Watchdog.Deadline
	}
	if c.Reconcile.Interval == 0 {
		c.Reconcile.Interval = d.Reconcile.Interval
	}
	if c.Watch.Mode == "" {
		c.Watch.Mode = d.Watch.Mode
	}
	if c.Watch.PollInterval == 0 {
		c.Watch.PollInterval = d.Watch.PollInterval
	}
	if c.Watch.DebounceWindow == 0 {
		c.Watch.DebounceWindow = d.Watch.DebounceWindow
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
}

// Validate reports the first invalid setting found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Source.Path) == "" {
		return errors.New("source path is required")
	}
	if strings.TrimSpace(c.Destination.Path) == "" {
		return errors.New("destination path is required")
	}
	if c.Pool.Workers < 1 {
		return fmt.Errorf("pool.workers must be positive, got %d", c.Pool.Workers)
	}
	if c.Pool.EncodeWorkers < 1 {
		return fmt.Errorf("pool.encodeWorkers must be positive, got %d", c.Pool.EncodeWorkers)
	}
	if c.Pool.EncodeWorkers > c.Pool.Workers {
		return fmt.Errorf("pool.encodeWorkers (%d) exceeds pool.workers (%d)", c.Pool.EncodeWorkers, c.Pool.Workers)
	}
	if c.Stability.Window < 0 {
		return fmt.Errorf("stability.window must not be negative")
	}
	if c.Stability.MaxRechecks < 0 {
		return fmt.Errorf("stability.maxRechecks must not be negative")
	}
	if c.Watchdog.Deadline <= 0 {
		return fmt.Errorf("watchdog.deadline must be positive")
	}
	if c.Reconcile.Interval <= 0 {
		return fmt.Errorf("reconcile.interval must be positive")
	}
	switch c.Watch.Mode {
	case "auto", "poll", "fsnotify":
	default:
		return fmt.Errorf("watch.mode: unknown mode %q", c.Watch.Mode)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "auto", "json", "text":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

// ReconcileIgnore returns the destination names the reconciler must keep,
// always including the lock file.
func (c *Config) ReconcileIgnore() []string {
	out := append([]string(nil), c.Reconcile.Ignore...)
	return append(out, c.Destination.LockName)
}
