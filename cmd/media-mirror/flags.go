package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/raoulx24/media-mirror/internal/config"
)

type cliFlags struct {
	configPath        string
	workers           int
	deadline          time.Duration
	stabilityWindow   time.Duration
	reconcileInterval time.Duration
	metricsListen     string
	logLevel          string
	logFormat         string
}

func (f *cliFlags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "YAML configuration file")
	pf.IntVar(&f.workers, "workers", config.DefaultWorkers, "maximum jobs and tasks running at once")
	pf.DurationVar(&f.deadline, "deadline", config.DefaultDeadline, "run deadline after which running jobs are killed")
	pf.DurationVar(&f.stabilityWindow, "stability-window", config.DefaultStabilityWindow, "time a file size must stay unchanged before converting")
	pf.DurationVar(&f.reconcileInterval, "reconcile-interval", config.DefaultReconcileEvery, "interval between reconciliation passes during a run")
	pf.StringVar(&f.metricsListen, "metrics-listen", "", "address to serve Prometheus metrics on, e.g. :9090")
	pf.StringVar(&f.logLevel, "log-level", "info", "debug, info, warn or error")
	pf.StringVar(&f.logFormat, "log-format", "auto", "auto, text or json")
}

// buildConfig layers the config file, the positional arguments and the
// explicitly set flags, in that order, and validates the result.
func buildConfig(cmd *cobra.Command, f *cliFlags, args []string) (*config.Config, error) {
	cfg, err := config.Load(strings.TrimSpace(f.configPath))
	if err != nil {
		return nil, err
	}

	cfg.Source.Path = args[0]
	cfg.Destination.Path = args[1]

	encodeSet := false
	if len(args) > 2 {
		cfg.Converter.Name = args[2]
	}
	if len(args) > 3 {
		n, err := strconv.Atoi(args[3])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("encode-parallelism must be a positive integer, got %q", args[3])
		}
		cfg.Pool.EncodeWorkers = n
		encodeSet = true
	}

	fl := cmd.Flags()
	if fl.Changed("workers") {
		cfg.Pool.Workers = f.workers
	} else if encodeSet && cfg.Pool.EncodeWorkers > cfg.Pool.Workers {
		cfg.Pool.Workers = cfg.Pool.EncodeWorkers
	}
	if fl.Changed("deadline") {
		cfg.Watchdog.Deadline = f.deadline
	}
	if fl.Changed("stability-window") {
		cfg.Stability.Window = f.stabilityWindow
	}
	if fl.Changed("reconcile-interval") {
		cfg.Reconcile.Interval = f.reconcileInterval
	}
	if fl.Changed("metrics-listen") {
		cfg.Metrics.Listen = f.metricsListen
	}
	if fl.Changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if fl.Changed("log-format") {
		cfg.Logging.Format = f.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
