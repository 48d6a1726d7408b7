// Package config holds the media-mirror configuration model.
package config

import "time"

type Config struct {
	Source      SourceConfig      `yaml:"source"`
	Destination DestinationConfig `yaml:"destination"`
	Converter   ConverterConfig   `yaml:"converter"`
	Pool        PoolConfig        `yaml:"pool"`
	Stability   StabilityConfig   `yaml:"stability"`
	Watchdog    WatchdogConfig    `yaml:"watchdog"`
	Reconcile   ReconcileConfig   `yaml:"reconcile"`
	Watch       WatchConfig       `yaml:"watch"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type SourceConfig struct {
	Path string `yaml:"path"`
}

type DestinationConfig struct {
	Path     string `yaml:"path"`
	LockName string `yaml:"lockName"` // created inside Path
}

type ConverterConfig struct {
	Name string `yaml:"name"` // "mencoder", "libav"

	// Executable overrides the encoder binary; empty means look it up on PATH.
	Executable string `yaml:"executable"`
}

type PoolConfig struct {
	Workers          int           `yaml:"workers"`
	EncodeWorkers    int           `yaml:"encodeWorkers"`
	ProgressInterval time.Duration `yaml:"progressInterval"`
}

type StabilityConfig struct {
	Window      time.Duration `yaml:"window"`
	MaxRechecks int           `yaml:"maxRechecks"`
}

type WatchdogConfig struct {
	Deadline time.Duration `yaml:"deadline"`
}

type ReconcileConfig struct {
	Interval time.Duration `yaml:"interval"`
	Ignore   []string      `yaml:"ignore"` // glob patterns on destination names
}

type WatchConfig struct {
	Mode           string        `yaml:"mode"`           // "auto", "poll", "fsnotify"
	PollInterval   time.Duration `yaml:"pollInterval"`   // e.g. 1m
	DebounceWindow time.Duration `yaml:"debounceWindow"` // e.g. 5s
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "auto", "json", "text"
}

type MetricsConfig struct {
	Listen string `yaml:"listen"` // e.g. ":9090"; empty disables
}
