package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raoulx24/media-mirror/internal/config"
	"github.com/raoulx24/media-mirror/internal/orchestrator"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// parse runs the root command's flag parsing and returns the merged config
// without mirroring anything.
func parse(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	flags := &cliFlags{}
	var cfg *config.Config
	cmd := &cobra.Command{
		Use:  "test",
		Args: cobra.RangeArgs(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = buildConfig(cmd, flags, args)
			return err
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags.register(cmd)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return cfg, err
}

func TestPositionalArguments(t *testing.T) {
	cfg, err := parse(t, "/in", "/out", "libav", "2")
	require.NoError(t, err)
	assert.Equal(t, "/in", cfg.Source.Path)
	assert.Equal(t, "/out", cfg.Destination.Path)
	assert.Equal(t, "libav", cfg.Converter.Name)
	assert.Equal(t, 2, cfg.Pool.EncodeWorkers)
	assert.Equal(t, config.DefaultWorkers, cfg.Pool.Workers)
}

func TestEncodeParallelismRaisesWorkers(t *testing.T) {
	cfg, err := parse(t, "/in", "/out", "mencoder", "16")
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Pool.Workers)

	_, err = parse(t, "--workers", "4", "/in", "/out", "mencoder", "16")
	assert.Error(t, err)
}

func TestInvalidEncodeParallelism(t *testing.T) {
	for _, v := range []string{"0", "-1", "many"} {
		_, err := parse(t, "/in", "/out", "mencoder", v)
		assert.ErrorContains(t, err, "encode-parallelism", v)
	}
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.yaml")
	doc := "pool:\n  workers: 3\n  encodeWorkers: 2\nwatchdog:\n  deadline: 1h\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := parse(t, "-c", path, "--deadline", "2h", "/in", "/out")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Pool.Workers)
	assert.Equal(t, 2, cfg.Pool.EncodeWorkers)
	assert.Equal(t, 2*time.Hour, cfg.Watchdog.Deadline)
}

func TestMissingArgumentsPrintUsage(t *testing.T) {
	out, errOut, err := execute(t, "/only-source")
	require.Error(t, err)
	assert.Contains(t, out+errOut, "Usage:")
}

func TestUnknownConverter(t *testing.T) {
	_, _, err := execute(t, t.TempDir(), t.TempDir(), "handbrake", "--log-format", "json")
	assert.ErrorContains(t, err, "unknown converter")
}

func TestMissingSourceFails(t *testing.T) {
	_, _, err := execute(t, filepath.Join(t.TempDir(), "missing"), t.TempDir(), "--log-format", "json")
	require.Error(t, err)
	var ae *orchestrator.AdmissionError
	assert.True(t, errors.As(err, &ae))
}

func TestMirrorCopiesAviAndPrintsSummary(t *testing.T) {
	src, dst := t.TempDir(), filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.WriteFile(filepath.Join(src, "clip.avi"), []byte("avi data"), 0o644))

	out, _, err := execute(t, "--stability-window", "0s", "--log-format", "json", src, dst, "mencoder", "1")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dst, "clip.avi"))
	require.NoError(t, err)
	assert.Equal(t, "avi data", string(data))
	assert.Contains(t, out, "succeeded")

	// the lock is released after the run
	lock := flock.New(filepath.Join(dst, config.DefaultLockName))
	ok, err := lock.TryLock()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, lock.Unlock())
}

func TestSecondInstanceFailsFast(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	lock := flock.New(filepath.Join(dst, config.DefaultLockName))
	ok, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer lock.Unlock()

	_, _, err = execute(t, "--log-format", "json", src, dst)
	assert.ErrorContains(t, err, "another media-mirror instance")
}

func TestRenderSummaryListsFailures(t *testing.T) {
	out := renderSummary(orchestrator.Summary{
		RunID:     "r1",
		Admitted:  2,
		Succeeded: 1,
		Failed:    1,
		Failures:  []orchestrator.Failure{{Source: "/in/bad.mkv", Err: errors.New("exit status 1")}},
	})
	assert.Contains(t, out, "run r1")
	assert.Contains(t, out, "bad.mkv")
	assert.Contains(t, out, "exit status 1")
}
