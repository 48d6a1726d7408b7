package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raoulx24/media-mirror/internal/config"
	"github.com/raoulx24/media-mirror/internal/converter"
	"github.com/raoulx24/media-mirror/internal/fs"
	"github.com/raoulx24/media-mirror/internal/logging"
	"github.com/raoulx24/media-mirror/internal/metrics"
	"github.com/raoulx24/media-mirror/internal/pathmap"
)

// recordingStrategy copies .avi sources and "encodes" everything else by
// writing a marker file.
type recordingStrategy struct {
	mu      sync.Mutex
	actions map[string]string
	fail    map[string]bool
	block   bool
	// partial writes the destination before blocking
	partial bool
}

func (s *recordingStrategy) ProducedExtension() string { return ".avi" }

func (s *recordingStrategy) Decide(_ context.Context, src string) (converter.Action, error) {
	if pathmap.Ext(src) == ".avi" {
		return converter.Action{Kind: converter.Copy}, nil
	}
	return converter.Action{Kind: converter.Encode}, nil
}

func (s *recordingStrategy) Perform(ctx context.Context, a converter.Action, src, dst string) error {
	s.mu.Lock()
	if s.actions == nil {
		s.actions = map[string]string{}
	}
	s.actions[filepath.Base(src)] = a.Kind.String()
	s.mu.Unlock()

	if s.block {
		if s.partial {
			if err := os.WriteFile(dst, []byte("partial"), 0o644); err != nil {
				return err
			}
		}
		<-ctx.Done()
		return ctx.Err()
	}
	if s.fail[filepath.Base(src)] {
		return errors.New("encoder exited with status 1")
	}
	return os.WriteFile(dst, []byte(a.Kind.String()+":"+filepath.Base(src)), 0o644)
}

func (s *recordingStrategy) seen() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]string{}
	for k, v := range s.actions {
		out[k] = v
	}
	return out
}

type env struct {
	src, dst string
	cfg      *config.Config
	strategy *recordingStrategy
	fsys     fs.FS
	exits    []int
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{src: t.TempDir(), dst: t.TempDir(), strategy: &recordingStrategy{}}
	e.cfg = config.Default()
	e.cfg.Source.Path = e.src
	e.cfg.Destination.Path = e.dst
	e.cfg.Stability.Window = 0
	e.fsys = fs.New()
	return e
}

func (e *env) orchestrator() *Orchestrator {
	return New(Options{
		Config:   e.cfg,
		FS:       e.fsys,
		Strategy: e.strategy,
		Metrics:  metrics.NewCollector(),
		Log:      logging.Discard(),
		Exit:     func(code int) { e.exits = append(e.exits, code) },
	})
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
}

func names(t *testing.T, dir string) []string {
	t.Helper()
	ents, err := os.ReadDir(dir)
	require.NoError(t, err)
	var out []string
	for _, e := range ents {
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func TestMirrorLifecycle(t *testing.T) {
	e := newEnv(t)
	touch(t, e.src, "a.mkv")
	touch(t, e.src, "b.avi")

	o := e.orchestrator()
	sum, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Done, o.State())

	assert.Equal(t, 2, sum.Admitted)
	assert.Equal(t, 2, sum.Succeeded)
	assert.Zero(t, sum.Failed)
	assert.NotEmpty(t, sum.RunID)
	assert.Equal(t, []string{"a.avi", "b.avi"}, names(t, e.dst))
	assert.Equal(t, map[string]string{"a.mkv": "encode", "b.avi": "copy"}, e.strategy.seen())

	// nothing left to do
	sum, err = e.orchestrator().Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.Admitted)
	assert.Equal(t, 2, sum.AlreadyConverted)
	assert.Zero(t, sum.Deleted)

	// a source disappears, its destination follows
	require.NoError(t, os.Remove(filepath.Join(e.src, "a.mkv")))
	sum, err = e.orchestrator().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Deleted)
	assert.Equal(t, []string{"b.avi"}, names(t, e.dst))
	assert.Empty(t, e.exits)
}

func TestOrphanRemovedWhileNewFileConverted(t *testing.T) {
	e := newEnv(t)
	touch(t, e.src, "new.mkv")
	touch(t, e.dst, "c.avi")

	sum, err := e.orchestrator().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 1, sum.Deleted)
	assert.Equal(t, []string{"new.avi"}, names(t, e.dst))
}

func TestFailedJobIsReportedNotFatal(t *testing.T) {
	e := newEnv(t)
	e.strategy.fail = map[string]bool{"bad.mkv": true}
	touch(t, e.src, "bad.mkv")
	touch(t, e.src, "good.mkv")

	sum, err := e.orchestrator().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	require.Len(t, sum.Failures, 1)
	assert.Equal(t, filepath.Join(e.src, "bad.mkv"), sum.Failures[0].Source)
	assert.ErrorContains(t, sum.Failures[0].Err, "status 1")
}

func TestIdleRunStillReconciles(t *testing.T) {
	e := newEnv(t)
	touch(t, e.dst, "stale.avi")
	touch(t, e.dst, config.DefaultLockName)

	sum, err := e.orchestrator().Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.Admitted)
	assert.Equal(t, 1, sum.Deleted)
	assert.Equal(t, []string{config.DefaultLockName}, names(t, e.dst))
}

func TestMissingSourceIsAdmissionError(t *testing.T) {
	e := newEnv(t)
	e.cfg.Source.Path = filepath.Join(e.src, "nope")

	_, err := e.orchestrator().Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsAdmission(err))
	assert.Empty(t, e.strategy.seen())
}

func TestCancelledRunFailsJobsAndSkipsFinalReconcile(t *testing.T) {
	e := newEnv(t)
	e.strategy.block = true
	touch(t, e.src, "slow.mkv")
	touch(t, e.dst, "orphan.avi")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for len(e.strategy.seen()) == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	sum, err := e.orchestrator().Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sum.Failed)
	assert.FileExists(t, filepath.Join(e.dst, "orphan.avi"))
}

type slowRemove struct {
	fs.FS
	delay time.Duration
}

func (f slowRemove) Remove(path string) error {
	time.Sleep(f.delay)
	return f.FS.Remove(path)
}

func TestOverrunWaitsForSweepAndFails(t *testing.T) {
	e := newEnv(t)
	e.strategy.block = true
	e.strategy.partial = true
	e.fsys = slowRemove{FS: fs.New(), delay: 200 * time.Millisecond}
	e.cfg.Watchdog.Deadline = 100 * time.Millisecond
	touch(t, e.src, "stuck.mkv")
	touch(t, e.dst, "orphan.avi")

	o := e.orchestrator()
	sum, err := o.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsOverrun(err))

	var oe *OverrunError
	require.ErrorAs(t, err, &oe)
	require.Len(t, oe.Overruns, 1)
	assert.Equal(t, filepath.Join(e.src, "stuck.mkv"), oe.Overruns[0].Source)
	assert.True(t, oe.Overruns[0].Removed)

	// cleanup and exit happened before Run returned
	assert.Equal(t, []int{1}, e.exits)
	assert.NoFileExists(t, filepath.Join(e.dst, "stuck.avi"))
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, Done, o.State())

	// no final reconcile after an overrun
	assert.FileExists(t, filepath.Join(e.dst, "orphan.avi"))
}

func TestPreflight(t *testing.T) {
	e := newEnv(t)
	f := fs.New()

	e.cfg.Destination.Path = filepath.Join(e.dst, "nested", "out")
	require.NoError(t, Preflight(f, e.cfg))
	assert.DirExists(t, e.cfg.Destination.Path)

	file := filepath.Join(e.src, "file.mkv")
	touch(t, e.src, "file.mkv")
	e.cfg.Source.Path = file
	err := Preflight(f, e.cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, errNotDir)

	e.cfg.Source.Path = e.src
	e.cfg.Destination.Path = e.src + string(filepath.Separator)
	assert.ErrorIs(t, Preflight(f, e.cfg), errSame)
}

func TestSummaryCountsAreConsistent(t *testing.T) {
	e := newEnv(t)
	for _, n := range []string{"1.mkv", "2.mkv", "3.mp4", "4.avi"} {
		touch(t, e.src, n)
	}
	touch(t, e.dst, "4.avi")
	require.NoError(t, os.Mkdir(filepath.Join(e.src, "dir.mkv"), 0o755))

	sum, err := e.orchestrator().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sum.Admitted, sum.Succeeded+sum.Failed+sum.Skipped)
	assert.Equal(t, 3, sum.Admitted)
	assert.Equal(t, 1, sum.AlreadyConverted)
}
