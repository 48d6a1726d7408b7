package fsprobe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeLeavesNoFiles(t *testing.T) {
	dir := t.TempDir()
	res := Probe(dir, 0)
	if !res.FsnotifySupported {
		t.Skipf("fsnotify unsupported here: %s", res.Reason)
	}

	ents, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, ents)
}

func TestProbeRejectsMissingDir(t *testing.T) {
	res := Probe(filepath.Join(t.TempDir(), "missing"), 0)
	assert.False(t, res.FsnotifySupported)
	assert.Contains(t, res.Reason, "stat failed")
}

func TestProbeRejectsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(f, nil, 0o644))
	res := Probe(f, 0)
	assert.False(t, res.FsnotifySupported)
	assert.Equal(t, "not a directory", res.Reason)
}

func TestIsProbeFile(t *testing.T) {
	assert.True(t, IsProbeFile("/src/"+Prefix+"-12.tmp"))
	assert.False(t, IsProbeFile("/src/movie.mkv"))
}
