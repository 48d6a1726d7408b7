package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raoulx24/media-mirror/internal/clock"
	"github.com/raoulx24/media-mirror/internal/fs"
)

func TestScan(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mkv"), make([]byte, 100), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "extras"), 0o755))

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l, err := Scan(fs.New(), clock.NewFake(now), dir)
	require.NoError(t, err)

	require.Len(t, l.Entries, 2)
	a := l.Entries[0]
	assert.Equal(t, "a.mkv", a.Name)
	assert.Equal(t, int64(100), a.Size)
	assert.Equal(t, now, a.SizeAt)
	assert.True(t, a.Readable)
	assert.False(t, a.IsDir)

	assert.True(t, l.Entries[1].IsDir)
	assert.True(t, l.Contains(filepath.Join(dir, "a.mkv")))
	assert.False(t, l.Contains(filepath.Join(dir, "extras")))
	assert.Len(t, l.Files(), 1)
}

func TestScanMissingDir(t *testing.T) {
	_, err := Scan(fs.New(), clock.Real{}, filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
