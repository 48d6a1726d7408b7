package pathmap

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplaceExt(t *testing.T) {
	tests := []struct {
		name, ext, want string
	}{
		{"movie.mkv", ".avi", "movie.avi"},
		{"movie.mkv", "avi", "movie.avi"},
		{"movie.avi", ".avi", "movie.avi"},
		{"movie.AVI", ".avi", "movie.AVI"},
		{"show.s01e01.mkv", ".mp4", "show.s01e01.mp4"},
		{"README", ".avi", "README.avi"},
		{".hidden", ".avi", ".hidden.avi"},
		{"trailing.", ".avi", "trailing.avi"},
		{"", ".avi", ".avi"},
		{"clip.mkv", "", "clip"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ReplaceExt(tt.name, tt.ext), "ReplaceExt(%q, %q)", tt.name, tt.ext)
	}
}

func TestReplaceExtIsIdempotent(t *testing.T) {
	names := []string{
		"a.mkv", "b.avi", "C.AVI", "noext", ".dot", "..", ".", "", "x.tar.gz",
		"weird name with spaces.MP4", "ünïcödé.webm", "a.b.c.", "...avi",
	}
	exts := []string{".avi", "mp4", ".MKV", ""}

	for _, ext := range exts {
		for _, n := range names {
			once := ReplaceExt(n, ext)
			assert.Equal(t, once, ReplaceExt(once, ext), "name=%q ext=%q", n, ext)
		}
	}
}

func TestDestination(t *testing.T) {
	got := Destination("/out", "/in/sub/film.mkv", ".avi")
	assert.Equal(t, filepath.Join("/out", "film.avi"), got)

	assert.Equal(t, got, Destination("/out", got, ".avi"))
}

func TestExt(t *testing.T) {
	assert.Equal(t, ".mkv", Ext("a.mkv"))
	assert.Equal(t, "", Ext(".bashrc"))
	assert.Equal(t, "", Ext("plain"))
	assert.Equal(t, ".gz", Ext("a.tar.gz"))
}
