// Package pathmap maps source files to the destination file a converter
// produces for them.
package pathmap

import (
	"path/filepath"
	"strings"
)

// Destination returns the path inside destDir that the source file maps to
// when converted to ext.
func Destination(destDir, sourcePath, ext string) string {
	return filepath.Join(destDir, ReplaceExt(filepath.Base(sourcePath), ext))
}

// ReplaceExt substitutes the extension of name with ext. The name is
// returned unchanged when it already carries ext (case-insensitive); a name
// without an extension gets ext appended.
//
//	ReplaceExt("movie.mkv", "avi")  == "movie.avi"
//	ReplaceExt("movie.AVI", ".avi") == "movie.AVI"
//	ReplaceExt("README", ".avi")    == "README.avi"
//	ReplaceExt(".hidden", ".avi")   == ".hidden.avi"
func ReplaceExt(name, ext string) string {
	ext = NormalizeExt(ext)
	cur := Ext(name)
	// a bare ".avi" is what ReplaceExt("", ".avi") yields; keep it fixed
	if strings.EqualFold(cur, ext) || strings.EqualFold(name, ext) {
		return name
	}
	if cur == "" {
		return name + ext
	}
	return name[:len(name)-len(cur)] + ext
}

// Ext returns the extension of name including the dot. A leading dot is not
// an extension, so Ext(".hidden") is "".
func Ext(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return ""
	}
	return name[i:]
}

// NormalizeExt ensures ext starts with a dot.
func NormalizeExt(ext string) string {
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}
