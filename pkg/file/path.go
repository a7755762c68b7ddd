package file

import (
	"path/filepath"
	"strings"
)

func ReplaceExt(path, ext string) string {
	if path == "" {
		return path
	}

	dir := filepath.Dir(path)
	filename := filepath.Base(path)

	lastDot := strings.LastIndex(filename, ".")

	if lastDot <= 0 {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		return filepath.Join(dir, filename+ext)
	}

	nameWithoutExt := filename[:lastDot]

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	return filepath.Join(dir, nameWithoutExt+ext)
}

// InsertBeforeExt splices s between the file name and its extension, so
// InsertBeforeExt("dir/messages.po", ".fa") is "dir/messages.fa.po".
// Paths without an extension get s appended.
func InsertBeforeExt(path, s string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + s + ext
}
