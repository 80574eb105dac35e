package fsops

import (
	"path/filepath"
	"strings"
)

// Path joins segments with the platform path separator
func Path(segments ...string) string {
	return filepath.Join(segments...)
}

// Join concatenates parts with sep between each pair
func Join(sep string, parts ...string) string {
	return strings.Join(parts, sep)
}

// Concat concatenates parts without a separator
func Concat(parts ...string) string {
	return strings.Join(parts, "")
}

func isDots(name string) bool {
	return name == "." || name == ".."
}
