// Package pathutil holds the path helpers used by config validation and planning.
package pathutil

import (
	"path/filepath"
	"runtime"
	"strings"
)

// Resolve joins p onto root unless p is already absolute. The result is cleaned.
func Resolve(root, p string) string {
	if p == "" {
		return filepath.Clean(root)
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// IsSamePath reports whether a and b name the same location after cleaning.
// Comparison is case-insensitive on Windows and macOS default volumes.
func IsSamePath(a, b string) bool {
	a, b = filepath.Clean(a), filepath.Clean(b)
	if caseInsensitiveFS() {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// IsInFolder reports whether p lies strictly inside folder.
// A path is not considered to be inside itself.
func IsInFolder(folder, p string) bool {
	folder, p = filepath.Clean(folder), filepath.Clean(p)
	if caseInsensitiveFS() {
		folder, p = strings.ToLower(folder), strings.ToLower(p)
	}
	rel, err := filepath.Rel(folder, p)
	if err != nil || rel == "." || rel == "" {
		return false
	}
	if filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// IsRoot reports whether p is a filesystem (or volume) root.
func IsRoot(p string) bool {
	p = filepath.Clean(p)
	return filepath.Dir(p) == p
}

// VolumeRoot returns the root of the volume p lives on ("/" on unix, "C:\" on Windows).
func VolumeRoot(p string) string {
	return filepath.VolumeName(p) + string(filepath.Separator)
}

// IsDotPath reports whether a relative path points at the current directory.
func IsDotPath(p string) bool {
	if p == "" {
		return false
	}
	return filepath.Clean(p) == "."
}

// RelSlash returns target relative to base using forward slashes,
// as used in generated package.json fields.
func RelSlash(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	return filepath.ToSlash(rel)
}

// StripExt returns the base name of p without its final extension.
func StripExt(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ReplaceTokens substitutes every "[token]" key in tokens with its value.
// Keys are given without brackets. Unknown tokens are left as is.
func ReplaceTokens(s string, tokens map[string]string) string {
	if !strings.Contains(s, "[") {
		return s
	}
	pairs := make([]string, 0, len(tokens)*2)
	for k, v := range tokens {
		pairs = append(pairs, "["+k+"]", v)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

func caseInsensitiveFS() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}
