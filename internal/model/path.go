package model

import (
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName trims and NFC normalizes a variation or column name.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// NormalizePath cleans an absolute type table path.
//
// "/a//b/./c/" becomes "/a/b/c". Relative paths, the root itself and
// names containing ':' (the request separator) are rejected.
func NormalizePath(p string) (string, error) {
	trimmed := norm.NFC.String(strings.TrimSpace(p))
	if trimmed == "" {
		return "", NewInvalidPathError(p, "table path is empty")
	}
	if !strings.HasPrefix(trimmed, "/") {
		return "", NewInvalidPathError(p, "table path must be absolute")
	}
	if strings.Contains(trimmed, ":") {
		return "", NewInvalidPathError(p, "table path must not contain ':'")
	}
	cleaned := path.Clean(trimmed)
	if cleaned == "/" {
		return "", NewInvalidPathError(p, "table path names the root directory")
	}
	return cleaned, nil
}

// SplitPath splits a normalized path into its directory and final name.
// SplitPath("/a/b/c") returns ("/a/b", "c"); SplitPath("/c") returns ("/", "c").
func SplitPath(p string) (dir, name string) {
	dir, name = path.Split(p)
	if dir != "/" {
		dir = strings.TrimSuffix(dir, "/")
	}
	return dir, name
}

// PathElements returns the directory names of a normalized directory path.
// PathElements("/a/b") returns ["a", "b"]; PathElements("/") returns nil.
func PathElements(dir string) []string {
	trimmed := strings.Trim(dir, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
