package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CleanPath returns the absolute form of path and rejects traversal segments.
func CleanPath(path string) (string, error) {
	cleaned := filepath.Clean(path)

	for _, part := range strings.Split(filepath.ToSlash(cleaned), "/") {
		if part == ".." {
			return "", fmt.Errorf("invalid path %q: contains directory traversal", path)
		}
	}

	if !filepath.IsAbs(cleaned) {
		abs, err := filepath.Abs(cleaned)
		if err != nil {
			return "", fmt.Errorf("failed to resolve absolute path: %w", err)
		}
		cleaned = abs
	}

	return cleaned, nil
}

// ValidatePath ensures a path is within baseDir.
func ValidatePath(path, baseDir string) (string, error) {
	cleanedPath, err := CleanPath(path)
	if err != nil {
		return "", err
	}

	cleanedBase, err := CleanPath(baseDir)
	if err != nil {
		return "", err
	}

	if cleanedPath != cleanedBase && !strings.HasPrefix(cleanedPath, cleanedBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside %q", path, baseDir)
	}

	return cleanedPath, nil
}

// JoinPath joins elements onto base and verifies the result stays inside it.
// Table names become file names through this, so a model can never escape
// its output directory.
func JoinPath(base string, elements ...string) (string, error) {
	cleanedBase, err := CleanPath(base)
	if err != nil {
		return "", err
	}

	joined := filepath.Join(append([]string{cleanedBase}, elements...)...)
	return ValidatePath(joined, cleanedBase)
}

// EnsureDir creates dir (and parents) with normal permissions.
func EnsureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, DirPermissionNormal)
}
