// Package sanitise normalises what experiments hand to the store: artifact
// paths become storage-root-relative, and arbitrary numeric values become
// JSON-safe primitive trees.
package sanitise

import (
	"fmt"
	"path/filepath"
)

// Path returns path relative to root. Both are made absolute first, so a
// relative path is interpreted against the working directory. Paths outside
// root come back with leading "../" elements.
//
// Rotating root invalidates every relative path stored under the old one.
func Path(path, root string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %q: %w", path, err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root %q: %w", root, err)
	}

	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return "", fmt.Errorf("path %q is not reachable from root %q: %w", path, root, err)
	}
	return filepath.ToSlash(rel), nil
}

// Unpath joins a stored relative path back onto root.
func Unpath(rel, root string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}
