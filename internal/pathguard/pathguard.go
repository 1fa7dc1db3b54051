// Package pathguard validates that a candidate path stays inside a base directory.
package pathguard

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrPathEscape is returned when a candidate path resolves outside its base.
var ErrPathEscape = errors.New("path escapes base directory")

// Within resolves candidate against base and returns the cleaned absolute
// path. Relative candidates are anchored at base. The check is segment-aware:
// a sibling directory sharing the base as a string prefix is still rejected.
func Within(base, candidate string) (string, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory %s: %w", base, err)
	}
	// The base may itself be behind a symlink; compare against the real path
	// when it exists.
	if resolved, err := filepath.EvalSymlinks(absBase); err == nil {
		absBase = resolved
	}

	target := candidate
	if !filepath.IsAbs(target) {
		target = filepath.Join(absBase, target)
	}
	target = filepath.Clean(target)

	rel, err := filepath.Rel(absBase, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside %s", ErrPathEscape, candidate, absBase)
	}

	return target, nil
}
