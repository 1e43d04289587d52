// Package security guards the paths gram reads from sweep state files and
// the names it turns into directories.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutsideDirectory is returned when a path escapes the directory that
// must contain it.
var ErrOutsideDirectory = errors.New("security: path escapes directory")

// Within reports, without touching the filesystem, whether path is dir or
// lies beneath it once both are cleaned. Relative paths are compared as
// given.
func Within(path, dir string) error {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("%w: %s not under %s: %w", ErrOutsideDirectory, path, dir, err)
	}
	if escapes(rel) {
		return fmt.Errorf("%w: %s not under %s", ErrOutsideDirectory, path, dir)
	}
	return nil
}

// WithinResolved is Within after resolving symlinks, so a link inside dir
// that points elsewhere is rejected. A path that does not exist yet is
// resolved through its nearest existing parent. dir must exist.
func WithinResolved(path, dir string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory path: %w", err)
	}
	canonicalDir, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory symlinks: %w", err)
	}
	return Within(resolveExisting(absPath), canonicalDir)
}

// resolveExisting resolves symlinks in the longest existing prefix of p.
func resolveExisting(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	for parent := filepath.Dir(p); ; parent = filepath.Dir(parent) {
		if resolved, err := filepath.EvalSymlinks(parent); err == nil {
			rel, _ := filepath.Rel(parent, p)
			return filepath.Join(resolved, rel)
		}
		if parent == filepath.Dir(parent) {
			return p
		}
	}
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel)
}

// SanitizeName makes a directory-name-safe token from s. ASCII letters,
// digits, dot and dash are kept. Any run of other characters, underscores
// included, becomes a single underscore. The result is capped at 64 bytes
// and stripped of leading and trailing dots and underscores; if nothing is
// left it is "sweep".
func SanitizeName(s string) string {
	const maxLen = 64
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.' || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "sweep"
	}
	return out
}
