// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/gram/internal/fsutil"
)

// FixedTime is the reference instant used by tests that need deterministic
// sweep directory names (stamp 260119_143005).
var FixedTime = time.Date(2026, 1, 19, 14, 30, 5, 0, time.UTC)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertErrorIs fails the test unless errors.Is(err, target).
func AssertErrorIs(t testing.TB, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected error matching %v, got %v", target, err)
	}
}

// ReadLines reads a newline-terminated text file and returns its lines.
// It fails the test if the file is missing or not newline-terminated.
func ReadLines(t testing.TB, fsys fsutil.FileSystem, path string) []string {
	t.Helper()
	data, err := fsys.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	text := string(data)
	if text == "" {
		return nil
	}
	if !strings.HasSuffix(text, "\n") {
		t.Fatalf("%s is not newline-terminated", path)
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
