// Package version carries build metadata stamped into sweep state files and
// printed by the command-line tools. Values are set with -ldflags -X.
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns a one-line description such as "gram dev (commit unknown)".
func String() string {
	return fmt.Sprintf("gram %s (commit %s, built %s)", Version, GitSHA, BuildTime)
}

// Map returns the build metadata for JSON output.
func Map() map[string]string {
	return map[string]string{
		"version":    Version,
		"git_sha":    GitSHA,
		"build_time": BuildTime,
	}
}
