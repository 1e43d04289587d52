package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gram/internal/catalog"
	"github.com/banshee-data/gram/internal/fsutil"
	"github.com/banshee-data/gram/internal/scheduler"
	"github.com/banshee-data/gram/internal/sweep"
	"github.com/banshee-data/gram/internal/testutil"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// buildSweep builds a small sweep under a temp dir and returns its directory.
func buildSweep(t *testing.T, extra ...string) string {
	t.Helper()
	dir := t.TempDir()
	args := append([]string{"build", "--kind", "linear", "--samples", "4", "--out", dir, "--run-command", "sh"}, extra...)
	_, err := execute(t, args...)
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, "LinearSweep_*"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	return matches[0]
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"build", "show", "inspect", "list", "submit", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "gram "), out)

	out, err = execute(t, "version", "--json")
	require.NoError(t, err)
	var m map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Contains(t, m, "version")
}

func TestBuildCmd_WritesSweep(t *testing.T) {
	path := buildSweep(t)

	for _, name := range []string{sweep.StateFile, "scripts/paths.txt", "scripts/run.sh", "scripts/job_submission.sh"} {
		_, err := os.Stat(filepath.Join(path, name))
		assert.NoError(t, err, name)
	}
	lines := testutil.ReadLines(t, fsutil.OSFileSystem{}, filepath.Join(path, "scripts", "paths.txt"))
	assert.Len(t, lines, 4)

	s, err := sweep.Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, 4, s.N())
	assert.True(t, filepath.IsAbs(strings.Fields(s.State().RunCommand)[0]), "run command resolved to an absolute path")
}

func TestBuildCmd_Flags(t *testing.T) {
	path := buildSweep(t, "--scheduler", "moab", "--sequence", "halton", "--seed", "9", "--delta", "0.25", "--base", "0,0,0,-1,-1,-1,-2,-2,-2")
	s, err := sweep.Load(nil, path)
	require.NoError(t, err)
	st := s.State()

	assert.Equal(t, "moab", st.Scheduler)
	assert.Equal(t, "halton", st.Sampler.Sequence)
	assert.Equal(t, uint64(9), st.Sampler.Seed)
	assert.InDelta(t, -0.25, st.Sampler.Low[0], 1e-12)
	assert.InDelta(t, -1.75, st.Sampler.High[8], 1e-12)
}

func TestBuildCmd_ConfigFileWithOverride(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sweep.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("kind: hill\nsamples: 8\nscheduler: slurm\n"), 0644))

	_, err := execute(t, "build", "--config", cfgPath, "--samples", "2", "--out", dir, "--run-command", "sh")
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, "HillSweep_*"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	s, err := sweep.Load(nil, matches[0])
	require.NoError(t, err)
	assert.Equal(t, 2, s.N(), "flag overrides config")
	assert.Equal(t, "slurm", s.SchedulerName())
}

func TestBuildCmd_Errors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{"unknown kind", []string{"--kind", "cubic"}},
		{"zero samples", []string{"--samples", "0"}},
		{"bad delta", []string{"--delta", "abc"}},
		{"negative delta", []string{"--delta", "-1"}},
		{"unknown scheduler", []string{"--scheduler", "pbs"}},
		{"short base", []string{"--base", "0,0"}},
		{"missing config", []string{"--config", "/nonexistent/sweep.yaml"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			args := append([]string{"build", "--out", dir}, tc.args...)
			_, err := execute(t, args...)
			require.Error(t, err)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries, "no sweep directory on failure")
		})
	}
}

func TestShowCmd(t *testing.T) {
	path := buildSweep(t)

	out, err := execute(t, "show", path)
	require.NoError(t, err)
	assert.Contains(t, out, "LinearSweep")
	assert.Contains(t, out, "eta2")

	out, err = execute(t, "show", "--json", filepath.Join(path, sweep.StateFile))
	require.NoError(t, err)
	var st sweep.State
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, path, st.Path)
	assert.Len(t, st.Parameters, 4)

	_, err = execute(t, "show", t.TempDir())
	assert.ErrorIs(t, err, sweep.ErrNotFound)
}

func TestInspectCmd(t *testing.T) {
	path := buildSweep(t)
	outDir := t.TempDir()
	png := filepath.Join(outDir, "k0_g0.png")
	html := filepath.Join(outDir, "samples.html")
	csvPath := filepath.Join(outDir, "samples.csv")
	summary := filepath.Join(outDir, "summary.csv")

	out, err := execute(t, "inspect", path, "--png", png, "--x", "0", "--y", "3", "--html", html, "--csv", csvPath, "--summary-csv", summary)
	require.NoError(t, err)
	assert.Contains(t, out, "4 samples")
	assert.Contains(t, out, "max gap")

	for _, p := range []string{png, html, csvPath, summary} {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.Greater(t, info.Size(), int64(0), p)
	}

	_, err = execute(t, "inspect", path, "--png", filepath.Join(outDir, "bad.png"), "--x", "0", "--y", "42")
	assert.Error(t, err)
}

func TestCatalogRoundTrip(t *testing.T) {
	db := filepath.Join(t.TempDir(), "catalog.db")
	path := buildSweep(t, "--catalog", db)

	s, err := sweep.Load(nil, path)
	require.NoError(t, err)
	id := s.ID

	out, err := execute(t, "list", "--catalog", db)
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, path)

	out, err = execute(t, "list", "--catalog", db, "--json")
	require.NoError(t, err)
	var entries []catalog.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, 4, entries[0].Samples)

	out, err = execute(t, "show", "--catalog", db, id)
	require.NoError(t, err)
	assert.Contains(t, out, id)

	_, err = execute(t, "list", "--catalog", db, "--rm", id)
	require.NoError(t, err)
	out, err = execute(t, "list", "--catalog", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No sweeps recorded.")

	_, err = execute(t, "list", "--catalog", db, "--rm", id)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestListCmd_RequiresCatalog(t *testing.T) {
	_, err := execute(t, "list")
	assert.Error(t, err)
}

func TestResolveRunCommand(t *testing.T) {
	got := resolveRunCommand("sh -c")
	fields := strings.Fields(got)
	require.Len(t, fields, 2)
	assert.True(t, filepath.IsAbs(fields[0]), got)
	assert.Equal(t, "-c", fields[1])

	assert.Equal(t, "no-such-gram-command-xyz", resolveRunCommand("no-such-gram-command-xyz"))
	assert.Equal(t, "", resolveRunCommand(""))
}

func TestBuildCmd_RunScriptExecsCommand(t *testing.T) {
	path := buildSweep(t)
	data, err := os.ReadFile(filepath.Join(path, "scripts", "run.sh"))
	require.NoError(t, err)
	wrapper, err := scheduler.RunWrapper(resolveRunCommand("sh"))
	require.NoError(t, err)
	assert.Equal(t, wrapper, string(data))
}

func TestBuildCmd_Name(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "build", "--name", "eta scan", "--samples", "1", "--out", dir, "--run-command", "sh")
	require.NoError(t, err)
	matches, err := filepath.Glob(filepath.Join(dir, "eta_scan_*"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestSubmitCmd(t *testing.T) {
	path := buildSweep(t)

	out, err := execute(t, "submit", path, "--host", "login.example.org", "--user", "alice", "--ssh-config", filepath.Join(t.TempDir(), "none"), "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "would execute: ssh -o BatchMode=yes alice@login.example.org")
	assert.Contains(t, out, "job_submission.sh")

	out, err = execute(t, "submit", path, "--dry-run", "--json")
	require.NoError(t, err)
	var sub struct {
		Command []string `json:"command"`
		DryRun  bool     `json:"dry_run"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &sub))
	assert.True(t, sub.DryRun)
	assert.Equal(t, "bash", sub.Command[0])

	_, err = execute(t, "submit", t.TempDir())
	assert.ErrorIs(t, err, sweep.ErrNotFound)
}
