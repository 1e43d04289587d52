package submit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gram/internal/model"
	"github.com/banshee-data/gram/internal/monitoring"
	"github.com/banshee-data/gram/internal/scheduler"
	"github.com/banshee-data/gram/internal/security"
	"github.com/banshee-data/gram/internal/simulation"
	"github.com/banshee-data/gram/internal/sweep"
)

func init() {
	monitoring.SetLogger(nil)
}

// builtSweep builds a two-sample sweep on disk whose run command appends
// each simulation path to a log file.
func builtSweep(t *testing.T, opts ...sweep.Option) (*sweep.Sweep, string) {
	t.Helper()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "ran.log")
	stub := filepath.Join(dir, "stub.sh")
	require.NoError(t, os.WriteFile(stub, []byte("#!/usr/bin/env bash\necho \"$1\" >> "+scheduler.ShellQuote(logPath)+"\n"), 0755))

	opts = append([]sweep.Option{sweep.WithRunCommand(stub)}, opts...)
	s, err := sweep.New(model.Linear{}, nil, nil, opts...)
	require.NoError(t, err)
	require.NoError(t, s.Build(dir, 2, simulation.Options{}))
	return s, logPath
}

func TestSubmit_LocalRunsScript(t *testing.T) {
	s, logPath := builtSweep(t)

	sub, err := Submitter{}.Submit(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []string{"bash", s.SubmissionScriptPath()}, sub.Command)
	assert.Empty(t, sub.JobIDs)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, s.SimulationPaths[0]+"\n"+s.SimulationPaths[1]+"\n", string(data))
}

func TestSubmit_DryRun(t *testing.T) {
	s, logPath := builtSweep(t)
	mock := &MockCommandBuilder{}

	sub, err := Submitter{DryRun: true, Builder: mock}.Submit(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, sub.DryRun)
	assert.Empty(t, mock.Commands)
	_, err = os.Stat(logPath)
	assert.True(t, os.IsNotExist(err), "nothing ran")
}

func TestSubmit_RemoteBuildsSSHCommand(t *testing.T) {
	s, _ := builtSweep(t, sweep.WithEmitter(scheduler.Moab{Options: scheduler.DefaultMoabOptions()}))
	mock := &MockCommandBuilder{Executor: &MockCommandExecutor{
		Output: []byte("JobID = 1001 submitted on Mon\nJobID = 1002 submitted on Mon\n"),
	}}
	target := Target{Host: "login.cluster.example.org", User: "alice", Key: "/home/alice/.ssh/id_ed25519", Port: "2222"}

	sub, err := Submitter{Target: target, Builder: mock}.Submit(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []string{"1001", "1002"}, sub.JobIDs)

	cmd := mock.LastCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "ssh", cmd.Name)
	assert.Equal(t, "", cmd.Dir)
	assert.Equal(t, []string{
		"-o", "BatchMode=yes",
		"-i", "/home/alice/.ssh/id_ed25519",
		"-p", "2222",
		"alice@login.cluster.example.org",
		"cd " + scheduler.ShellQuote(s.ScriptsPath) + " && bash " + scheduler.ShellQuote(s.SubmissionScriptPath()),
	}, cmd.Args)
	assert.True(t, mock.Executor.RunCalled)
}

func TestSubmit_CommandFailure(t *testing.T) {
	s, _ := builtSweep(t)
	mock := &MockCommandBuilder{Executor: &MockCommandExecutor{Output: []byte("msub: not found"), Err: errors.New("exit status 127")}}

	sub, err := Submitter{Builder: mock}.Submit(context.Background(), s)
	require.Error(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "msub: not found", sub.Output)
	assert.Equal(t, s.ScriptsPath, mock.LastCommand().Dir)
}

func TestSubmit_NotBuilt(t *testing.T) {
	s, err := sweep.New(model.Linear{}, nil, nil)
	require.NoError(t, err)
	_, err = Submitter{}.Submit(context.Background(), s)
	assert.ErrorIs(t, err, ErrNotBuilt)
}

func TestSubmit_ScriptEscapesSweep(t *testing.T) {
	s, _ := builtSweep(t)
	s.ScriptsPath = filepath.Join(s.Path, "..", "elsewhere")
	mock := &MockCommandBuilder{}

	_, err := Submitter{Builder: mock}.Submit(context.Background(), s)
	assert.ErrorIs(t, err, security.ErrOutsideDirectory)

	_, err = Submitter{Target: Target{Host: "remote"}, Builder: mock}.Submit(context.Background(), s)
	assert.ErrorIs(t, err, security.ErrOutsideDirectory)
	assert.Empty(t, mock.Commands)
}

func TestParseJobIDs(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []string
	}{
		{"none", "", nil},
		{"slurm", "JobID = 4242 submitted on Tue Jan 20\n", []string{"4242"}},
		{"moab with host", "  JobID = Moab.17 submitted on x\nnoise\n", []string{"Moab.17"}},
		{"empty id", "JobID =  submitted on x\n", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseJobIDs(tc.output))
		})
	}
}

func TestTarget_IsLocal(t *testing.T) {
	for target, want := range map[string]bool{
		"":                  true,
		"localhost":         true,
		"127.0.0.1":         true,
		"login.example.org": false,
	} {
		if got := (Target{Host: target}).IsLocal(); got != want {
			t.Errorf("Target{%q}.IsLocal() = %v, want %v", target, got, want)
		}
	}
}

func TestRealCommandBuilder(t *testing.T) {
	dir := t.TempDir()
	out, err := RealCommandBuilder{}.BuildCommand(context.Background(), dir, "pwd").Run()
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, resolved, strings.TrimSpace(string(out)))

	_, err = RealCommandBuilder{}.BuildCommand(context.Background(), "", "sh", "-c", "exit 1").Run()
	assert.Error(t, err)
}
