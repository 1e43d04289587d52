// Package submit runs a built sweep's job submission script, either on this
// machine or on a cluster login node over ssh.
package submit

import (
	"context"
	"os/exec"
)

// CommandExecutor is a prepared process. Run returns stdout and stderr
// interleaved, which is what schedulers print their job IDs to.
type CommandExecutor interface {
	Run() ([]byte, error)
}

// CommandBuilder prepares a process running name in dir. An empty dir
// inherits the working directory.
type CommandBuilder interface {
	BuildCommand(ctx context.Context, dir, name string, args ...string) CommandExecutor
}

type execCommand struct{ cmd *exec.Cmd }

func (c execCommand) Run() ([]byte, error) { return c.cmd.CombinedOutput() }

// RealCommandBuilder spawns processes with os/exec. The context kills the
// process when cancelled.
type RealCommandBuilder struct{}

func (RealCommandBuilder) BuildCommand(ctx context.Context, dir, name string, args ...string) CommandExecutor {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return execCommand{cmd}
}

// MockCommandExecutor returns canned output.
type MockCommandExecutor struct {
	Output    []byte
	Err       error
	RunCalled bool
}

func (m *MockCommandExecutor) Run() ([]byte, error) {
	m.RunCalled = true
	return m.Output, m.Err
}

// RecordedCommand is one argv captured by MockCommandBuilder.
type RecordedCommand struct {
	Dir  string
	Name string
	Args []string
}

// MockCommandBuilder captures every command instead of spawning it. Each
// build hands back Executor, or a silent executor when Executor is nil.
type MockCommandBuilder struct {
	Commands []RecordedCommand
	Executor *MockCommandExecutor
}

func (b *MockCommandBuilder) BuildCommand(_ context.Context, dir, name string, args ...string) CommandExecutor {
	b.Commands = append(b.Commands, RecordedCommand{Dir: dir, Name: name, Args: args})
	if b.Executor == nil {
		return &MockCommandExecutor{}
	}
	return b.Executor
}

// LastCommand is nil until something was built.
func (b *MockCommandBuilder) LastCommand() *RecordedCommand {
	if n := len(b.Commands); n > 0 {
		return &b.Commands[n-1]
	}
	return nil
}
