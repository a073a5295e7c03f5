package worker

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Result holds the captured output of a finished child process.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Command is a single child process ready to run.
type Command interface {
	// Run starts the process, waits for it and captures both output streams.
	// A non-zero exit is reported through Result.ExitCode, not as an error;
	// the error is reserved for processes that could not be started or waited on.
	Run() (Result, error)
}

// CommandBuilder creates commands. This abstraction lets tests replace the
// worker without spawning processes.
type CommandBuilder interface {
	BuildCommand(ctx context.Context, name string, args ...string) Command
}

// ExecCommand wraps exec.Cmd to implement Command.
type ExecCommand struct {
	cmd *exec.Cmd
}

// Run executes the command.
func (c *ExecCommand) Run() (Result, error) {
	var stdout, stderr bytes.Buffer
	c.cmd.Stdout = &stdout
	c.cmd.Stderr = &stderr

	err := c.cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	// A process killed by a signal reports -1, which still counts as a failed exit.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		res.ExitCode = -1
	}
	return res, err
}

// ExecCommandBuilder implements CommandBuilder using exec.CommandContext.
type ExecCommandBuilder struct{}

// BuildCommand creates a Command for the given executable and arguments.
func (ExecCommandBuilder) BuildCommand(ctx context.Context, name string, args ...string) Command {
	return &ExecCommand{cmd: exec.CommandContext(ctx, name, args...)}
}

// MockCommand implements Command for testing.
type MockCommand struct {
	// Result is returned from Run.
	Result Result
	// Err is the error to return from Run.
	Err error
	// RunCalled indicates whether Run was called.
	RunCalled bool
}

// Run returns the configured result and error.
func (m *MockCommand) Run() (Result, error) {
	m.RunCalled = true
	return m.Result, m.Err
}

// MockBuiltCommand records details of a built command.
type MockBuiltCommand struct {
	Name string
	Args []string
}

// MockCommandBuilder implements CommandBuilder for testing.
type MockCommandBuilder struct {
	// Commands records all commands that were built.
	Commands []MockBuiltCommand
	// Factory creates the command to return. If nil, a zero MockCommand is used.
	Factory func(name string, args []string) *MockCommand
}

// BuildCommand records the command and returns a MockCommand.
func (b *MockCommandBuilder) BuildCommand(ctx context.Context, name string, args ...string) Command {
	b.Commands = append(b.Commands, MockBuiltCommand{Name: name, Args: args})
	if b.Factory != nil {
		return b.Factory(name, args)
	}
	return &MockCommand{}
}

// LastCommand returns the most recently built command, or nil if none.
func (b *MockCommandBuilder) LastCommand() *MockBuiltCommand {
	if len(b.Commands) == 0 {
		return nil
	}
	return &b.Commands[len(b.Commands)-1]
}
