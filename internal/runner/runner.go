// Package runner executes external commands synchronously and captures
// their combined output.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/kiichain/kiisetup/libs/log"
)

//go:generate mockery --case underscore --name Runner

// Runner runs external commands to completion.
type Runner interface {
	// Run executes cmd and returns its trimmed combined output. A non-zero
	// exit is reported as a *CommandFailure.
	Run(ctx context.Context, cmd Command) (string, error)

	// RunWithPassword behaves like Run but first feeds password to the
	// command's standard input twice, once for the prompt and once for the
	// confirmation.
	RunWithPassword(ctx context.Context, cmd Command, password string) (string, error)
}

// Command is a structured invocation. It is never interpreted by a shell.
type Command struct {
	Name string
	Args []string

	// Dir is the working directory; empty means the current one.
	Dir string

	// Env is appended to the inherited environment.
	Env []string
}

// New returns a Command running name with args.
func New(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// InDir returns a copy of c running in dir.
func (c Command) InDir(dir string) Command {
	c.Dir = dir
	return c
}

func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, arg := range c.Args {
		if arg == "" || strings.ContainsAny(arg, " \t\n'\"\\$`") {
			arg = fmt.Sprintf("%q", arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// CommandFailure is returned when a command could not be started or exited
// with a non-zero status.
type CommandFailure struct {
	Command Command
	Output  string
	Err     error
}

func (e *CommandFailure) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("error running command '%s': %v", e.Command, e.Err)
	}
	return fmt.Sprintf("error running command '%s': %v\n%s", e.Command, e.Err, e.Output)
}

func (e *CommandFailure) Unwrap() error { return e.Err }

// ExecRunner runs commands as child processes of the current one.
type ExecRunner struct {
	logger log.Logger
}

var _ Runner = (*ExecRunner)(nil)

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner(logger log.Logger) *ExecRunner {
	return &ExecRunner{logger: logger}
}

func (r *ExecRunner) Run(ctx context.Context, cmd Command) (string, error) {
	return r.run(ctx, cmd, nil)
}

func (r *ExecRunner) RunWithPassword(ctx context.Context, cmd Command, password string) (string, error) {
	return r.run(ctx, cmd, strings.NewReader(password+"\n"+password+"\n"))
}

func (r *ExecRunner) run(ctx context.Context, cmd Command, stdin *strings.Reader) (string, error) {
	r.logger.Debug("running command", "cmd", cmd.String(), "dir", cmd.Dir)

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	if stdin != nil {
		c.Stdin = stdin
	}

	var out bytes.Buffer
	c.Stdout = &out
	c.Stderr = &out

	err := c.Run()
	output := strings.TrimSpace(out.String())
	if err != nil {
		return output, &CommandFailure{Command: cmd, Output: output, Err: err}
	}
	return output, nil
}
