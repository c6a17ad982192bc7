package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// Command is one external program invocation.
type Command struct {
	// Program is the executable name or path.
	Program string

	// Args are passed to the program verbatim.
	Args []string

	// Stdin, if set, is fed to the program.
	Stdin io.Reader
}

// Argv returns the program followed by its arguments.
func (c Command) Argv() []string {
	return append([]string{c.Program}, c.Args...)
}

// String renders the command for logs and ledger entries. Arguments containing
// whitespace are quoted so the rendering stays unambiguous.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	for _, p := range c.Argv() {
		if p == "" || strings.ContainsAny(p, " \t\n'\"") {
			p = fmt.Sprintf("%q", p)
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}

// SudoAs wraps cmd so it runs as user.
func SudoAs(user string, cmd Command) Command {
	return Command{
		Program: "sudo",
		Args:    append([]string{"-u", user, cmd.Program}, cmd.Args...),
		Stdin:   cmd.Stdin,
	}
}

// Result is the captured outcome of a command that ran.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command %s exited with status %d", e.Command, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Runner executes commands.
type Runner interface {
	// Run executes cmd and waits for it. A non-zero exit status is returned
	// as *ExitError together with the captured Result.
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner runs commands as child processes.
type ExecRunner struct {
	logger *slog.Logger
}

// NewExecRunner creates a Runner backed by os/exec.
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{
		logger: logger.With("component", "gateway"),
	}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	r.logger.Debug("running command", "command", cmd.String())

	c := exec.CommandContext(ctx, cmd.Program, cmd.Args...)
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	if cmd.Stdin != nil {
		c.Stdin = cmd.Stdin
	}

	err := c.Run()
	res := &Result{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, &ExitError{
				Command:  cmd.String(),
				ExitCode: res.ExitCode,
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		}
		return res, fmt.Errorf("could not execute %s: %w", cmd.String(), err)
	}

	return res, nil
}

// Succeeded runs cmd and reports whether it exited zero. It is meant for
// probe commands such as "hadoop fs -test -e" whose non-zero status is an
// answer, not a failure. Errors starting the program are still returned.
func Succeeded(ctx context.Context, r Runner, cmd Command) (bool, error) {
	_, err := r.Run(ctx, cmd)
	if err == nil {
		return true, nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, err
}
