// Package gatewaytest provides a scripted gateway.Runner for tests.
package gatewaytest

import (
	"context"
	"io"
	"strings"
	"sync"

	"mercator-hq/archivist/pkg/gateway"
)

// Response is the scripted outcome of a command.
type Response struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error // returned as-is when set (e.g. program not found)
}

// Call is one recorded invocation.
type Call struct {
	Argv  []string
	Stdin string
}

// Line returns the argv joined by spaces.
func (c Call) Line() string {
	return strings.Join(c.Argv, " ")
}

// Runner records commands and answers them from a handler.
type Runner struct {
	mu      sync.Mutex
	calls   []Call
	handler func(argv []string) Response
}

// NewRunner creates a Runner answering every command with handler. A nil
// handler makes every command succeed with empty output.
func NewRunner(handler func(argv []string) Response) *Runner {
	if handler == nil {
		handler = func([]string) Response { return Response{} }
	}
	return &Runner{handler: handler}
}

// Run implements gateway.Runner.
func (r *Runner) Run(ctx context.Context, cmd gateway.Command) (*gateway.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	call := Call{Argv: cmd.Argv()}
	if cmd.Stdin != nil {
		data, _ := io.ReadAll(cmd.Stdin)
		call.Stdin = string(data)
	}

	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()

	resp := r.handler(call.Argv)
	if resp.Err != nil {
		return nil, resp.Err
	}
	res := &gateway.Result{
		ExitCode: resp.ExitCode,
		Stdout:   []byte(resp.Stdout),
		Stderr:   []byte(resp.Stderr),
	}
	if resp.ExitCode != 0 {
		return res, &gateway.ExitError{
			Command:  cmd.String(),
			ExitCode: resp.ExitCode,
			Stderr:   resp.Stderr,
		}
	}
	return res, nil
}

// Calls returns the recorded invocations.
func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// CallsContaining returns the recorded invocations whose argv contains every
// given argument.
func (r *Runner) CallsContaining(args ...string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if hasAll(c.Argv, args) {
			out = append(out, c)
		}
	}
	return out
}

func hasAll(argv, want []string) bool {
	for _, w := range want {
		found := false
		for _, a := range argv {
			if a == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
