// Package testutil provides deterministic fakes for harness tests: a
// scripted command runner implementing the backend protocol in memory, and
// a failure collector standing in for the engine's signaling surface.
package testutil

import (
	"context"
	"sync"

	"github.com/calderadb/harness/internal/command"
)

// ScriptedRunner is an in-memory command.Runner. Responses are keyed by the
// rendered command string; unscripted commands succeed with empty output.
// Every executed command is recorded for assertions.
//
// Thread-safety: all methods are safe for concurrent use.
type ScriptedRunner struct {
	mu sync.Mutex

	// Responses maps a rendered command string to its result.
	Responses map[string]command.Result

	// Errors maps a rendered command string to an error returned directly
	// from Run (an execution failure, not a non-zero exit).
	Errors map[string]error

	// Handler, when set, intercepts every command before Responses are
	// consulted. Return ok=false to fall through.
	Handler func(cmd command.Command) (command.Result, bool)

	calls []command.Command
}

// NewScriptedRunner creates an empty scripted runner.
func NewScriptedRunner() *ScriptedRunner {
	return &ScriptedRunner{
		Responses: make(map[string]command.Result),
		Errors:    make(map[string]error),
	}
}

// Respond scripts a zero-exit result with the given stdout.
func (r *ScriptedRunner) Respond(cmd command.Command, stdout string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Responses[cmd.String()] = command.Result{Stdout: stdout}
}

// Fail scripts a non-zero exit for the given command.
func (r *ScriptedRunner) Fail(cmd command.Command, exitCode int, stderr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Responses[cmd.String()] = command.Result{ExitCode: exitCode, Stderr: stderr}
}

// Run implements command.Runner.
func (r *ScriptedRunner) Run(_ context.Context, cmd command.Command) (command.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	handler := r.Handler
	res, scripted := r.Responses[cmd.String()]
	err := r.Errors[cmd.String()]
	r.mu.Unlock()

	if err != nil {
		return command.Result{ExitCode: -1}, err
	}
	if handler != nil {
		if hres, ok := handler(cmd); ok {
			return hres, nil
		}
	}
	if scripted {
		return res, nil
	}
	return command.Result{}, nil
}

// RunChecked implements command.Runner.
func (r *ScriptedRunner) RunChecked(ctx context.Context, cmd command.Command) (command.Result, error) {
	res, err := r.Run(ctx, cmd)
	if err != nil {
		return res, err
	}
	if res.ExitCode != 0 {
		return res, &command.ExitError{
			Cmd:      cmd.String(),
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
		}
	}
	return res, nil
}

// RunStreaming implements command.Runner. Output is discarded.
func (r *ScriptedRunner) RunStreaming(ctx context.Context, cmd command.Command) error {
	_, err := r.Run(ctx, cmd)
	return err
}

// Calls returns a copy of every executed command, in order.
func (r *ScriptedRunner) Calls() []command.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]command.Command(nil), r.calls...)
}

// CallStrings returns every executed command rendered to a string.
func (r *ScriptedRunner) CallStrings() []string {
	calls := r.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// OpsSeen returns the protocol operation of every executed command, in
// order.
func (r *ScriptedRunner) OpsSeen() []command.Op {
	calls := r.Calls()
	out := make([]command.Op, len(calls))
	for i, c := range calls {
		out[i] = c.Op()
	}
	return out
}
