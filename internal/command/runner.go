package command

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Result captures the outcome of one subprocess execution.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// ExitError reports a backend command that exited non-zero. It carries the
// captured output so callers can surface it without re-running anything.
type ExitError struct {
	Cmd      string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command failed with exit code %d: %s", e.ExitCode, e.Cmd)
}

// IsExitError reports whether err is (or wraps) an ExitError.
func IsExitError(err error) bool {
	var ee *ExitError
	return errors.As(err, &ee)
}

// Runner executes backend commands. The production implementation shells
// out; tests substitute a scripted fake (internal/testutil).
type Runner interface {
	// Run executes the command, blocking until it exits, and returns the
	// captured output. A non-zero exit code is reported in the Result, not
	// as an error; the error is reserved for failures to execute at all.
	Run(ctx context.Context, cmd Command) (Result, error)

	// RunChecked is Run, but a non-zero exit replays stdout at info level
	// and stderr at error level, then returns an *ExitError.
	RunChecked(ctx context.Context, cmd Command) (Result, error)

	// RunStreaming forwards the command's output incrementally instead of
	// buffering it, for callers observing long-running remote commands
	// live. The exit code is not checked.
	RunStreaming(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands as local subprocesses from a fixed working
// directory.
type ExecRunner struct {
	dir    string
	out    io.Writer
	logger *slog.Logger
}

// ExecOption configures an ExecRunner.
type ExecOption func(*ExecRunner)

// WithStream sets the destination for RunStreaming output. Defaults to
// os.Stdout.
func WithStream(w io.Writer) ExecOption {
	return func(r *ExecRunner) { r.out = w }
}

// WithLogger sets the runner's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ExecOption {
	return func(r *ExecRunner) { r.logger = logger }
}

// NewExecRunner creates a runner executing everything relative to dir.
func NewExecRunner(dir string, opts ...ExecOption) *ExecRunner {
	r := &ExecRunner{
		dir:    dir,
		out:    os.Stdout,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes cmd and returns its captured output and exit code.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	r.logger.Debug("executing", "cmd", cmd.String())

	argv := cmd.Argv()
	proc := exec.CommandContext(ctx, argv[0], argv[1:]...)
	proc.Dir = r.dir

	var stdout, stderr bytes.Buffer
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	err := proc.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Result{ExitCode: -1}, fmt.Errorf("execute %q: %w", cmd.String(), err)
		}
		// Non-zero exit: reported through the Result, not the error.
	}
	return Result{
		ExitCode: proc.ProcessState.ExitCode(),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

// RunChecked executes cmd and fails on a non-zero exit after replaying the
// captured output through the logger.
func (r *ExecRunner) RunChecked(ctx context.Context, cmd Command) (Result, error) {
	res, err := r.Run(ctx, cmd)
	if err != nil {
		return res, err
	}
	if res.ExitCode != 0 {
		for _, line := range splitLines(res.Stdout) {
			r.logger.Info("out> " + line)
		}
		for _, line := range splitLines(res.Stderr) {
			r.logger.Error("err> " + line)
		}
		return res, &ExitError{
			Cmd:      cmd.String(),
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
		}
	}
	return res, nil
}

// RunStreaming executes cmd, forwarding combined output line by line as it
// is produced.
func (r *ExecRunner) RunStreaming(ctx context.Context, cmd Command) error {
	r.logger.Debug("executing", "cmd", cmd.String())

	argv := cmd.Argv()
	proc := exec.CommandContext(ctx, argv[0], argv[1:]...)
	proc.Dir = r.dir

	pipe, err := proc.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open output pipe for %q: %w", cmd.String(), err)
	}
	proc.Stderr = proc.Stdout
	if err := proc.Start(); err != nil {
		return fmt.Errorf("start %q: %w", cmd.String(), err)
	}

	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		fmt.Fprintln(r.out, scanner.Text())
	}

	// The exit code is deliberately not checked; callers stream commands
	// whose remote exit status is not meaningful here.
	_ = proc.Wait()
	return scanner.Err()
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
