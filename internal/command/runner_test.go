package command

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRunner(t *testing.T, opts ...ExecOption) *ExecRunner {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("runner tests use sh")
	}
	base := []ExecOption{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}
	return NewExecRunner(t.TempDir(), append(base, opts...)...)
}

func TestRun_CapturesOutputAndExitCode(t *testing.T) {
	r := testRunner(t)

	res, err := r.Run(context.Background(), Raw("sh", "-c", "echo out; echo err 1>&2"))
	require.NoError(t, err)

	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
}

func TestRun_NonZeroExitIsNotAnError(t *testing.T) {
	r := testRunner(t)

	res, err := r.Run(context.Background(), Raw("sh", "-c", "exit 3"))
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
}

func TestRun_ExecutionFailure(t *testing.T) {
	r := testRunner(t)

	_, err := r.Run(context.Background(), Raw("definitely-not-a-real-binary-4x7"))
	assert.Error(t, err)
}

func TestRunChecked_FailsOnNonZeroExit(t *testing.T) {
	r := testRunner(t)

	_, err := r.RunChecked(context.Background(), Raw("sh", "-c", "echo boom 1>&2; exit 2"))
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.ExitCode)
	assert.Equal(t, "boom\n", exitErr.Stderr)
	assert.True(t, IsExitError(err))
}

func TestRunChecked_PassesOnZeroExit(t *testing.T) {
	r := testRunner(t)

	res, err := r.RunChecked(context.Background(), Raw("sh", "-c", "echo fine"))
	require.NoError(t, err)
	assert.Equal(t, "fine\n", res.Stdout)
}

func TestRunStreaming_ForwardsOutputIncrementally(t *testing.T) {
	var out bytes.Buffer
	r := testRunner(t, WithStream(&out))

	err := r.RunStreaming(context.Background(), Raw("sh", "-c", "echo one; echo two 1>&2"))
	require.NoError(t, err)

	// Combined stdout and stderr, in production order.
	assert.Contains(t, out.String(), "one\n")
	assert.Contains(t, out.String(), "two\n")
}

func TestRunStreaming_IgnoresExitCode(t *testing.T) {
	var out bytes.Buffer
	r := testRunner(t, WithStream(&out))

	err := r.RunStreaming(context.Background(), Raw("sh", "-c", "echo partial; exit 9"))
	require.NoError(t, err)
	assert.Equal(t, "partial\n", out.String())
}

func TestIsExitError_PlainError(t *testing.T) {
	assert.False(t, IsExitError(errors.New("other")))
}
