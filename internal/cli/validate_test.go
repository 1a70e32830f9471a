package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestValidate_AllValid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bootstrap.yaml", `
node_count: 3
modules:
  - [ClusterUp]
`)

	out, err := executeCommand("validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "ok   ")
	assert.Contains(t, out, "bootstrap.yaml")
}

func TestValidate_UnknownModule(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ghost.yaml", `
node_count: 1
modules:
  - [NoSuchModule]
`)

	out, err := executeCommand("validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "NoSuchModule")
}

func TestValidate_BrokenYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "node_count: [oops")

	_, err := executeCommand("validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestValidate_MissingDirectory(t *testing.T) {
	_, err := executeCommand("validate", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_MissingDirectory(t *testing.T) {
	_, err := executeCommand("run", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_EmptyDirectory(t *testing.T) {
	out, err := executeCommand("run", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No test definitions found.")
}

func TestModules_ListsBuiltins(t *testing.T) {
	out, err := executeCommand("modules")
	require.NoError(t, err)
	assert.Contains(t, out, "ClusterUp")
	assert.Contains(t, out, "EndpointWatch")
}
