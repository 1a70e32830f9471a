package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDefinition(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Valid(t *testing.T) {
	dir := t.TempDir()
	path := writeDefinition(t, dir, "bootstrap.yaml", `
node_count: 3
cluster_config:
  commitlog_sync: batch
modules:
  - [ClusterUp, EndpointWatch]
  - [ClusterUp]
ignored_errors:
  - "known flaky"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.NodeCount)
	assert.Equal(t, "batch", cfg.ClusterConfig["commitlog_sync"])
	assert.Equal(t, [][]string{{"ClusterUp", "EndpointWatch"}, {"ClusterUp"}}, cfg.Modules)
	assert.Equal(t, []string{"known flaky"}, cfg.IgnoredErrors)
}

func TestLoad_NormalizesNilFilterLists(t *testing.T) {
	dir := t.TempDir()
	path := writeDefinition(t, dir, "minimal.yaml", `
node_count: 1
modules:
  - [ClusterUp]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// Nil lists become empty so callers never branch on nil.
	assert.NotNil(t, cfg.IgnoredErrors)
	assert.NotNil(t, cfg.RequiredErrors)
	assert.Empty(t, cfg.IgnoredErrors)
	assert.Empty(t, cfg.RequiredErrors)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeDefinition(t, dir, "broken.yaml", "modules: [unclosed")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid yaml")
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "zero nodes",
			cfg:  Config{NodeCount: 0, Modules: [][]string{{"ClusterUp"}}},
			want: "node_count",
		},
		{
			name: "no module groups",
			cfg:  Config{NodeCount: 1},
			want: "module group",
		},
		{
			name: "empty group",
			cfg:  Config{NodeCount: 1, Modules: [][]string{{}}},
			want: "empty",
		},
		{
			name: "blank module name",
			cfg:  Config{NodeCount: 1, Modules: [][]string{{" "}}},
			want: "blank",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "b.yaml", "node_count: 1")
	writeDefinition(t, dir, "a.yml", "node_count: 1")
	writeDefinition(t, dir, "notes.txt", "not a definition")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.yaml"), 0o755))

	files, err := Discover(dir)
	require.NoError(t, err)

	// Sorted, extension filtered, directories skipped.
	require.Len(t, files, 2)
	assert.Equal(t, filepath.Join(dir, "a.yml"), files[0])
	assert.Equal(t, filepath.Join(dir, "b.yaml"), files[1])
}

func TestDiscover_MissingDir(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestTestName(t *testing.T) {
	assert.Equal(t, "bootstrap", TestName("/some/dir/bootstrap.yaml"))
	assert.Equal(t, "mixed_workload", TestName("mixed_workload.yml"))
}

func TestSettings_ClusterNameFor(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, DefaultClusterName, s.ClusterNameFor(&Config{}))
	assert.Equal(t, "perf", s.ClusterNameFor(&Config{ClusterName: "perf"}))
	assert.Equal(t, DefaultClusterName, s.ClusterNameFor(nil))
}
