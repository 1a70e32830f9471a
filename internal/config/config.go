// Package config defines the YAML test-definition model for the validation
// harness and the discovery of definition files.
//
// A test definition names the target cluster shape, the module groups to run
// against it, and the error filter applied at verdict time. Loading and
// normalization live here; execution lives in internal/harness.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is one loaded test definition.
type Config struct {
	// ClusterName overrides the harness-wide default cluster name.
	// Optional; most definitions share one cluster and leave this empty.
	ClusterName string `yaml:"cluster_name,omitempty"`

	// NodeCount is the target cluster size. Must be >= 1.
	// The count is fixed for the lifetime of one harness run.
	NodeCount int `yaml:"node_count"`

	// ClusterConfig holds configuration overrides applied to every node
	// before the database starts. One change_config command is issued per
	// entry.
	ClusterConfig map[string]string `yaml:"cluster_config,omitempty"`

	// Modules lists the module groups to execute. Modules within a group
	// run concurrently; groups run strictly in sequence.
	Modules [][]string `yaml:"modules"`

	// IgnoredErrors are substrings that suppress matching failure messages
	// and matching lines of the captured log transcript.
	IgnoredErrors []string `yaml:"ignored_errors,omitempty"`

	// RequiredErrors are substrings that must appear at least once in the
	// failures or the transcript, or the run fails.
	RequiredErrors []string `yaml:"required_errors,omitempty"`
}

// Normalize replaces nil filter lists with empty slices so callers never
// branch on nil. Safe to call more than once.
func (c *Config) Normalize() {
	if c.IgnoredErrors == nil {
		c.IgnoredErrors = []string{}
	}
	if c.RequiredErrors == nil {
		c.RequiredErrors = []string{}
	}
}

// Validate checks structural requirements of a loaded definition.
func (c *Config) Validate() error {
	if c.NodeCount < 1 {
		return fmt.Errorf("node_count must be >= 1, got %d", c.NodeCount)
	}
	if len(c.Modules) == 0 {
		return fmt.Errorf("at least one module group is required")
	}
	for i, group := range c.Modules {
		if len(group) == 0 {
			return fmt.Errorf("module group %d is empty", i)
		}
		for _, name := range group {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("module group %d contains a blank module name", i)
			}
		}
	}
	return nil
}

// Load reads, parses, normalizes, and validates a test definition file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read test definition: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid yaml in %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid test definition %s: %w", path, err)
	}
	return &cfg, nil
}

// Discover returns the test-definition files (*.yaml, *.yml) directly under
// dir, sorted by path for a stable run order.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read definitions directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// TestName derives the harness test name from a definition path: the file
// name with its extension stripped. The name keys the captured-log folder
// for the run.
func TestName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
