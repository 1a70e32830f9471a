package config

// Defaults for harness-wide settings. Overridable per invocation; nothing
// reads these as globals.
const (
	DefaultClusterName = "CVH"
	DefaultLogRoot     = "build/test/logs/validation"
	DefaultWorkDir     = "."
)

// Settings holds harness-wide values that apply across test definitions.
// They are threaded explicitly into bridge construction rather than read
// from package state.
type Settings struct {
	// WorkDir is the fixed working directory for every backend command.
	WorkDir string

	// LogRoot is the local root for captured logs and pid records:
	// <LogRoot>/<testName>/node<N>.log and <LogRoot>/PIDs/node<N>_PID.txt.
	LogRoot string

	// ClusterName is the default cluster name when a definition does not
	// set one.
	ClusterName string
}

// DefaultSettings returns settings with all defaults applied.
func DefaultSettings() Settings {
	return Settings{
		WorkDir:     DefaultWorkDir,
		LogRoot:     DefaultLogRoot,
		ClusterName: DefaultClusterName,
	}
}

// ClusterNameFor resolves the effective cluster name for one definition.
func (s Settings) ClusterNameFor(cfg *Config) string {
	if cfg != nil && cfg.ClusterName != "" {
		return cfg.ClusterName
	}
	return s.ClusterName
}
