package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/calderadb/harness/internal/config"
	"github.com/calderadb/harness/internal/harness"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	WorkDir     string
	LogRoot     string
	ClusterName string
}

// RunReport is the aggregated outcome of one invocation, across every
// discovered test definition.
type RunReport struct {
	Verdicts []*harness.Verdict `json:"verdicts"`
	Passed   int                `json:"passed"`
	Failed   int                `json:"failed"`
	Total    int                `json:"total"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}
	defaults := config.DefaultSettings()

	cmd := &cobra.Command{
		Use:   "run <definitions-dir>",
		Short: "Run every test definition in a directory",
		Long: `Run validation tests against an ephemeral cluster.

Each *.yaml file in the definitions directory is one test: the harness
reconciles the cluster to the definition's node count, runs its module
groups, captures cluster logs, and judges pass/fail.

Exit codes:
  0 - All tests passed
  1 - One or more tests failed
  2 - Command error (invalid paths, bad definitions, etc.)

Examples:
  harness run ./definitions
  harness run ./definitions --cluster-name CVH --log-root build/logs
  harness run ./definitions --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.WorkDir, "work-dir", defaults.WorkDir, "working directory for backend commands")
	cmd.Flags().StringVar(&opts.LogRoot, "log-root", defaults.LogRoot, "local root for captured logs and pid records")
	cmd.Flags().StringVar(&opts.ClusterName, "cluster-name", defaults.ClusterName, "default cluster name")

	return cmd
}

func runTests(opts *RunOptions, definitionsDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(definitionsDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("definitions directory not found: %s", definitionsDir))
	}

	files, err := config.Discover(definitionsDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to discover test definitions", err)
	}
	if len(files) == 0 {
		if opts.Format == "json" {
			return outputJSON(cmd.OutOrStdout(), RunReport{Verdicts: []*harness.Verdict{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No test definitions found.")
		return nil
	}

	settings := config.Settings{
		WorkDir:     opts.WorkDir,
		LogRoot:     opts.LogRoot,
		ClusterName: opts.ClusterName,
	}
	logger := newRunLogger(cmd.ErrOrStderr(), opts.Verbose)

	report := RunReport{Total: len(files)}
	for _, file := range files {
		verdict, err := runOne(cmd, file, settings, logger)
		if err != nil {
			return err
		}
		report.Verdicts = append(report.Verdicts, verdict)
		if verdict.Pass {
			report.Passed++
		} else {
			report.Failed++
		}
	}

	if opts.Format == "json" {
		if err := outputJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	} else {
		renderReport(cmd.OutOrStdout(), report)
	}

	if report.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d tests failed", report.Failed, report.Total))
	}
	return nil
}

func runOne(cmd *cobra.Command, file string, settings config.Settings, logger *slog.Logger) (*harness.Verdict, error) {
	cfg, err := config.Load(file)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid test definition", err)
	}

	engine := harness.New(cfg, config.TestName(file), settings,
		harness.WithEngineLogger(logger))

	verdict, runErr := engine.Run(cmd.Context())
	if runErr != nil {
		// Abort-class errors fail the test but not the whole invocation;
		// remaining definitions still run.
		logger.Error("run aborted", "test", verdict.TestName, "error", runErr)
	}
	return verdict, nil
}

func renderReport(w io.Writer, report RunReport) {
	pass := color.New(color.FgGreen, color.Bold)
	fail := color.New(color.FgRed, color.Bold)

	for _, verdict := range report.Verdicts {
		if verdict.Pass {
			pass.Fprintf(w, "PASS")
		} else {
			fail.Fprintf(w, "FAIL")
		}
		fmt.Fprintf(w, " %s\n", verdict.TestName)
		if !verdict.Pass {
			fmt.Fprint(w, indent(verdict.Summary()))
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", report.Passed, report.Failed, report.Total)
}

func indent(s string) string {
	var out string
	for _, line := range splitNonEmptyLines(s) {
		out += "    " + line + "\n"
	}
	return out
}

func splitNonEmptyLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func newRunLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
