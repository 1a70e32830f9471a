package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/calderadb/harness/internal/config"
	"github.com/calderadb/harness/internal/module"
)

// ValidateResult reports the outcome of checking one definition file.
type ValidateResult struct {
	File  string `json:"file"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command. It checks definition
// files without touching any cluster: YAML shape, node counts, and that
// every referenced module is registered.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "validate <definitions-dir>",
		Short:         "Validate test definitions without running them",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateDefinitions(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func validateDefinitions(opts *RootOptions, definitionsDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(definitionsDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("definitions directory not found: %s", definitionsDir))
	}

	files, err := config.Discover(definitionsDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to discover test definitions", err)
	}

	registry := module.Builtins()
	registered := make(map[string]bool)
	for _, name := range registry.Names() {
		registered[name] = true
	}

	var results []ValidateResult
	invalid := 0
	for _, file := range files {
		result := ValidateResult{File: file, Valid: true}
		cfg, err := config.Load(file)
		if err != nil {
			result.Valid = false
			result.Error = err.Error()
		} else {
			for _, group := range cfg.Modules {
				for _, name := range group {
					if !registered[name] {
						result.Valid = false
						result.Error = (&module.NotFoundError{Name: name}).Error()
					}
				}
			}
		}
		if !result.Valid {
			invalid++
		}
		results = append(results, result)
	}

	if opts.Format == "json" {
		if err := outputJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
	} else {
		for _, result := range results {
			if result.Valid {
				fmt.Fprintf(cmd.OutOrStdout(), "ok   %s\n", result.File)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "bad  %s: %s\n", result.File, result.Error)
			}
		}
	}

	if invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d invalid definition(s)", invalid))
	}
	return nil
}
