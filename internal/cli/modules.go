package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calderadb/harness/internal/module"
)

// NewModulesCommand creates the modules command, listing the registered
// validation modules available to test definitions.
func NewModulesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List registered validation modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := module.Builtins().Names()
			if rootOpts.Format == "json" {
				return outputJSON(cmd.OutOrStdout(), names)
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
