package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root cobra command
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "vbranch",
		Short:   "Vbranch keeps virtual branches up to date with their upstream target",
		Version: version,
		Long: `Vbranch keeps virtual branches up to date with their upstream target.

Query how each applied branch relates to the new upstream state with
"vbranch status", then resolve the round with "vbranch integrate".`,
	}

	// Add subcommands
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newIntegrateCmd())

	return rootCmd
}
