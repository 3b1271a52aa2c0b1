package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the Toke admin CLI. Subcommands (sign, tenant, schema) are attached here.
var rootCmd = &cobra.Command{
	Use:           "toke",
	Short:         "Toke admin CLI",
	Long:          "Administrative utilities for Toke (request signing, tenant directory management, schema bootstrap).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
