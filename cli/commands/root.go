// Package commands implements the helio CLI commands.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heliosql/helio-go/cli/internal/version"
	"github.com/heliosql/helio-go/internal/debug"
)

// NewRootCommand builds the helio command tree.
func NewRootCommand() *cobra.Command {
	var debugEnabled bool

	rootCmd := &cobra.Command{
		Use:     "helio",
		Short:   "Helio client tooling",
		Long:    "helio manages the client-side plugin configuration of a Helio engine: resource group rules, event listeners and their schemas.",
		Version: fmt.Sprintf("%s (commit: %s)", version.Version, version.GitCommit),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			debug.Init(debugEnabled)
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debugEnabled, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(NewInitCommand())
	rootCmd.AddCommand(NewMigrateCommand())
	rootCmd.AddCommand(NewValidateCommand())
	rootCmd.AddCommand(NewDocsCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}
