package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heliosql/helio-go/cli/internal/ui"
	"github.com/heliosql/helio-go/cli/internal/update"
	"github.com/heliosql/helio-go/cli/internal/version"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	var engineVersion string
	var full bool
	var checkUpdates bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if full {
				fmt.Println(info.FullString())
			} else {
				fmt.Println(info.String())
			}

			if checkUpdates {
				if err := update.CheckForUpdates(version.Version, version.LatestRelease); err != nil {
					return err
				}
			}

			if engineVersion != "" {
				if err := update.CheckEngineCompatibility(engineVersion); err != nil {
					ui.PrintError("%v", err)
					return err
				}
				ui.PrintSuccess("Engine version %s is supported", engineVersion)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&engineVersion, "check-engine", "", "Check compatibility with an engine version")
	cmd.Flags().BoolVar(&full, "full", false, "Print build details")
	cmd.Flags().BoolVar(&checkUpdates, "check-updates", false, "Check whether a newer release is available")
	return cmd
}
