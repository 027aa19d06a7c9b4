package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/heliosql/helio-go/cli/internal/ui"
	"github.com/heliosql/helio-go/cli/internal/watch"
	"github.com/heliosql/helio-go/plugin/resourcegroups"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var watchMode bool

	cmd := &cobra.Command{
		Use:   "validate <resource-groups.json>",
		Short: "Validate a resource groups config file",
		Long:  "Check that a file manager config parses and that every selector references a defined group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(args[0], watchMode)
		},
	}
	cmd.Flags().BoolVar(&watchMode, "watch", false, "Re-validate whenever the file changes")

	return cmd
}

func runValidate(path string, watchMode bool) error {
	validate := func() error {
		if err := resourcegroups.ValidateFile(path); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		ui.PrintSuccess("%s is valid", path)
		return nil
	}

	if !watchMode {
		return validate()
	}

	watcher, err := watch.NewWatcher(path, validate)
	if err != nil {
		return err
	}
	defer watcher.Stop()

	// The initial run must pass; later failures only print and keep watching.
	if err := watcher.Start(); err != nil {
		return err
	}
	ui.PrintInfo("Watching %s, press Ctrl+C to stop", path)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	return nil
}
