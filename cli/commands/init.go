package commands

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/heliosql/helio-go/cli/internal/config"
	"github.com/heliosql/helio-go/cli/internal/ui"
	"github.com/heliosql/helio-go/cli/internal/version"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactively set up the helio CLI configuration",
		Long:  "Walk through the engine and plugin settings and write them to the user config file",
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	ui.PrintHeader("helio init", "Client tooling for the Helio engine, v"+version.Version)

	cfg := &config.Config{}

	questions := []*survey.Question{
		{
			Name: "engineURL",
			Prompt: &survey.Input{
				Message: "Engine URL:",
				Default: "http://localhost:8080",
			},
			Validate: survey.Required,
		},
		{
			Name: "user",
			Prompt: &survey.Input{
				Message: "Default query user:",
			},
		},
	}
	answers := struct {
		EngineURL string
		User      string
	}{}
	if err := survey.Ask(questions, &answers); err != nil {
		return err
	}
	cfg.EngineURL = answers.EngineURL
	cfg.User = answers.User

	var managerKind string
	if err := survey.AskOne(&survey.Select{
		Message: "Resource group manager:",
		Options: []string{"db", "file", "none"},
		Default: "none",
	}, &managerKind); err != nil {
		return err
	}
	switch managerKind {
	case "db":
		if err := survey.AskOne(&survey.Input{
			Message: "Resource group database URL (mysql://, postgres:// or sqlite://):",
		}, &cfg.DatabaseURL, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	case "file":
		if err := survey.AskOne(&survey.Input{
			Message: "Resource groups JSON file:",
			Default: "resource-groups.json",
		}, &cfg.ResourceGroupsFile); err != nil {
			return err
		}
	}

	var wantsListener bool
	if err := survey.AskOne(&survey.Confirm{
		Message: "Post query events to an HTTP collector?",
	}, &wantsListener); err != nil {
		return err
	}
	if wantsListener {
		if err := survey.AskOne(&survey.Input{
			Message: "Collector ingest URI:",
		}, &cfg.EventListenerURI, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}

	path, err := config.SaveConfig(cfg)
	if err != nil {
		return err
	}

	summary := fmt.Sprintf("Engine URL:       %s\nUser:             %s", cfg.EngineURL, cfg.User)
	if cfg.DatabaseURL != "" {
		summary += fmt.Sprintf("\nResource group DB: %s", cfg.DatabaseURL)
	}
	if cfg.ResourceGroupsFile != "" {
		summary += fmt.Sprintf("\nResource groups:  %s", cfg.ResourceGroupsFile)
	}
	if cfg.EventListenerURI != "" {
		summary += fmt.Sprintf("\nEvent collector:  %s", cfg.EventListenerURI)
	}
	ui.PrintBox("Configuration", summary)

	ui.PrintSuccess("Configuration written to %s", path)
	ui.PrintList([]string{
		"Run `helio migrate` to create the plugin tables",
		"Run `helio validate <file>` to check a resource groups config",
		"Run `helio docs` for an overview",
	})
	return nil
}
