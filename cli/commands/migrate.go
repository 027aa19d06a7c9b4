package commands

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heliosql/helio-go/cli/internal/config"
	"github.com/heliosql/helio-go/cli/internal/ui"
	"github.com/heliosql/helio-go/migrate"
	"github.com/heliosql/helio-go/plugin"
	"github.com/heliosql/helio-go/plugin/eventlistener/mysqlevent"
	"github.com/heliosql/helio-go/plugin/resourcegroups"
)

// pluginSchemas maps the --plugin flag values to their migration sets.
var pluginSchemas = map[string][]migrate.Migration{
	"resource-groups":      resourcegroups.Schema,
	"mysql-event-listener": mysqlevent.Schema,
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	var dbURL string
	var pluginName string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply plugin schema migrations",
		Long:  "Create or update the database tables a plugin needs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), dbURL, pluginName)
		},
	}
	cmd.Flags().StringVar(&dbURL, "url", "", "Database URL (defaults to the configured database_url)")
	cmd.Flags().StringVar(&pluginName, "plugin", "all", "Plugin schema to apply: resource-groups, mysql-event-listener or all")

	cmd.AddCommand(newMigrateStatusCommand(&dbURL, &pluginName))
	return cmd
}

func newMigrateStatusCommand(dbURL, pluginName *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateStatus(cmd.Context(), *dbURL, *pluginName)
		},
	}
}

func schemasFor(pluginName string) (map[string][]migrate.Migration, error) {
	if pluginName == "all" {
		return pluginSchemas, nil
	}
	schema, ok := pluginSchemas[pluginName]
	if !ok {
		return nil, fmt.Errorf("unknown plugin %q, expected resource-groups, mysql-event-listener or all", pluginName)
	}
	return map[string][]migrate.Migration{pluginName: schema}, nil
}

func openDatabase(dbURL string) (*sql.DB, string, error) {
	if dbURL == "" {
		cfg, err := config.LoadConfig()
		if err != nil {
			return nil, "", err
		}
		dbURL = cfg.DatabaseURL
	}
	if dbURL == "" {
		return nil, "", fmt.Errorf("no database URL: pass --url or set database_url in the config")
	}

	driver, dsn, err := plugin.DriverForURL(dbURL)
	if err != nil {
		return nil, "", err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}
	return db, driver, nil
}

func runMigrate(ctx context.Context, dbURL, pluginName string) error {
	schemas, err := schemasFor(pluginName)
	if err != nil {
		return err
	}
	db, driver, err := openDatabase(dbURL)
	if err != nil {
		return err
	}
	defer db.Close()

	engine := migrate.NewEngine(db, driver)
	total := 0
	for name, schema := range schemas {
		spinner, err := ui.PrintSpinner(fmt.Sprintf("Applying %s schema", name))
		if err != nil {
			return err
		}
		applied, err := engine.Apply(ctx, schema)
		if err != nil {
			spinner.Fail(fmt.Sprintf("%s schema failed", name))
			return fmt.Errorf("applying %s schema: %w", name, err)
		}
		spinner.Stop()
		if applied > 0 {
			ui.PrintSuccess("%s: applied %d migration(s)", name, applied)
		}
		total += applied
	}
	if total == 0 {
		ui.PrintInfo("All plugin schemas are up to date")
	}
	return nil
}

func runMigrateStatus(ctx context.Context, dbURL, pluginName string) error {
	schemas, err := schemasFor(pluginName)
	if err != nil {
		return err
	}
	db, driver, err := openDatabase(dbURL)
	if err != nil {
		return err
	}
	defer db.Close()

	engine := migrate.NewEngine(db, driver)
	rows := [][]string{}
	for name, schema := range schemas {
		statuses, err := engine.StatusAll(ctx, schema)
		if err != nil {
			return fmt.Errorf("reading %s schema status: %w", name, err)
		}
		for _, st := range statuses {
			state := "pending"
			if st.Applied {
				state = st.AppliedAt.Format("2006-01-02 15:04:05")
			}
			rows = append(rows, []string{name, st.Migration.ID, st.Migration.Name, state})
		}
	}
	ui.PrintTable([]string{"Plugin", "ID", "Migration", "Applied"}, rows)
	return nil
}
