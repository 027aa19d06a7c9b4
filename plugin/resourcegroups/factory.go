package resourcegroups

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/heliosql/helio-go/migrate"
	"github.com/heliosql/helio-go/plugin"
)

// Factory builds a Manager from a raw option map. Environment references in
// option values are resolved first, so a failure leaves nothing initialized.
type Factory interface {
	Name() string
	Create(ctx context.Context, options map[string]string, env plugin.EnvFunc) (Manager, error)
}

// DBFactory builds database-backed managers.
type DBFactory struct{}

// Name implements Factory.
func (DBFactory) Name() string { return "db" }

// Create implements Factory.
func (DBFactory) Create(ctx context.Context, options map[string]string, env plugin.EnvFunc) (Manager, error) {
	resolved, err := plugin.SubstituteEnv(options, env)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseConfig(resolved)
	if err != nil {
		return nil, err
	}

	driver, dsn, err := plugin.DriverForURL(cfg.DBURL)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, plugin.ApplyCredentials(driver, dsn, cfg.DBUser, cfg.DBPassword))
	if err != nil {
		return nil, fmt.Errorf("opening resource group database: %w", err)
	}

	engine := migrate.NewEngine(db, driver)
	if _, err := engine.Apply(ctx, Schema); err != nil {
		db.Close()
		return nil, err
	}

	manager, err := NewDBManager(ctx, db, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	return manager, nil
}

// FileFactory builds file-backed managers.
type FileFactory struct{}

// Name implements Factory.
func (FileFactory) Name() string { return "file" }

// Create implements Factory.
func (FileFactory) Create(_ context.Context, options map[string]string, env plugin.EnvFunc) (Manager, error) {
	resolved, err := plugin.SubstituteEnv(options, env)
	if err != nil {
		return nil, err
	}
	path := resolved[optConfigFile]
	if path == "" {
		return nil, &plugin.ConfigError{Option: optConfigFile, Detail: "is required"}
	}
	return NewFileManager(path)
}
