// Package mysqlevent persists query completion events to a MySQL database.
package mysqlevent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/viper"

	"github.com/heliosql/helio-go/migrate"
	"github.com/heliosql/helio-go/plugin"
	"github.com/heliosql/helio-go/plugin/eventlistener"
)

// Option names accepted by the factory.
const (
	optDBURL      = "mysql-event-listener.db.url"
	optDBUser     = "mysql-event-listener.db.user"
	optDBPassword = "mysql-event-listener.db.password"
)

// Config is the listener configuration, decoded from the factory option map.
type Config struct {
	DBURL      string
	DBUser     string
	DBPassword string
}

// ParseConfig decodes the option map. Option keys contain dots, so the viper
// instance uses a delimiter that cannot appear in them.
func ParseConfig(options map[string]string) (Config, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	for key, value := range options {
		v.Set(key, value)
	}
	cfg := Config{
		DBURL:      v.GetString(optDBURL),
		DBUser:     v.GetString(optDBUser),
		DBPassword: v.GetString(optDBPassword),
	}
	if cfg.DBURL == "" {
		return Config{}, &plugin.ConfigError{Option: optDBURL, Detail: "is required"}
	}
	driver, _, err := plugin.DriverForURL(cfg.DBURL)
	if err != nil {
		return Config{}, err
	}
	// The insert statement uses mysql-style placeholders.
	if driver == "postgres" {
		return Config{}, &plugin.ConfigError{Option: optDBURL, Detail: "postgres is not supported, use a mysql:// or sqlite:// url"}
	}
	return cfg, nil
}

// Schema is the listener's table set, applied before the first insert.
var Schema = []migrate.Migration{
	{
		ID:   "001",
		Name: "create_helio_queries",
		SQL: `CREATE TABLE IF NOT EXISTS helio_queries (
  query_id VARCHAR(255) PRIMARY KEY,
  query_user VARCHAR(512) NOT NULL,
  source VARCHAR(512),
  query TEXT NOT NULL,
  query_state VARCHAR(64) NOT NULL,
  error_code INT,
  error_name VARCHAR(255),
  cpu_time_millis BIGINT NOT NULL,
  wall_time_millis BIGINT NOT NULL,
  queued_time_millis BIGINT NOT NULL,
  processed_rows BIGINT NOT NULL,
  processed_bytes BIGINT NOT NULL,
  peak_memory_bytes BIGINT NOT NULL,
  created_at TIMESTAMP NOT NULL
)`,
	},
}

const insertQuery = `INSERT INTO helio_queries (
  query_id, query_user, source, query, query_state,
  error_code, error_name,
  cpu_time_millis, wall_time_millis, queued_time_millis,
  processed_rows, processed_bytes, peak_memory_bytes, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// DAO persists events. The insert statement is prepared once and reused.
type DAO struct {
	db *sql.DB

	mu         sync.Mutex
	insertStmt *sql.Stmt
	closed     bool
}

// NewDAO wraps an open database handle.
func NewDAO(db *sql.DB) *DAO {
	return &DAO{db: db}
}

func (d *DAO) stmt(ctx context.Context) (*sql.Stmt, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errors.New("event dao is closed")
	}
	if d.insertStmt != nil {
		return d.insertStmt, nil
	}
	stmt, err := d.db.PrepareContext(ctx, insertQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	d.insertStmt = stmt
	return stmt, nil
}

// Store persists one event.
func (d *DAO) Store(ctx context.Context, event eventlistener.QueryCompletedEvent) error {
	stmt, err := d.stmt(ctx)
	if err != nil {
		return err
	}

	var errorCode any
	var errorName any
	if event.ErrorName != "" {
		errorCode, errorName = event.ErrorCode, event.ErrorName
	}
	if _, err := stmt.ExecContext(ctx,
		event.QueryID, event.User, event.Source, event.Query, event.State,
		errorCode, errorName,
		event.CPUTimeMillis, event.WallTimeMillis, event.QueuedTimeMillis,
		event.ProcessedRows, event.ProcessedBytes, event.PeakMemoryBytes, event.CreatedAt,
	); err != nil {
		return fmt.Errorf("storing query event %s: %w", event.QueryID, err)
	}
	return nil
}

// Close releases the prepared statement. Later Stores fail instead of
// re-preparing.
func (d *DAO) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	if d.insertStmt != nil {
		err := d.insertStmt.Close()
		d.insertStmt = nil
		return err
	}
	return nil
}

// Listener writes completion events through a DAO.
type Listener struct {
	dao *DAO
	db  *sql.DB
}

// QueryCompleted implements eventlistener.Listener.
func (l *Listener) QueryCompleted(ctx context.Context, event eventlistener.QueryCompletedEvent) error {
	return l.dao.Store(ctx, event)
}

// Close implements eventlistener.Listener.
func (l *Listener) Close() error {
	err := l.dao.Close()
	if closeErr := l.db.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Factory builds MySQL-backed listeners from a raw option map.
type Factory struct{}

// Name returns the factory registration name.
func (Factory) Name() string { return "mysql" }

// Create resolves environment references, opens the database, applies the
// schema and returns a ready listener. Any failure leaves nothing open.
func (Factory) Create(ctx context.Context, options map[string]string, env plugin.EnvFunc) (eventlistener.Listener, error) {
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
		return nil, fmt.Errorf("opening event listener database: %w", err)
	}
	if _, err := migrate.NewEngine(db, driver).Apply(ctx, Schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Listener{dao: NewDAO(db), db: db}, nil
}
