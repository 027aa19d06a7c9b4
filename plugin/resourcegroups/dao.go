package resourcegroups

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/heliosql/helio-go/migrate"
)

// Schema is the db-backed manager's table set, applied through the migrate
// engine before the first load.
var Schema = []migrate.Migration{
	{
		ID:   "001",
		Name: "create_resource_groups",
		SQL: `CREATE TABLE IF NOT EXISTS resource_groups (
  id BIGINT PRIMARY KEY,
  name VARCHAR(250) NOT NULL,
  soft_memory_limit VARCHAR(128) NOT NULL,
  max_queued INT NOT NULL,
  hard_concurrency_limit INT NOT NULL,
  scheduling_policy VARCHAR(128)
)`,
	},
	{
		ID:   "002",
		Name: "create_selectors",
		SQL: `CREATE TABLE IF NOT EXISTS selectors (
  id BIGINT PRIMARY KEY,
  resource_group_id BIGINT NOT NULL,
  priority BIGINT NOT NULL,
  user_regex VARCHAR(512),
  source_regex VARCHAR(512),
  query_type VARCHAR(128)
)`,
	},
	{
		ID:   "003",
		Name: "create_exact_match_source_selectors",
		SQL: `CREATE TABLE IF NOT EXISTS exact_match_source_selectors (
  source VARCHAR(512) NOT NULL,
  query_type VARCHAR(128) NOT NULL,
  resource_group_name VARCHAR(250) NOT NULL,
  PRIMARY KEY (source, query_type)
)`,
	},
}

// DAO reads resource group configuration rows. Prepared statements are
// cached per query text.
type DAO struct {
	db *sql.DB

	cacheMu   sync.RWMutex
	stmtCache map[string]*sql.Stmt
}

// NewDAO wraps an open database handle.
func NewDAO(db *sql.DB) *DAO {
	return &DAO{db: db, stmtCache: make(map[string]*sql.Stmt)}
}

func (d *DAO) getCachedStmt(ctx context.Context, query string) (*sql.Stmt, error) {
	d.cacheMu.RLock()
	stmt, ok := d.stmtCache[query]
	d.cacheMu.RUnlock()
	if ok && stmt != nil {
		return stmt, nil
	}

	stmt, err := d.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	d.cacheMu.Lock()
	d.stmtCache[query] = stmt
	d.cacheMu.Unlock()
	return stmt, nil
}

// Groups loads every resource group definition.
func (d *DAO) Groups(ctx context.Context) ([]Group, error) {
	const query = `SELECT name, soft_memory_limit, max_queued, hard_concurrency_limit, COALESCE(scheduling_policy, '') FROM resource_groups ORDER BY id`
	stmt, err := d.getCachedStmt(ctx, query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading resource groups: %w", err)
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.Name, &g.SoftMemoryLimit, &g.MaxQueued, &g.HardConcurrencyLimit, &g.SchedulingPolicy); err != nil {
			return nil, fmt.Errorf("scanning resource group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// Selectors loads every selector, joined to its group name.
func (d *DAO) Selectors(ctx context.Context) ([]SelectorSpec, error) {
	const query = `SELECT s.priority, COALESCE(s.user_regex, ''), COALESCE(s.source_regex, ''), COALESCE(s.query_type, ''), g.name
FROM selectors s JOIN resource_groups g ON g.id = s.resource_group_id
ORDER BY s.priority DESC`
	stmt, err := d.getCachedStmt(ctx, query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading selectors: %w", err)
	}
	defer rows.Close()

	var specs []SelectorSpec
	for rows.Next() {
		var spec SelectorSpec
		if err := rows.Scan(&spec.Priority, &spec.UserRegex, &spec.SourceRe, &spec.QueryType, &spec.Group); err != nil {
			return nil, fmt.Errorf("scanning selector: %w", err)
		}
		specs = append(specs, spec)
	}
	return specs, rows.Err()
}

// ExactMatches loads the exact source and query type selector rows.
func (d *DAO) ExactMatches(ctx context.Context) ([]ExactMatchSpec, error) {
	const query = `SELECT source, query_type, resource_group_name FROM exact_match_source_selectors`
	stmt, err := d.getCachedStmt(ctx, query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading exact match selectors: %w", err)
	}
	defer rows.Close()

	var specs []ExactMatchSpec
	for rows.Next() {
		var spec ExactMatchSpec
		if err := rows.Scan(&spec.Source, &spec.QueryType, &spec.Group); err != nil {
			return nil, fmt.Errorf("scanning exact match selector: %w", err)
		}
		specs = append(specs, spec)
	}
	return specs, rows.Err()
}

// Close releases the cached prepared statements.
func (d *DAO) Close() {
	d.cacheMu.Lock()
	defer d.cacheMu.Unlock()
	for _, stmt := range d.stmtCache {
		stmt.Close()
	}
	d.stmtCache = make(map[string]*sql.Stmt)
}
