// Package migrate applies forward-only schema migrations for the plugin
// databases (resource groups, event listeners). Applied migrations are
// tracked in a history table with checksums; a migration whose SQL changed
// after being applied is refused.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/heliosql/helio-go/internal/debug"
)

// Migration is one schema change. ID orders migrations and must be unique;
// by convention it is a zero-padded sequence number.
type Migration struct {
	ID   string
	Name string
	SQL  string
}

// Status describes one migration relative to the database.
type Status struct {
	Migration Migration
	Applied   bool
	AppliedAt time.Time
}

// Engine applies migrations against one database.
type Engine struct {
	db       *sql.DB
	provider string // mysql, postgres, sqlite
}

// NewEngine creates a migration engine. provider selects the SQL placeholder
// dialect: "mysql", "postgres", or "sqlite".
func NewEngine(db *sql.DB, provider string) *Engine {
	return &Engine{db: db, provider: provider}
}

// Apply runs every pending migration in order and returns how many were
// applied. Already-applied migrations are verified against their recorded
// checksum and skipped; drift is an error.
func (e *Engine) Apply(ctx context.Context, migrations []Migration) (int, error) {
	if err := e.ensureHistoryTable(ctx); err != nil {
		return 0, err
	}
	records, err := e.loadRecords(ctx)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, m := range migrations {
		sum := checksum(m.SQL)
		if rec, ok := records[m.ID]; ok {
			if rec.Checksum != sum {
				return applied, fmt.Errorf("migration %s (%s) was modified after being applied", m.ID, m.Name)
			}
			continue
		}

		start := time.Now()
		if _, err := e.db.ExecContext(ctx, m.SQL); err != nil {
			return applied, fmt.Errorf("applying migration %s (%s): %w", m.ID, m.Name, err)
		}
		if err := e.recordApplied(ctx, m, sum, time.Since(start)); err != nil {
			return applied, err
		}
		debug.Info("migration applied", "id", m.ID, "name", m.Name)
		applied++
	}
	return applied, nil
}

// StatusAll reports each migration's applied state without changing anything.
func (e *Engine) StatusAll(ctx context.Context, migrations []Migration) ([]Status, error) {
	if err := e.ensureHistoryTable(ctx); err != nil {
		return nil, err
	}
	records, err := e.loadRecords(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Status, 0, len(migrations))
	for _, m := range migrations {
		st := Status{Migration: m}
		if rec, ok := records[m.ID]; ok {
			st.Applied = true
			st.AppliedAt = rec.AppliedAt
		}
		out = append(out, st)
	}
	return out, nil
}
