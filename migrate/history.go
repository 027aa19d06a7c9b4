package migrate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const historyTable = "helio_schema_migrations"

type record struct {
	ID        string
	Name      string
	Checksum  string
	AppliedAt time.Time
}

func (e *Engine) ensureHistoryTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  id VARCHAR(64) PRIMARY KEY,
  name VARCHAR(255) NOT NULL,
  checksum VARCHAR(64) NOT NULL,
  applied_at TIMESTAMP NOT NULL,
  execution_time_ms BIGINT NOT NULL
)`, historyTable)
	if _, err := e.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating migration history table: %w", err)
	}
	return nil
}

func (e *Engine) loadRecords(ctx context.Context) (map[string]record, error) {
	query := fmt.Sprintf("SELECT id, name, checksum, applied_at FROM %s", historyTable)
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reading migration history: %w", err)
	}
	defer rows.Close()

	records := make(map[string]record)
	for rows.Next() {
		var rec record
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Checksum, &rec.AppliedAt); err != nil {
			return nil, fmt.Errorf("scanning migration history: %w", err)
		}
		records[rec.ID] = rec
	}
	return records, rows.Err()
}

func (e *Engine) recordApplied(ctx context.Context, m Migration, sum string, took time.Duration) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (id, name, checksum, applied_at, execution_time_ms) VALUES (%s)",
		historyTable, e.placeholders(5),
	)
	_, err := e.db.ExecContext(ctx, query, m.ID, m.Name, sum, time.Now().UTC(), took.Milliseconds())
	if err != nil {
		return fmt.Errorf("recording migration %s: %w", m.ID, err)
	}
	return nil
}

// placeholders renders n SQL placeholders in the engine's dialect.
func (e *Engine) placeholders(n int) string {
	out := ""
	for i := 1; i <= n; i++ {
		if i > 1 {
			out += ", "
		}
		if e.provider == "postgres" {
			out += fmt.Sprintf("$%d", i)
		} else {
			out += "?"
		}
	}
	return out
}

func checksum(sql string) string {
	sum := sha256.Sum256([]byte(sql))
	return hex.EncodeToString(sum[:])
}
