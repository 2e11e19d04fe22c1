package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Execer runs statements. *pgxpool.Pool satisfies it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SchemaStatements create the archive tables. They are idempotent.
var SchemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS parameter_values (
		session_id       UUID        NOT NULL,
		monitor_id       TEXT        NOT NULL,
		name             TEXT        NOT NULL,
		namespace        TEXT        NOT NULL DEFAULT '',
		generation_time  TIMESTAMPTZ NOT NULL,
		acquisition_time TIMESTAMPTZ,
		received_at      TIMESTAMPTZ NOT NULL,
		eng_type         TEXT        NOT NULL DEFAULT '',
		numeric_value    DOUBLE PRECISION,
		text_value       TEXT,
		monitoring       TEXT        NOT NULL DEFAULT '',
		PRIMARY KEY (name, namespace, generation_time, session_id)
	)`,
	`CREATE INDEX IF NOT EXISTS parameter_values_received_idx
		ON parameter_values (received_at)`,
}

const hypertableStatement = `SELECT create_hypertable('parameter_values', 'generation_time', if_not_exists => TRUE, migrate_data => TRUE)`

// EnsureSchema creates the archive tables and, when the timescaledb
// extension is installed, converts parameter_values into a hypertable.
func EnsureSchema(ctx context.Context, db Execer) error {
	for _, stmt := range SchemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	var timescale bool
	err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'timescaledb')`).Scan(&timescale)
	if err != nil {
		return fmt.Errorf("check timescaledb extension: %w", err)
	}
	if !timescale {
		return nil
	}

	if _, err := db.Exec(ctx, hypertableStatement); err != nil {
		return fmt.Errorf("create hypertable: %w", err)
	}
	return nil
}
