package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type Config struct {
	Path string
}

const schema string = `
CREATE TABLE IF NOT EXISTS workflow_definitions (
	tenant_id TEXT NOT NULL,
	logical_name TEXT NOT NULL,
	display_name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	trigger_type TEXT NOT NULL,
	trigger_entity_logical_name TEXT,
	steps_json TEXT NOT NULL,
	max_attempts INTEGER NOT NULL CHECK (max_attempts BETWEEN 1 AND 10),
	is_enabled INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (tenant_id, logical_name)
);

CREATE TABLE IF NOT EXISTS workflow_execution_runs (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	workflow_logical_name TEXT NOT NULL,
	trigger_type TEXT NOT NULL,
	trigger_entity_logical_name TEXT,
	trigger_payload TEXT NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('running','succeeded','dead_lettered')),
	attempts INTEGER NOT NULL DEFAULT 0,
	dead_letter_reason TEXT,
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_tenant_started
	ON workflow_execution_runs (tenant_id, started_at DESC);

CREATE TABLE IF NOT EXISTS workflow_execution_attempts (
	run_id TEXT NOT NULL REFERENCES workflow_execution_runs(id),
	attempt_number INTEGER NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('succeeded','failed')),
	error_message TEXT,
	executed_at TIMESTAMP NOT NULL,
	PRIMARY KEY (run_id, attempt_number)
);
`

// Open opens (or creates) the database, applies pragmas and the schema.
// SQLite allows a single writer, so the pool is capped at one connection;
// that also serializes ledger writes per run.
func Open(conf Config) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", conf.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return db, nil
}
