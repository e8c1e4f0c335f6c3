// Package store provides SQLite-backed persistence for the mock control plane.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// defaultLimit caps list queries that do not set their own limit.
const defaultLimit = 100

// Store provides access to the execution fixtures.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Open with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workflows (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		type TEXT NOT NULL,
		task_queue TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		start_time DATETIME NOT NULL,
		close_time DATETIME
	);

	CREATE TABLE IF NOT EXISTS activities (
		id TEXT PRIMARY KEY,
		workflow_id TEXT NOT NULL,
		type TEXT NOT NULL,
		task_queue TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'scheduled',
		seq INTEGER NOT NULL,
		attempt INTEGER NOT NULL DEFAULT 0,
		worker_id TEXT,
		scheduled_at DATETIME NOT NULL,
		started_at DATETIME,
		closed_at DATETIME,
		last_failure TEXT,
		FOREIGN KEY (workflow_id) REFERENCES workflows(id)
	);

	CREATE TABLE IF NOT EXISTS activity_attempts (
		id TEXT PRIMARY KEY,
		activity_id TEXT NOT NULL,
		number INTEGER NOT NULL,
		worker_id TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		closed_at DATETIME,
		failure TEXT,
		FOREIGN KEY (activity_id) REFERENCES activities(id)
	);

	CREATE TABLE IF NOT EXISTS task_queues (
		name TEXT PRIMARY KEY,
		kind TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS workers (
		id TEXT PRIMARY KEY,
		identity TEXT NOT NULL,
		task_queue TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'idle',
		capacity INTEGER NOT NULL DEFAULT 1,
		last_heartbeat DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_workflows_status ON workflows(status);
	CREATE INDEX IF NOT EXISTS idx_activities_workflow_id ON activities(workflow_id);
	CREATE INDEX IF NOT EXISTS idx_activities_status ON activities(status);
	CREATE INDEX IF NOT EXISTS idx_attempts_activity_id ON activity_attempts(activity_id);
	CREATE INDEX IF NOT EXISTS idx_workers_task_queue ON workers(task_queue);
	`

	_, err := s.db.Exec(schema)
	return err
}

// stamp normalizes a time for storage.
func stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return stamp(*t)
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func likePattern(q string) string {
	return "%" + q + "%"
}
