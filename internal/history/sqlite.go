package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, no CGO
)

const busyTimeout = 5 * time.Second

// Store is the SQLite-backed Recorder
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at path. ":memory:" gives a
// throwaway in-memory database.
func Open(path string) (*Store, error) {
	// The pragmas ride in the DSN so they apply to every pooled connection.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		path, busyTimeout.Milliseconds(),
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	// Single writer keeps "database is locked" out of the picture; reads
	// still overlap under WAL.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: ping %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migrate %s: %w", path, err)
	}
	return s, nil
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

// migrations[i] brings the schema from version i to i+1. Steps are append
// only; a database left by any released version replays the missing tail.
var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS analyses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hash TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		ok INTEGER NOT NULL,
		diagnostics INTEGER NOT NULL,
		robots INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		outcome TEXT NOT NULL CHECK(outcome IN ('ok', 'error', 'canceled')),
		moves INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`,
	`
	ALTER TABLE analyses ADD COLUMN symbols INTEGER NOT NULL DEFAULT 0;
	ALTER TABLE analyses ADD COLUMN quads INTEGER NOT NULL DEFAULT 0;
	ALTER TABLE runs ADD COLUMN driver TEXT NOT NULL DEFAULT '';
	`,
}

// migrate brings the schema up to the current version, tracked through
// PRAGMA user_version
func (s *Store) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return err
	}
	for ; version < len(migrations); version++ {
		if _, err := s.db.ExecContext(ctx, migrations[version]); err != nil {
			return fmt.Errorf("step %d: %w", version+1, err)
		}
		// PRAGMA does not take placeholders.
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version+1)); err != nil {
			return err
		}
	}
	return nil
}

// RecordAnalysis stores one analysis outcome
func (s *Store) RecordAnalysis(ctx context.Context, a Analysis) error {
	if a.At.IsZero() {
		a.At = time.Now()
	}
	query := `
	INSERT INTO analyses (hash, source, ok, diagnostics, robots, symbols, quads, duration_ms, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		a.Hash, a.Source, a.OK, a.Diagnostics, a.Robots, a.Symbols, a.Quads,
		a.Duration.Milliseconds(), a.At.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// RecentAnalyses returns up to limit analyses, newest first
func (s *Store) RecentAnalyses(ctx context.Context, limit int) ([]Analysis, error) {
	query := `
	SELECT id, hash, source, ok, diagnostics, robots, symbols, quads, duration_ms, created_at
	FROM analyses
	ORDER BY id DESC
	LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Analysis
	for rows.Next() {
		var a Analysis
		var durMS int64
		var at string
		if err := rows.Scan(&a.ID, &a.Hash, &a.Source, &a.OK, &a.Diagnostics, &a.Robots,
			&a.Symbols, &a.Quads, &durMS, &at); err != nil {
			return nil, err
		}
		a.Duration = time.Duration(durMS) * time.Millisecond
		a.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, a)
	}
	return out, rows.Err()
}

// RecordRun stores one run outcome. Re-recording the same run id replaces
// the earlier row.
func (s *Store) RecordRun(ctx context.Context, r Run) error {
	if r.At.IsZero() {
		r.At = time.Now()
	}
	query := `
	INSERT INTO runs (id, outcome, driver, moves, duration_ms, error, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		outcome = excluded.outcome,
		driver = excluded.driver,
		moves = excluded.moves,
		duration_ms = excluded.duration_ms,
		error = excluded.error
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Outcome, r.Driver, r.Moves, r.Duration.Milliseconds(), r.Error,
		r.At.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// RecentRuns returns up to limit runs, newest first
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
	SELECT id, outcome, driver, moves, duration_ms, error, created_at
	FROM runs
	ORDER BY created_at DESC, id
	LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		var r Run
		var durMS int64
		var at string
		if err := rows.Scan(&r.ID, &r.Outcome, &r.Driver, &r.Moves, &durMS, &r.Error, &at); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(durMS) * time.Millisecond
		r.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Prune drops all but the newest keep records per kind
func (s *Store) Prune(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM analyses WHERE id NOT IN (SELECT id FROM analyses ORDER BY id DESC LIMIT ?)`,
		keep,
	); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY created_at DESC, id LIMIT ?)`,
		keep,
	)
	return err
}
