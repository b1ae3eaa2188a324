// Package report persists abandoned download failures so a run can be
// audited after the fact.
package report

import (
	"context"
	"database/sql"
	_ "embed"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Failure is one abandoned item.
type Failure struct {
	RunID      string
	Item       string
	GroupKey   string
	Kind       string
	Detail     string
	OccurredAt time.Time
}

// Journal manages failure persistence backed by SQLite.
type Journal struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create journal directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite db")
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, errors.Wrapf(execErr, "apply pragma %q", pragma)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create schema")
	}

	return &Journal{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record inserts one failure row.
func (j *Journal) Record(ctx context.Context, f Failure) error {
	occurred := f.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO failures (run_id, item, group_key, kind, detail, occurred_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		f.RunID, f.Item, f.GroupKey, f.Kind, f.Detail,
		occurred.Format(time.RFC3339Nano),
	)
	if err != nil {
		return errors.Wrap(err, "insert failure")
	}
	return nil
}

// ListRun returns all failures recorded for a run, oldest first.
func (j *Journal) ListRun(ctx context.Context, runID string) ([]Failure, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, item, group_key, kind, detail, occurred_at
         FROM failures WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query failures")
	}
	defer rows.Close()

	var failures []Failure
	for rows.Next() {
		var f Failure
		var occurred string
		if err := rows.Scan(&f.RunID, &f.Item, &f.GroupKey, &f.Kind, &f.Detail, &occurred); err != nil {
			return nil, errors.Wrap(err, "scan failure row")
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, occurred); parseErr == nil {
			f.OccurredAt = ts
		}
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate failure rows")
	}
	return failures, nil
}
