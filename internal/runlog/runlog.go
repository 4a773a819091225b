// Package runlog keeps a local SQLite history of pipeline runs so
// operators can review past usage, cost, and error counts.
package runlog

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/KtodaZ/the-exicon-project-sub000/internal/enrich"
)

// Run is one recorded pipeline run.
type Run struct {
	ID               string
	Status           string
	Items            int
	Batches          int
	FailedBatches    int
	DefaultedItems   int
	DuplicateIDs     int
	PromptTokens     int64
	CompletionTokens int64
	CostUSD          float64
	UpsertErrors     int
	StartedAt        time.Time
	FinishedAt       *time.Time
}

// Run statuses.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Log wraps the SQLite run history database.
type Log struct {
	db *sql.DB
}

// Open opens (creating if needed) the run log at path and configures WAL.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "runlog: exec %s", pragma)
		}
	}
	return &Log{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS runs (
	id                TEXT PRIMARY KEY,
	status            TEXT NOT NULL DEFAULT 'running',
	items             INTEGER NOT NULL DEFAULT 0,
	batches           INTEGER NOT NULL DEFAULT 0,
	failed_batches    INTEGER NOT NULL DEFAULT 0,
	defaulted_items   INTEGER NOT NULL DEFAULT 0,
	duplicate_ids     INTEGER NOT NULL DEFAULT 0,
	prompt_tokens     INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	cost_usd          REAL NOT NULL DEFAULT 0,
	upsert_errors     INTEGER NOT NULL DEFAULT 0,
	started_at        DATETIME NOT NULL,
	finished_at       DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Migrate creates the schema if it does not exist.
func (l *Log) Migrate(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "runlog: migrate")
}

// Close closes the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}

// Start records the beginning of a run and returns its id.
func (l *Log) Start(ctx context.Context) (string, error) {
	id := uuid.New().String()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, started_at) VALUES (?, ?, ?)`,
		id, StatusRunning, time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "runlog: insert run")
	}
	return id, nil
}

// Finish records the outcome of a run.
func (l *Log) Finish(ctx context.Context, id, status string, summary enrich.RunSummary) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, items = ?, batches = ?, failed_batches = ?,
			defaulted_items = ?, duplicate_ids = ?, prompt_tokens = ?,
			completion_tokens = ?, cost_usd = ?, finished_at = ?
		WHERE id = ?`,
		status, summary.Items, summary.Batches, summary.FailedBatches,
		summary.DefaultedItems, summary.DuplicateIDs, summary.Cost.PromptTokens,
		summary.Cost.CompletionTokens, summary.Cost.CostUSD, time.Now().UTC(),
		id,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: finish run %s", id)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return eris.Errorf("runlog: run %s not found", id)
	}
	return nil
}

// RecordUpsertErrors stores the store-writer error count for a run.
func (l *Log) RecordUpsertErrors(ctx context.Context, id string, errors int) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE runs SET upsert_errors = ? WHERE id = ?`, errors, id)
	return eris.Wrapf(err, "runlog: record upsert errors %s", id)
}

// List returns the most recent runs, newest first.
func (l *Log) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, status, items, batches, failed_batches, defaulted_items,
			duplicate_ids, prompt_tokens, completion_tokens, cost_usd,
			upsert_errors, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Status, &r.Items, &r.Batches,
			&r.FailedBatches, &r.DefaultedItems, &r.DuplicateIDs,
			&r.PromptTokens, &r.CompletionTokens, &r.CostUSD,
			&r.UpsertErrors, &r.StartedAt, &finished); err != nil {
			return nil, eris.Wrap(err, "runlog: scan run")
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "runlog: iterate runs")
}
