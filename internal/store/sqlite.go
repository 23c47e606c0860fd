package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cruisesync/pkg/models"
)

// runTime keeps run timestamps fixed-width so they sort as text.
const runTime = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite stores documents in the snapshots table created by pkg/database.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) ReadSnapshot(ctx context.Context, kind models.Kind) ([]Document, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, body FROM snapshots WHERE kind = ? ORDER BY rowid`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var d Document
		var body string
		if err := rows.Scan(&d.Key, &body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		d.Body = []byte(body)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *SQLite) WriteSnapshot(ctx context.Context, kind models.Kind, docs []Document) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshots (kind, key, body, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(kind, key) DO UPDATE SET
		  body = excluded.body,
		  updated_at = excluded.updated_at
		WHERE snapshots.body <> excluded.body
	`)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, d := range docs {
		if _, err := stmt.ExecContext(ctx, string(kind), d.Key, string(d.Body), now); err != nil {
			return fmt.Errorf("exec upsert for %s/%s: %w", kind, d.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLite) RecordRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_runs (id, started_at, finished_at, status, summary, error) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(runTime), run.FinishedAt.UTC().Format(runTime),
		run.Status, string(run.Summary), run.Error)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

func (s *SQLite) LastRun(ctx context.Context) (*Run, error) {
	var (
		r                 Run
		started, finished string
		summary, errText  sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, status, summary, error FROM sync_runs ORDER BY finished_at DESC, rowid DESC LIMIT 1`,
	).Scan(&r.ID, &started, &finished, &r.Status, &summary, &errText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last run: %w", err)
	}
	r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
	if summary.Valid && summary.String != "" {
		r.Summary = []byte(summary.String)
	}
	r.Error = errText.String
	return &r, nil
}

func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLite) Close() error { return s.db.Close() }
