package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cruisesync/pkg/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
  kind       TEXT NOT NULL,
  key        TEXT NOT NULL,
  body       JSONB NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (kind, key)
);
CREATE TABLE IF NOT EXISTS sync_runs (
  id          TEXT PRIMARY KEY,
  started_at  TIMESTAMPTZ NOT NULL,
  finished_at TIMESTAMPTZ NOT NULL,
  status      TEXT NOT NULL,
  summary     JSONB,
  error       TEXT
);`

// Postgres stores documents as JSONB rows.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and creates the tables if needed.
func OpenPostgres(ctx context.Context, dsn string, maxConns int) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 2
	}
	cfg.MaxConns = int32(maxConns)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) ReadSnapshot(ctx context.Context, kind models.Kind) ([]Document, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx, `SELECT key, body FROM snapshots WHERE kind = $1 ORDER BY key`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.Key, &d.Body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (p *Postgres) WriteSnapshot(ctx context.Context, kind models.Kind, docs []Document) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	b := &pgx.Batch{}
	for _, d := range docs {
		b.Queue(`
			INSERT INTO snapshots (kind, key, body, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (kind, key) DO UPDATE SET body = excluded.body, updated_at = now()
			WHERE snapshots.body IS DISTINCT FROM excluded.body`,
			string(kind), d.Key, []byte(d.Body))
	}
	br := tx.SendBatch(ctx, b)
	for range docs {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("exec upsert for %s: %w", kind, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (p *Postgres) RecordRun(ctx context.Context, run Run) error {
	var summary []byte
	if len(run.Summary) > 0 {
		summary = run.Summary
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO sync_runs (id, started_at, finished_at, status, summary, error) VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.StartedAt, run.FinishedAt, run.Status, summary, run.Error)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

func (p *Postgres) LastRun(ctx context.Context) (*Run, error) {
	var (
		r       Run
		summary []byte
		errText *string
	)
	err := p.pool.QueryRow(ctx,
		`SELECT id, started_at, finished_at, status, summary, error FROM sync_runs ORDER BY finished_at DESC LIMIT 1`,
	).Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Status, &summary, &errText)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last run: %w", err)
	}
	r.Summary = summary
	if errText != nil {
		r.Error = *errText
	}
	return &r, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
