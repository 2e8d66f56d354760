// Package pgstore is a Postgres-backed implementation of tcc.Store for
// multi-process deployments where a directory of JSON files cannot be
// shared. Contexts are stored as JSONB documents with a version column used
// for optimistic concurrency.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uiforge/uiforge/internal/tcc"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    job_id     TEXT PRIMARY KEY,
    job_status TEXT NOT NULL,
    doc        JSONB NOT NULL,
    version    INTEGER NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs (job_status);
`

// updateRetries bounds the optimistic-concurrency retry loop. Normal
// contention on one job is just the two parallel siblings racing, but a
// burst of writers must still drain, so the bound is generous.
const updateRetries = 32

// Store implements tcc.Store over a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Create implements tcc.Store.
func (s *Store) Create(t *tcc.ToolConstructionContext) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}
	tag, err := s.pool.Exec(context.Background(),
		`INSERT INTO jobs (job_id, job_status, doc, version) VALUES ($1, $2, $3, $4)
         ON CONFLICT (job_id) DO NOTHING`,
		t.JobID, string(t.JobStatus), doc, t.Version)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", t.JobID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s already exists", t.JobID)
	}
	return nil
}

// Get implements tcc.Store.
func (s *Store) Get(jobID string) (*tcc.ToolConstructionContext, error) {
	var doc []byte
	err := s.pool.QueryRow(context.Background(),
		`SELECT doc FROM jobs WHERE job_id = $1`, jobID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, tcc.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select job %s: %w", jobID, err)
	}
	var t tcc.ToolConstructionContext
	if err := json.Unmarshal(doc, &t); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", jobID, err)
	}
	return &t, nil
}

// Update implements tcc.Store. The read-modify-write runs under optimistic
// concurrency: the write is conditioned on the version read, and a lost race
// re-reads and reapplies fn.
func (s *Store) Update(jobID string, fn func(*tcc.ToolConstructionContext) error) (*tcc.ToolConstructionContext, error) {
	ctx := context.Background()
	for attempt := 0; attempt < updateRetries; attempt++ {
		t, err := s.Get(jobID)
		if err != nil {
			return nil, err
		}
		readVersion := t.Version
		if err := fn(t); err != nil {
			return nil, err
		}
		t.Version = readVersion + 1
		t.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

		doc, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("marshal context: %w", err)
		}
		tag, err := s.pool.Exec(ctx,
			`UPDATE jobs SET doc = $1, job_status = $2, version = $3, updated_at = now()
             WHERE job_id = $4 AND version = $5`,
			doc, string(t.JobStatus), t.Version, jobID, readVersion)
		if err != nil {
			return nil, fmt.Errorf("update job %s: %w", jobID, err)
		}
		if tag.RowsAffected() == 1 {
			return t, nil
		}
		// Lost the version race; re-read and reapply.
	}
	return nil, tcc.ErrVersionConflict
}

// List implements tcc.Store. Pass "" to return every job.
func (s *Store) List(statusFilter tcc.JobStatus) ([]*tcc.ToolConstructionContext, error) {
	ctx := context.Background()
	var rows pgx.Rows
	var err error
	if statusFilter == "" {
		rows, err = s.pool.Query(ctx, `SELECT doc FROM jobs ORDER BY updated_at DESC`)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT doc FROM jobs WHERE job_status = $1 ORDER BY updated_at DESC`,
			string(statusFilter))
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*tcc.ToolConstructionContext
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		var t tcc.ToolConstructionContext
		if err := json.Unmarshal(doc, &t); err != nil {
			return nil, fmt.Errorf("decode job: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// Delete implements tcc.Store.
func (s *Store) Delete(jobID string) error {
	tag, err := s.pool.Exec(context.Background(),
		`DELETE FROM jobs WHERE job_id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return tcc.ErrNotFound
	}
	return nil
}
