package events

import (
	"context"
	"fmt"
	"time"

	"github.com/uiforge/uiforge/internal/progress"
)

// Row represents a row in the progress_events table.
type Row struct {
	ID        int    `json:"id"`
	JobID     string `json:"job_id"`
	Step      string `json:"step"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Isolated  bool   `json:"isolated,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Name implements progress.Sink.
func (d *DB) Name() string { return "sqlite" }

// Deliver implements progress.Sink: each emitted event becomes one row.
// At-least-once delivery means duplicate rows are possible and fine.
func (d *DB) Deliver(ctx context.Context, e progress.Event) error {
	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO progress_events (job_id, step, status, message, isolated, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		e.JobID, string(e.Step), string(e.Status), e.Message, e.Isolated, e.Timestamp.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert progress event: %w", err)
	}
	return nil
}

// ListForJob returns events for one job, oldest first. limit <= 0 means all.
func (d *DB) ListForJob(jobID string, limit int) ([]Row, error) {
	q := `SELECT id, job_id, step, status, COALESCE(message,''), isolated, timestamp
	      FROM progress_events WHERE job_id = ? ORDER BY id ASC`
	args := []interface{}{jobID}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	return d.scanRows(q, args...)
}

// Recent returns the most recent events across all jobs, newest first.
func (d *DB) Recent(limit int) ([]Row, error) {
	if limit <= 0 {
		limit = 50
	}
	return d.scanRows(
		`SELECT id, job_id, step, status, COALESCE(message,''), isolated, timestamp
		 FROM progress_events ORDER BY id DESC LIMIT ?`, limit)
}

// Since returns events with an id greater than afterID, oldest first. An
// empty jobID matches all jobs. Used to tail the log by polling.
func (d *DB) Since(afterID int, jobID string) ([]Row, error) {
	q := `SELECT id, job_id, step, status, COALESCE(message,''), isolated, timestamp
	      FROM progress_events WHERE id > ?`
	args := []interface{}{afterID}
	if jobID != "" {
		q += " AND job_id = ?"
		args = append(args, jobID)
	}
	q += " ORDER BY id ASC"
	return d.scanRows(q, args...)
}

func (d *DB) scanRows(query string, args ...interface{}) ([]Row, error) {
	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query progress events: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.JobID, &r.Step, &r.Status, &r.Message, &r.Isolated, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan progress event: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
