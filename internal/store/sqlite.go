package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"cylbom/internal/bom"
)

// SQLite is the file-backed Knowledge implementation. A single
// connection with WAL and a busy timeout keeps writers serialized
// without lock contention errors.
type SQLite struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS results (
    code         TEXT PRIMARY KEY,
    payload      BLOB NOT NULL,
    processed_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS checkpoints (
    job_id   TEXT PRIMARY KEY,
    payload  BLOB NOT NULL,
    saved_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS jobs (
    id          TEXT PRIMARY KEY,
    status      TEXT NOT NULL,
    total_items INTEGER NOT NULL,
    started_at  TIMESTAMP NOT NULL,
    updated_at  TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    detail      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
`

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

func (s *SQLite) LookupByCode(ctx context.Context, code string) (*Result, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT code, payload, processed_at FROM results WHERE code = ?`, code)
	return scanResult(row)
}

// LookupByPrefix relies on item codes being alphanumeric: no LIKE
// metacharacters to escape.
func (s *SQLite) LookupByPrefix(ctx context.Context, prefix string) ([]*Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, payload, processed_at FROM results
		 WHERE code LIKE ? || '%' ORDER BY code`, prefix)
	if err != nil {
		return nil, fmt.Errorf("lookup by prefix: %w", err)
	}
	defer rows.Close()

	var out []*Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) HasProcessed(ctx context.Context, code string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM results WHERE code = ?`, code).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has processed: %w", err)
	}
	return true, nil
}

func (s *SQLite) SaveResult(ctx context.Context, code string, structure *bom.Structure) error {
	payload, err := json.Marshal(structure)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO results (code, payload, processed_at) VALUES (?, ?, ?)
		 ON CONFLICT(code) DO UPDATE SET payload = excluded.payload,
		                                 processed_at = excluded.processed_at`,
		code, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (s *SQLite) SaveCheckpoint(ctx context.Context, jobID string, cp Checkpoint) error {
	cp.JobID = jobID
	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (job_id, payload, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(job_id) DO UPDATE SET payload = excluded.payload,
		                                   saved_at = excluded.saved_at`,
		jobID, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

func (s *SQLite) LoadCheckpoint(ctx context.Context, jobID string) (Checkpoint, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM checkpoints WHERE job_id = ?`, jobID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Checkpoint{}, ErrNotFound
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("load checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(payload, &cp); err != nil {
		return Checkpoint{}, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return cp, nil
}

func (s *SQLite) SaveJob(ctx context.Context, job JobRecord) error {
	var finished any
	if !job.FinishedAt.IsZero() {
		finished = job.FinishedAt
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, status, total_items, started_at, updated_at, finished_at, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status = excluded.status,
		                               total_items = excluded.total_items,
		                               updated_at = excluded.updated_at,
		                               finished_at = excluded.finished_at,
		                               detail = excluded.detail`,
		job.ID, job.Status, job.TotalItems, job.StartedAt, job.UpdatedAt, finished, job.Detail)
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

func (s *SQLite) LoadJob(ctx context.Context, jobID string) (JobRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, total_items, started_at, updated_at, finished_at, detail
		 FROM jobs WHERE id = ?`, jobID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return JobRecord{}, ErrNotFound
	}
	return job, err
}

func (s *SQLite) ListJobs(ctx context.Context) ([]JobRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, total_items, started_at, updated_at, finished_at, detail
		 FROM jobs ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []JobRecord
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(sc scanner) (*Result, error) {
	var (
		r       Result
		payload []byte
	)
	err := sc.Scan(&r.Code, &payload, &r.ProcessedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan result: %w", err)
	}
	if err := json.Unmarshal(payload, &r.Structure); err != nil {
		return nil, fmt.Errorf("unmarshal result %s: %w", r.Code, err)
	}
	return &r, nil
}

func scanJob(sc scanner) (JobRecord, error) {
	var (
		job      JobRecord
		finished sql.NullTime
	)
	err := sc.Scan(&job.ID, &job.Status, &job.TotalItems,
		&job.StartedAt, &job.UpdatedAt, &finished, &job.Detail)
	if err != nil {
		return JobRecord{}, err
	}
	if finished.Valid {
		job.FinishedAt = finished.Time
	}
	return job, nil
}
