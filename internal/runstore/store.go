package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Status tracks a run through the pipeline.
type Status string

const (
	StatusPending      Status = "pending"
	StatusExtracting   Status = "extracting"
	StatusDownloading  Status = "downloading"
	StatusUploading    Status = "uploading"
	StatusTranscribing Status = "transcribing"
	StatusSummarizing  Status = "summarizing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// Run is one pipeline execution.
type Run struct {
	ID           int64
	URL          string
	VideoID      string
	Status       Status
	Provenance   string
	Language     string
	ArtifactPath string
	Summarized   bool
	ErrorKind    string
	ErrorDetail  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ErrNotFound is returned when a run ID does not exist.
var ErrNotFound = errors.New("run not found")

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT NOT NULL,
    video_id TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    provenance TEXT NOT NULL DEFAULT '',
    language TEXT NOT NULL DEFAULT '',
    artifact_path TEXT NOT NULL DEFAULT '',
    summarized INTEGER NOT NULL DEFAULT 0,
    error_kind TEXT NOT NULL DEFAULT '',
    error_detail TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

// Open initializes or connects to the run database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure db directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// NewRun inserts a pending run and returns it.
func (s *Store) NewRun(ctx context.Context, url, videoID string) (*Run, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (url, video_id, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)`,
		url, videoID, StatusPending, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// SetStatus records a stage transition.
func (s *Store) SetStatus(ctx context.Context, id int64, status Status) error {
	return s.update(ctx, id, `UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		status, nowStamp(), id)
}

// Complete marks the run finished and records its outputs.
func (s *Store) Complete(ctx context.Context, id int64, provenance, language, artifactPath string, summarized bool) error {
	return s.update(ctx, id,
		`UPDATE runs SET status = ?, provenance = ?, language = ?, artifact_path = ?, summarized = ?, updated_at = ?
         WHERE id = ?`,
		StatusCompleted, provenance, language, artifactPath, boolInt(summarized), nowStamp(), id)
}

// Fail marks the run failed with a classification and detail.
func (s *Store) Fail(ctx context.Context, id int64, kind, detail string) error {
	return s.update(ctx, id,
		`UPDATE runs SET status = ?, error_kind = ?, error_detail = ?, updated_at = ? WHERE id = ?`,
		StatusFailed, kind, detail, nowStamp(), id)
}

// GetByID fetches a single run.
func (s *Store) GetByID(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

const selectColumns = `SELECT id, url, video_id, status, provenance, language,
    artifact_path, summarized, error_kind, error_detail, created_at, updated_at
    FROM runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var status string
	var summarized int
	var createdAt, updatedAt string
	err := row.Scan(&run.ID, &run.URL, &run.VideoID, &status, &run.Provenance,
		&run.Language, &run.ArtifactPath, &summarized, &run.ErrorKind,
		&run.ErrorDetail, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	run.Status = Status(status)
	run.Summarized = summarized != 0
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	run.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &run, nil
}

func (s *Store) update(ctx context.Context, id int64, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update run %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run %d: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
