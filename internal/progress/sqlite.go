package progress

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"clipforge/internal/config"
)

// SQLiteStore persists progress records in a SQLite database so status
// survives restarts and is readable from other processes.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS task_progress (
    task_id          TEXT PRIMARY KEY,
    status           TEXT NOT NULL,
    percent          INTEGER NOT NULL DEFAULT 0,
    message          TEXT NOT NULL DEFAULT '',
    output_path      TEXT NOT NULL DEFAULT '',
    transcript_files TEXT NOT NULL DEFAULT '',
    degraded         INTEGER NOT NULL DEFAULT 0,
    created_at       TEXT NOT NULL,
    updated_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_task_progress_updated ON task_progress(updated_at DESC);
`

// OpenSQLite initializes or connects to the progress database.
func OpenSQLite(cfg *config.Config) (*SQLiteStore, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenSQLiteAt(filepath.Join(cfg.LogDir, "progress.db"))
}

// timeLayout is RFC 3339 with a fixed-width fraction so the stored strings
// sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// OpenSQLiteAt opens the database at an explicit path.
func OpenSQLiteAt(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
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
	return &SQLiteStore{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put replaces the record for its task ID.
func (s *SQLiteStore) Put(ctx context.Context, record *Record) error {
	if record == nil || record.TaskID == "" {
		return fmt.Errorf("progress: record with task ID required")
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	files, err := encodeFiles(record.TranscriptFiles)
	if err != nil {
		return fmt.Errorf("store progress: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO task_progress (
            task_id, status, percent, message, output_path, transcript_files, degraded, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(task_id) DO UPDATE SET
            status = excluded.status,
            percent = excluded.percent,
            message = excluded.message,
            output_path = excluded.output_path,
            transcript_files = excluded.transcript_files,
            degraded = excluded.degraded,
            updated_at = excluded.updated_at`,
		record.TaskID,
		string(record.Status),
		record.Percent,
		record.Message,
		record.OutputPath,
		files,
		boolToInt(record.Degraded),
		record.CreatedAt.Format(timeLayout),
		record.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("store progress: %w", err)
	}
	return nil
}

// Get returns the record for a task, or nil when unknown.
func (s *SQLiteStore) Get(ctx context.Context, taskID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT task_id, status, percent, message, output_path, transcript_files, degraded, created_at, updated_at
         FROM task_progress WHERE task_id = ?`, taskID)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	return record, nil
}

// List returns all records, most recently updated first.
func (s *SQLiteStore) List(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, status, percent, message, output_path, transcript_files, degraded, created_at, updated_at
         FROM task_progress ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list progress: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var record Record
	var status string
	var degraded int
	var files string
	var createdAt, updatedAt string
	if err := row.Scan(&record.TaskID, &status, &record.Percent, &record.Message,
		&record.OutputPath, &files, &degraded, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	record.Status = Status(status)
	record.Degraded = degraded != 0
	decoded, err := decodeFiles(files)
	if err != nil {
		return nil, err
	}
	record.TranscriptFiles = decoded
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		record.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		record.UpdatedAt = t
	}
	return &record, nil
}

func encodeFiles(files []string) (string, error) {
	if len(files) == 0 {
		return "", nil
	}
	data, err := json.Marshal(files)
	if err != nil {
		return "", fmt.Errorf("encode transcript files: %w", err)
	}
	return string(data), nil
}

func decodeFiles(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var files []string
	if err := json.Unmarshal([]byte(raw), &files); err != nil {
		return nil, fmt.Errorf("decode transcript files: %w", err)
	}
	return files, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
