package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/yomitori/internal/models"
)

// DefaultActivityLimit applies when a filter asks for zero entries.
const DefaultActivityLimit = 50

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS activity_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		status_code INTEGER,
		ip_address TEXT,
		body TEXT,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_activity_logs_path ON activity_logs(path);

	CREATE TABLE IF NOT EXISTS extractions (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		format TEXT,
		content_hash TEXT,
		used_ocr INTEGER NOT NULL DEFAULT 0,
		ocr_pages_failed INTEGER NOT NULL DEFAULT 0,
		fields_found INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_extractions_created_at ON extractions(created_at);
	CREATE INDEX IF NOT EXISTS idx_extractions_content_hash ON extractions(content_hash);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateActivityLog inserts an activity log entry and sets its ID.
func (s *SQLiteStorage) CreateActivityLog(ctx context.Context, entry *models.ActivityLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO activity_logs (method, path, status_code, ip_address, body, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Method, entry.Path, entry.StatusCode, entry.IPAddress, entry.Body, entry.Timestamp,
	)
	if err != nil {
		return err
	}
	entry.ID, err = res.LastInsertId()
	return err
}

// ListActivityLogs returns the most recent activity log entries.
func (s *SQLiteStorage) ListActivityLogs(ctx context.Context, filter ActivityFilter) ([]*models.ActivityLog, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	query := `SELECT id, method, path, status_code, ip_address, body, timestamp FROM activity_logs`
	if filter.OnlyAPI {
		query += ` WHERE path NOT LIKE '/assets%' AND path != '/' AND path NOT LIKE '/favicon%'`
	}
	query += ` ORDER BY id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.ActivityLog
	for rows.Next() {
		var entry models.ActivityLog
		var ip, body sql.NullString
		var status sql.NullInt64
		if err := rows.Scan(&entry.ID, &entry.Method, &entry.Path, &status, &ip, &body, &entry.Timestamp); err != nil {
			return nil, err
		}
		entry.StatusCode = int(status.Int64)
		entry.IPAddress = ip.String
		entry.Body = body.String
		logs = append(logs, &entry)
	}
	return logs, rows.Err()
}

// CountActivityLogs returns the total number of activity log entries.
func (s *SQLiteStorage) CountActivityLogs(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_logs`).Scan(&count)
	return count, err
}

// CreateExtraction inserts an audit record, assigning an ID when it has none.
func (s *SQLiteStorage) CreateExtraction(ctx context.Context, rec *models.ExtractionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO extractions (id, filename, format, content_hash, used_ocr, ocr_pages_failed,
		 fields_found, status, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Filename, string(rec.Format), rec.ContentHash, rec.UsedOCR, rec.OCRPagesFailed,
		rec.FieldsFound, rec.Status, rec.Error, rec.DurationMS, rec.CreatedAt,
	)
	return err
}

const extractionColumns = `id, filename, format, content_hash, used_ocr, ocr_pages_failed,
	fields_found, status, error, duration_ms, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExtraction(row rowScanner) (*models.ExtractionRecord, error) {
	var rec models.ExtractionRecord
	var format, hash, errText sql.NullString
	if err := row.Scan(&rec.ID, &rec.Filename, &format, &hash, &rec.UsedOCR, &rec.OCRPagesFailed,
		&rec.FieldsFound, &rec.Status, &errText, &rec.DurationMS, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Format = models.Format(format.String)
	rec.ContentHash = hash.String
	rec.Error = errText.String
	return &rec, nil
}

// GetExtraction returns an audit record by ID.
func (s *SQLiteStorage) GetExtraction(ctx context.Context, id string) (*models.ExtractionRecord, error) {
	rec, err := scanExtraction(s.db.QueryRowContext(ctx,
		`SELECT `+extractionColumns+` FROM extractions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("extraction %s: %w", id, ErrNotFound)
	}
	return rec, err
}

// ListExtractions returns audit records, newest first.
func (s *SQLiteStorage) ListExtractions(ctx context.Context, offset, limit int) ([]*models.ExtractionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+extractionColumns+` FROM extractions ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*models.ExtractionRecord
	for rows.Next() {
		rec, err := scanExtraction(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// CountExtractions returns the total number of audit records.
func (s *SQLiteStorage) CountExtractions(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM extractions`).Scan(&count)
	return count, err
}

// SizeBytes returns the on-disk size of the database including its WAL files.
func (s *SQLiteStorage) SizeBytes() (int64, error) {
	return DiskUsageBytes(s.path, s.path+"-wal", s.path+"-shm")
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
