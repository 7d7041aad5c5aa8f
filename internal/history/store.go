package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"transcoder/internal/notifications"
	"transcoder/internal/queue"
)

// Store manages the status audit log backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Entry is one recorded status transition.
type Entry struct {
	ID            int64
	JobID         string
	Status        queue.Status
	QueuePosition *int
	ManifestKey   *string
	RecordedAt    time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	defaultRecentLimit      = 50
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
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

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends one status transition.
func (s *Store) Record(ctx context.Context, update notifications.Update) error {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(update.JobID) == "" {
		return errors.New("record history: job id is required")
	}
	var position sql.NullInt64
	if update.QueuePosition != nil {
		position = sql.NullInt64{Int64: int64(*update.QueuePosition), Valid: true}
	}
	var manifestKey sql.NullString
	if update.ManifestKey != nil {
		manifestKey = sql.NullString{String: *update.ManifestKey, Valid: true}
	}
	recordedAt := s.now().UTC().Format(time.RFC3339Nano)

	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO status_events (job_id, status, queue_position, manifest_key, recorded_at)
			 VALUES (?, ?, ?, ?, ?)`,
			update.JobID, string(update.Status), position, manifestKey, recordedAt,
		)
		if err != nil {
			return fmt.Errorf("insert status event: %w", err)
		}
		return nil
	})
}

// Recent returns the newest entries first. A non-positive limit uses a default.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return s.query(ctx,
		`SELECT id, job_id, status, queue_position, manifest_key, recorded_at
		 FROM status_events ORDER BY id DESC LIMIT ?`, limit)
}

// ForJob returns every entry for jobID in the order it was recorded.
func (s *Store) ForJob(ctx context.Context, jobID string) ([]Entry, error) {
	return s.query(ctx,
		`SELECT id, job_id, status, queue_position, manifest_key, recorded_at
		 FROM status_events WHERE job_id = ? ORDER BY id ASC`, strings.TrimSpace(jobID))
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	ctx = ensureContext(ctx)
	var entries []Entry
	err := retryOnBusy(ctx, func() error {
		entries = entries[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			entry, err := scanEntry(rows)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		entry       Entry
		status      string
		position    sql.NullInt64
		manifestKey sql.NullString
		recordedAt  string
	)
	if err := rows.Scan(&entry.ID, &entry.JobID, &status, &position, &manifestKey, &recordedAt); err != nil {
		return Entry{}, fmt.Errorf("scan status event: %w", err)
	}
	entry.Status = queue.Status(status)
	if position.Valid {
		p := int(position.Int64)
		entry.QueuePosition = &p
	}
	if manifestKey.Valid {
		key := manifestKey.String
		entry.ManifestKey = &key
	}
	if ts, err := time.Parse(time.RFC3339Nano, recordedAt); err == nil {
		entry.RecordedAt = ts
	}
	return entry, nil
}
