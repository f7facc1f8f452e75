package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"time"

	ierr "github.com/facto/facto/internal/errors"
	"github.com/facto/facto/internal/storage"
	_ "modernc.org/sqlite"
)

var _ storage.Backend = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS kv_entries (
    entry_key  TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    expires_at INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_kv_entries_expires_at ON kv_entries (expires_at);
`

// Store provides SQLite-backed persistence for tab and local storage.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens and migrates a key/value SQLite store.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ierr.NewError("storage path is required").
			WithHint("Set storage.sqlite_path").
			Mark(ierr.ErrConfiguration)
	}

	cleanPath := filepath.Clean(path)
	dsn := "file:" + cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, ierr.WithError(err).WithMessage("open sqlite db").Mark(ierr.ErrSystem)
	}
	// single writer keeps every statement indivisible
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, ierr.WithError(err).WithMessage("ping sqlite db").Mark(ierr.ErrSystem)
	}

	store := &Store{sqlDB: sqlDB, now: time.Now}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, ierr.WithError(err).WithMessage("run migrations").Mark(ierr.ErrSystem)
	}
	return store, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get loads a value by key, treating expired rows as absent.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.sqlDB == nil {
		return "", false, errNotConfigured()
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT value, expires_at FROM kv_entries WHERE entry_key = ?`,
		key,
	)

	var value string
	var expiresAt int64
	if err := row.Scan(&value, &expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, ierr.WithError(err).WithMessage("get kv entry").Mark(ierr.ErrSystem)
	}

	if expiresAt > 0 && s.now().UnixMilli() >= expiresAt {
		if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM kv_entries WHERE entry_key = ? AND expires_at = ?`, key, expiresAt); err != nil {
			return "", false, ierr.WithError(err).WithMessage("purge expired kv entry").Mark(ierr.ErrSystem)
		}
		return "", false, nil
	}
	return value, true, nil
}

// Set upserts a value; a ttl of zero never expires.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if s == nil || s.sqlDB == nil {
		return errNotConfigured()
	}

	now := s.now()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixMilli()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO kv_entries (entry_key, value, expires_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(entry_key) DO UPDATE SET
		    value = excluded.value,
		    expires_at = excluded.expires_at,
		    updated_at = excluded.updated_at`,
		key,
		value,
		expiresAt,
		now.UnixMilli(),
	)
	if err != nil {
		return ierr.WithError(err).WithMessage("put kv entry").Mark(ierr.ErrSystem)
	}
	return nil
}

// Delete removes a value by key; deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if s == nil || s.sqlDB == nil {
		return errNotConfigured()
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM kv_entries WHERE entry_key = ?`, key); err != nil {
		return ierr.WithError(err).WithMessage("delete kv entry").Mark(ierr.ErrSystem)
	}
	return nil
}

// PurgeExpired removes every expired row and reports how many were dropped.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	if s == nil || s.sqlDB == nil {
		return 0, errNotConfigured()
	}
	res, err := s.sqlDB.ExecContext(
		ctx,
		`DELETE FROM kv_entries WHERE expires_at > 0 AND expires_at <= ?`,
		s.now().UnixMilli(),
	)
	if err != nil {
		return 0, ierr.WithError(err).WithMessage("purge expired kv entries").Mark(ierr.ErrSystem)
	}
	return res.RowsAffected()
}

func errNotConfigured() error {
	return ierr.NewError("storage is not configured").Mark(ierr.ErrSystem)
}
