package session

import (
	"context"
	"database/sql"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// SQLiteStore keeps the identifier as a single row of a key/value table.
type SQLiteStore struct {
	db  *sql.DB
	key string
}

var _ Store = &SQLiteStore{}

// SQLiteDSNForFile builds a DSN with WAL journaling and a busy timeout.
func SQLiteDSNForFile(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("sqlite store: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrap(err, "sqlite store: resolve path")
	}
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", "5000")
	return "file:" + abs + "?" + q.Encode(), nil
}

func NewSQLiteStore(dsn string, key string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, errors.New("sqlite store: empty dsn")
	}
	if strings.TrimSpace(key) == "" {
		key = DefaultKey
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite store: open")
	}
	s := &SQLiteStore{db: db, key: key}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS client_kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return errors.Wrap(err, "sqlite store: migrate")
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context) (string, error) {
	if s == nil || s.db == nil {
		return "", errors.New("sqlite store: db is nil")
	}
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM client_kv WHERE key = ?`, s.key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", errors.Wrap(err, "sqlite store: get")
	}
	return normalizeID(v)
}

func (s *SQLiteStore) Set(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite store: db is nil")
	}
	if strings.TrimSpace(id) == "" {
		return errors.New("sqlite store: empty session id")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO client_kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, s.key, id, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return errors.Wrap(err, "sqlite store: set")
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite store: db is nil")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM client_kv WHERE key = ?`, s.key); err != nil {
		return errors.Wrap(err, "sqlite store: clear")
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
