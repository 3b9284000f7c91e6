package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jrsteele09/academy-portal/credentials"
	_ "modernc.org/sqlite"
)

var _ credentials.Backend = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS credential (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// SQLiteStore persists credentials in a SQLite file so sessions survive restarts.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates (if needed) and opens the database file at path.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("[sqlitestore Open] create data folder: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("[sqlitestore Open] open %s: %w", path, err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(8)

	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection and ensures the schema exists.
func New(db *sql.DB) (*SQLiteStore, error) {
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("[sqlitestore New] database unreachable: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("[sqlitestore New] create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context, keys []string) (map[string]string, error) {
	found := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return found, nil
	}

	query := `SELECT key, value FROM credential WHERE key IN (` + placeholders(len(keys)) + `)`
	rows, err := s.db.QueryContext(ctx, query, toArgs(keys)...)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		found[key] = value
	}
	return found, rows.Err()
}

func (s *SQLiteStore) Replace(ctx context.Context, keys []string, values map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if len(keys) > 0 {
		query := `DELETE FROM credential WHERE key IN (` + placeholders(len(keys)) + `)`
		if _, err := tx.ExecContext(ctx, query, toArgs(keys)...); err != nil {
			return fmt.Errorf("delete credentials: %w", err)
		}
	}

	for key, value := range values {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO credential (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
		if err != nil {
			return fmt.Errorf("write credential: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(keys []string) []any {
	args := make([]any, len(keys))
	for i, key := range keys {
		args[i] = key
	}
	return args
}
