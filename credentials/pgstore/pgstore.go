package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/academy-portal/credentials"
)

var _ credentials.Backend = (*PgStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS credential (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// PgStore persists credentials in Postgres so several portal instances can share sessions.
type PgStore struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for databaseURL and ensures the schema exists.
func Connect(ctx context.Context, databaseURL string) (*PgStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("[pgstore Connect] create pool: %w", err)
	}
	s, err := New(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing pool and ensures the schema exists.
func New(ctx context.Context, pool *pgxpool.Pool) (*PgStore, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("[pgstore New] database unreachable: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("[pgstore New] create schema: %w", err)
	}
	return &PgStore{pool: pool}, nil
}

func (s *PgStore) Close() {
	s.pool.Close()
}

func (s *PgStore) Load(ctx context.Context, keys []string) (map[string]string, error) {
	found := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return found, nil
	}

	rows, err := s.pool.Query(ctx, `SELECT key, value FROM credential WHERE key = ANY($1)`, keys)
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

func (s *PgStore) Replace(ctx context.Context, keys []string, values map[string]string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if len(keys) > 0 {
			if _, err := tx.Exec(ctx, `DELETE FROM credential WHERE key = ANY($1)`, keys); err != nil {
				return fmt.Errorf("delete credentials: %w", err)
			}
		}

		batch := &pgx.Batch{}
		for key, value := range values {
			batch.Queue(`INSERT INTO credential (key, value) VALUES ($1, $2)
				ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("write credentials: %w", err)
		}
		return nil
	})
}
