package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxStore keeps values in Postgres through a pgx connection pool.
type PgxStore struct {
	DB    *pgxpool.Pool
	Table string
}

var _ Store = (*PgxStore)(nil)

func (s *PgxStore) table() string {
	if s.Table == "" {
		return DefaultTable
	}
	return s.Table
}

// EnsureSchema creates the backing table when missing.
func (s *PgxStore) EnsureSchema(ctx context.Context) error {
	_, err := s.DB.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			store_key TEXT PRIMARY KEY,
			store_value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, s.table()))
	if err != nil {
		return fmt.Errorf("create table %s: %w", s.table(), err)
	}
	return nil
}

func (s *PgxStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.DB.QueryRow(ctx,
		fmt.Sprintf(`SELECT store_value FROM %s WHERE store_key = $1`, s.table()),
		key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select %s: %w", key, err)
	}
	return value, nil
}

func (s *PgxStore) Set(ctx context.Context, key, value string) error {
	_, err := s.DB.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (store_key, store_value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (store_key) DO UPDATE
		SET store_value = EXCLUDED.store_value,
		    updated_at = NOW()`, s.table()),
		key, value)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (s *PgxStore) Remove(ctx context.Context, key string) error {
	_, err := s.DB.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE store_key = $1`, s.table()), key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *PgxStore) Close() error {
	s.DB.Close()
	return nil
}
