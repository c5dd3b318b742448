package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// DefaultTable is the table SQL-backed stores keep their rows in.
const DefaultTable = "partsync_kv"

// SQLStore keeps values in a two-column table through database/sql.
// It works with both the Postgres (lib/pq) and SQLite drivers; only the placeholder format differs.
type SQLStore struct {
	db      *sql.DB
	table   string
	builder sq.StatementBuilderType
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps db. Use sq.Dollar for Postgres and sq.Question for SQLite.
func NewSQLStore(db *sql.DB, table string, placeholder sq.PlaceholderFormat) *SQLStore {
	if table == "" {
		table = DefaultTable
	}
	return &SQLStore{
		db:      db,
		table:   table,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
	}
}

// EnsureSchema creates the backing table when missing.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		store_key TEXT PRIMARY KEY,
		store_value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`, s.table)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	query, args, err := s.builder.
		Select("store_value").
		From(s.table).
		Where(sq.Eq{"store_key": key}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build select: %w", err)
	}

	var value string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	query, args, err := s.builder.
		Insert(s.table).
		Columns("store_key", "store_value", "updated_at").
		Values(key, value, sq.Expr("CURRENT_TIMESTAMP")).
		Suffix("ON CONFLICT (store_key) DO UPDATE SET store_value = excluded.store_value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Remove(ctx context.Context, key string) error {
	query, args, err := s.builder.
		Delete(s.table).
		Where(sq.Eq{"store_key": key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
