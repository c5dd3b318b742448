package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"partsync/internal/config"
	"partsync/internal/db"
)

// Open builds the store selected by cfg.Backend and prepares its schema.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return NewMemoryStore(), nil

	case config.BackendSQLite:
		conn, err := db.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return prepareSQL(ctx, NewSQLStore(conn, cfg.Table, sq.Question))

	case config.BackendPostgres:
		conn, err := db.New(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := conn.PingContext(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		return prepareSQL(ctx, NewSQLStore(conn, cfg.Table, sq.Dollar))

	case config.BackendPgx:
		pool, err := db.NewPgx(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s := &PgxStore{DB: pool, Table: cfg.Table}
		if err := s.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil

	case config.BackendRedis:
		client, err := db.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return &RedisStore{Client: client}, nil
	}

	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

func prepareSQL(ctx context.Context, s *SQLStore) (Store, error) {
	if err := s.EnsureSchema(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
