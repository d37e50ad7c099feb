package configstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/trusted-server/ts-edge/internal/tserr"
)

// PGStore is a Postgres-backed Store for self-hosted deployments that don't
// run on a managed edge platform's native key-value store. Grounded on
// leanlp-BTC-coinjoin's internal/db/postgres.go connection-pool pattern.
type PGStore struct {
	pool  *pgxpool.Pool
	table string
}

// ConnectPG opens a pooled connection and pings it. table holds (key,
// value) rows; it is created by InitSchema, not by Connect.
func ConnectPG(ctx context.Context, connStr, table string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, tserr.StoreWrap(err, "connect to postgres config store")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, tserr.StoreWrap(err, "ping postgres config store")
	}
	if table == "" {
		table = "ts_edge_config"
	}
	return &PGStore{pool: pool, table: table}, nil
}

func (s *PGStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema creates the backing table if it doesn't already exist.
func (s *PGStore) InitSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`, s.table)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return tserr.StoreWrap(err, "init config store schema")
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	query := fmt.Sprintf("SELECT value FROM %s WHERE key = $1", s.table)
	err := s.pool.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", ErrNotFound
		}
		return "", tserr.StoreWrap(err, "get %s", key)
	}
	return value, nil
}

func (s *PGStore) Put(ctx context.Context, key, value string) error {
	query := fmt.Sprintf(`INSERT INTO %s (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, s.table)
	if _, err := s.pool.Exec(ctx, query, key, value); err != nil {
		return tserr.StoreWrap(err, "put %s", key)
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE key = $1", s.table)
	if _, err := s.pool.Exec(ctx, query, key); err != nil {
		return tserr.StoreWrap(err, "delete %s", key)
	}
	return nil
}
