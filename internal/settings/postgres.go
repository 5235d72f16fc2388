package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable holds CMS settings as key/value text pairs.
const DefaultTable = "cms_settings"

// PostgresStore reads settings from a key/value table.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresStore constructs a PostgresStore over table. An empty table name uses DefaultTable.
func NewPostgresStore(pool *pgxpool.Pool, table string) *PostgresStore {
	if table == "" {
		table = DefaultTable
	}
	return &PostgresStore{pool: pool, table: pgx.Identifier{table}.Sanitize()}
}

// Lookup implements Store.
func (s *PostgresStore) Lookup(ctx context.Context, key string) (string, bool, error) {
	var value *string
	if err := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT value FROM %s WHERE key = $1", s.table), key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}

// Set upserts a setting value.
func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		s.table), key, value)
	return err
}
