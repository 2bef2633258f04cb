package implementation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sam-chat-be/internal/repository/contract"
)

type KeyValueRepositorySqliteImpl struct {
	db *sql.DB
}

const kvSchema = `CREATE TABLE IF NOT EXISTS kv_entries (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// NewKeyValueRepositorySqlite creates the kv_entries table on db if needed.
func NewKeyValueRepositorySqlite(db *sql.DB) (contract.KeyValueRepository, error) {
	if _, err := db.Exec(kvSchema); err != nil {
		return nil, fmt.Errorf("failed to create kv_entries: %w", err)
	}
	return &KeyValueRepositorySqliteImpl{db: db}, nil
}

func (r *KeyValueRepositorySqliteImpl) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *KeyValueRepositorySqliteImpl) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	return err
}

func (r *KeyValueRepositorySqliteImpl) Remove(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key)
	return err
}
