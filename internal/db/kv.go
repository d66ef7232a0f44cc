package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/binder/internal/errors"
)

// KV is a string-keyed value store backed by the kv table.
// Values are opaque strings; callers own serialization.
type KV struct {
	db *sql.DB
}

// NewKV wraps an initialized database.
func NewKV(db *sql.DB) *KV {
	return &KV{db: db}
}

// GetValue returns the value stored under key.
// found is false when the key has never been set.
func (kv *KV) GetValue(ctx context.Context, key string) (value string, found bool, err error) {
	row := kv.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key)
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, errors.NewInternal(err)
	}
	return value, true, nil
}

// SetValue overwrites the value stored under key in a single statement.
func (kv *KV) SetValue(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`
	if _, err := kv.db.ExecContext(ctx, query, key, value, time.Now().Unix()); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
