// ABOUTME: Key/value access over the kv table
// ABOUTME: Get reports ErrNoValue for a missing key, Set upserts
package db

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrNoValue is returned by GetValue when the key has no row.
var ErrNoValue = errors.New("no value for key")

// GetValue reads the value stored under key.
func GetValue(ctx context.Context, db *sql.DB, key string) ([]byte, error) {
	var value []byte
	err := db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoValue
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// SetValue inserts or replaces the value under key.
func SetValue(ctx context.Context, db *sql.DB, key string, value []byte) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	return err
}

// DeleteValue removes key. Missing keys are not an error.
func DeleteValue(ctx context.Context, db *sql.DB, key string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

// Keys lists stored keys in order.
func Keys(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
