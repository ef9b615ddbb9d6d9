package db

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Record keys used by the application
const (
	KeyTasks    = "tasks"
	KeySettings = "settings"
)

// Get returns the stored value for key. found is false when no record exists.
func (db *DB) Get(ctx context.Context, key string) (value string, found bool, err error) {
	err = db.QueryRowContext(ctx, `SELECT value FROM records WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set overwrites the record stored under key
func (db *DB) Set(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO records (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	return err
}

// Delete removes the record stored under key. Missing keys are not an error.
func (db *DB) Delete(ctx context.Context, key string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM records WHERE key = ?`, key)
	return err
}

// DeleteKeys removes several records atomically
func (db *DB) DeleteKeys(keys ...string) error {
	return db.Transaction(func(tx *sql.Tx) error {
		for _, key := range keys {
			if _, err := tx.Exec(`DELETE FROM records WHERE key = ?`, key); err != nil {
				return err
			}
		}
		return nil
	})
}

// Keys returns every stored key in alphabetical order
func (db *DB) Keys(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT key FROM records ORDER BY key`)
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
