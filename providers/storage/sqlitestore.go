package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
    id         INTEGER PRIMARY KEY CHECK (id = 1),
    data       BLOB NOT NULL,
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);`

// SQLiteStore persists the snapshot as a single-row blob in a SQLite
// database. The pure-Go driver keeps the module cgo-free.
type SQLiteStore struct {
	db    *sql.DB
	quota int
}

// NewSQLiteStore opens (or creates) a SQLite database at path and ensures
// the snapshot table exists. quota <= 0 means unlimited.
func NewSQLiteStore(path string, quota int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot database: %w", err)
	}
	// Single writer; more connections just contend on the file lock.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(snapshotSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing snapshot schema: %w", err)
	}
	return &SQLiteStore{db: db, quota: quota}, nil
}

// Save upserts the payload into the single snapshot row.
func (store *SQLiteStore) Save(ctx context.Context, data []byte) error {
	if store.quota > 0 && len(data) > store.quota {
		return ErrQuotaExceeded
	}

	_, err := store.db.ExecContext(ctx, `
        INSERT INTO snapshots (id, data, updated_at)
        VALUES (1, ?, datetime('now'))
        ON CONFLICT (id) DO UPDATE SET
            data = excluded.data,
            updated_at = excluded.updated_at`, data)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot row, or returns ErrNotFound if none was saved.
func (store *SQLiteStore) Load(ctx context.Context) ([]byte, error) {
	var data []byte
	err := store.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	return data, nil
}

// Close releases the underlying database handle.
func (store *SQLiteStore) Close() error {
	return store.db.Close()
}
