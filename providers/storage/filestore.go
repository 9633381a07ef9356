package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore persists the snapshot as a single file on disk. Writes go through
// a temp file in the same directory followed by a rename, so a crash mid-write
// never leaves a corrupt snapshot behind.
type FileStore struct {
	path  string
	quota int
}

// NewFileStore creates a FileStore writing to path. quota <= 0 means
// unlimited.
func NewFileStore(path string, quota int) *FileStore {
	return &FileStore{path: path, quota: quota}
}

// Save atomically replaces the snapshot file with the payload.
func (store *FileStore) Save(_ context.Context, data []byte) error {
	if store.quota > 0 && len(data) > store.quota {
		return ErrQuotaExceeded
	}

	dir := filepath.Dir(store.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(store.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp snapshot file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp snapshot file: %w", err)
	}
	if err := os.Rename(tmpName, store.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing snapshot file: %w", err)
	}
	return nil
}

// Load reads the snapshot file, or returns ErrNotFound if it does not exist.
func (store *FileStore) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(store.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading snapshot file: %w", err)
	}
	return data, nil
}
