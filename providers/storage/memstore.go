package storage

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory BlobStore, primarily for tests and ephemeral
// sessions. A positive quota caps the accepted payload size so degradation
// paths can be exercised without a real backend.
type MemoryStore struct {
	mu    sync.RWMutex
	data  []byte
	quota int
}

// NewMemoryStore creates an empty MemoryStore. quota <= 0 means unlimited.
func NewMemoryStore(quota int) *MemoryStore {
	return &MemoryStore{quota: quota}
}

// Save stores the payload, replacing any previous one.
func (store *MemoryStore) Save(_ context.Context, data []byte) error {
	if store.quota > 0 && len(data) > store.quota {
		return ErrQuotaExceeded
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	store.data = make([]byte, len(data))
	copy(store.data, data)
	return nil
}

// Load returns the last saved payload, or ErrNotFound if nothing was saved.
func (store *MemoryStore) Load(_ context.Context) ([]byte, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	if store.data == nil {
		return nil, ErrNotFound
	}
	data := make([]byte, len(store.data))
	copy(data, store.data)
	return data, nil
}
