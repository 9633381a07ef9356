// Package storage persists whole-workflow snapshots as a single serialized
// blob, with a three-tier degradation strategy under storage-quota pressure
// and a debounced autosaver that coalesces rapid successive changes.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrQuotaExceeded is returned by a BlobStore when a write does not fit
	// the backend's capacity. The saver reacts by degrading to the next tier.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")

	// ErrNotFound is returned by Load when no snapshot has ever been saved.
	ErrNotFound = errors.New("storage: snapshot not found")
)

// BlobStore is a single-slot blob backend. Save overwrites the previous blob
// wholesale; Load returns the most recently saved blob.
type BlobStore interface {
	Save(ctx context.Context, data []byte) error
	Load(ctx context.Context) ([]byte, error)
}
