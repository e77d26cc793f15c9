// Package storage is the persistent key-value store the recorder mirrors its
// in-progress transcript into. Values are stored as JSON.
package storage

import (
	"context"

	"github.com/pkg/errors"
)

// TranscriptKey holds the in-progress transcript.
const TranscriptKey = "currentTranscript"

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage: store is closed")

// Store is a small persistent key-value store. Implementations must be safe
// for concurrent use.
type Store interface {
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value any) error
	// Get decodes the value stored under key into dst. It reports false when
	// the key is absent.
	Get(ctx context.Context, key string, dst any) (bool, error)
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	Close() error
}

// Open returns the store for driver ("sqlite" or "file") rooted at path.
func Open(driver, path string) (Store, error) {
	switch driver {
	case "sqlite":
		return NewSQLiteStore(path)
	case "file":
		return NewFileStore(path)
	default:
		return nil, errors.Errorf("storage: unknown driver %q", driver)
	}
}
