package download

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// BlobScheme prefixes URLs minted by a BlobStore.
const BlobScheme = "blob:meetrec/"

type blob struct {
	data        []byte
	contentType string
}

// BlobStore is an in-memory registry of object URLs, shared by the recorder
// (which creates them) and the downloader (which resolves them).
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string]blob
}

// NewBlobStore returns an empty registry.
func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string]blob)}
}

// CreateURL registers data and returns its URL.
func (s *BlobStore) CreateURL(data []byte, contentType string) string {
	url := BlobScheme + uuid.NewString()
	s.mu.Lock()
	s.blobs[url] = blob{data: data, contentType: contentType}
	s.mu.Unlock()
	return url
}

// Resolve returns the data behind url.
func (s *BlobStore) Resolve(url string) ([]byte, bool) {
	if !strings.HasPrefix(url, BlobScheme) {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[url]
	return b.data, ok
}

// RevokeURL forgets url. Revoking an unknown URL is a no-op.
func (s *BlobStore) RevokeURL(url string) {
	s.mu.Lock()
	delete(s.blobs, url)
	s.mu.Unlock()
}

// Len reports the number of live URLs.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
