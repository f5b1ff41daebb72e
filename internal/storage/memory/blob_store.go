// Package memory stores artifacts in-memory for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/JakeFAU/novel-crawler/internal/storage"
)

// BlobStore stores artifacts in-memory and returns pseudo URIs.
type BlobStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	writes int
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{
		data: make(map[string][]byte),
	}
}

// Persist stores a copy of data and returns a memory:// URI.
func (s *BlobStore) Persist(_ context.Context, novelID, name string, data []byte) (string, error) {
	key, err := storage.Key(novelID, name)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)
	s.writes++
	return fmt.Sprintf("memory://%s", key), nil
}

// Get returns the artifact stored under (novelID, name).
func (s *BlobStore) Get(novelID, name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[novelID+"/"+name]
	return data, ok
}

// Names lists the logical names stored for a novel, sorted.
func (s *BlobStore) Names(novelID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix := novelID + "/"
	var names []string
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			names = append(names, strings.TrimPrefix(key, prefix))
		}
	}
	sort.Strings(names)
	return names
}

// Writes reports how many Persist calls succeeded.
func (s *BlobStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
