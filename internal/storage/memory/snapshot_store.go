// Package memory keeps the snapshot in memory for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/gradcafe-crawler/internal/snapshot"
	"github.com/JakeFAU/gradcafe-crawler/internal/survey"
)

// SnapshotStore holds the encoded snapshot bytes, so loads go through the same decoding
// as the durable backends.
type SnapshotStore struct {
	mu    sync.RWMutex
	data  []byte
	saves int
}

var _ snapshot.Store = (*SnapshotStore)(nil)

// NewSnapshotStore creates an empty in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Load decodes the stored snapshot, or returns an empty dataset before the first Save.
func (s *SnapshotStore) Load(_ context.Context) (survey.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot.Decode(s.data)
}

// Save replaces the stored snapshot.
func (s *SnapshotStore) Save(_ context.Context, dataset survey.Dataset) error {
	data, err := snapshot.Encode(dataset)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.saves++
	return nil
}

// Bytes returns a copy of the encoded snapshot.
func (s *SnapshotStore) Bytes() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.data...)
}

// Saves reports how many times Save succeeded.
func (s *SnapshotStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
