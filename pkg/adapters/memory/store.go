package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/testctx/pkg/domain"
)

// Store implements ports.SnapshotStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.Snapshot
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.Snapshot),
	}
}

// Save persists the snapshot in memory.
func (s *Store) Save(ctx context.Context, snapshot domain.Snapshot) error {
	snapshot.Waiting = slices.Clone(snapshot.Waiting)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[snapshot.Group] = snapshot
	return nil
}

// Load retrieves the snapshot from memory.
func (s *Store) Load(ctx context.Context, group string) (domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.data[group]
	if !ok {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	snap.Waiting = slices.Clone(snap.Waiting)
	return snap, nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, group)
	return nil
}

// List returns the stored groups.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]string, 0, len(s.data))
	for g := range s.data {
		groups = append(groups, g)
	}
	slices.Sort(groups)
	return groups, nil
}
