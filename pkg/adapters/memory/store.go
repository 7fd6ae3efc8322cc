package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/ttystep/pkg/domain"
)

// Store implements ports.SessionStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.SessionInfo
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.SessionInfo),
	}
}

// Save keeps a copy of info.
func (s *Store) Save(ctx context.Context, info *domain.SessionInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[info.ID] = *info
	return nil
}

// Load returns a copy so callers cannot mutate the stored value.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &info, nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns the stored session IDs in order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)
	return sessions, nil
}
