package memory

import (
	"context"
	"sync"

	"github.com/unthinkable/alina-support/internal/domain"
)

// HistoryStore is an in-memory domain.HistoryStore.
// It is NOT persistent and is only suitable for development / local mode.
type HistoryStore struct {
	mu       sync.RWMutex
	max      int
	sessions map[domain.SessionID][]domain.Message // newest first
}

func NewHistoryStore(maxMessages int) *HistoryStore {
	if maxMessages <= 0 {
		maxMessages = domain.DefaultMaxMessages
	}
	return &HistoryStore{
		max:      maxMessages,
		sessions: make(map[domain.SessionID][]domain.Message),
	}
}

func (s *HistoryStore) Append(_ context.Context, id domain.SessionID, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.sessions[id]
	next := make([]domain.Message, 0, min(len(log)+1, s.max))
	next = append(next, msg)
	for _, m := range log {
		if len(next) == s.max {
			break
		}
		next = append(next, m)
	}
	s.sessions[id] = next
	return nil
}

func (s *HistoryStore) Read(_ context.Context, id domain.SessionID) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.Chronological(s.sessions[id]), nil
}

func (s *HistoryStore) Clear(_ context.Context, id domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}
