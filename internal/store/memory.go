package store

import (
	"context"
	"sort"
	"sync"

	"github.com/avatarlabs/chatbot-backend/internal/model/chat"
)

// MemoryStore keeps the turn log in process memory. It backs tests and
// local development where a database file is unwanted.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	turns    map[string][]chat.Turn
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]chat.Session),
		turns:    make(map[string][]chat.Turn),
	}
}

// AppendTurn appends in arrival order; slice position is the assigned
// sequence.
func (s *MemoryStore) AppendTurn(_ context.Context, turn chat.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns[turn.SessionID] = append(s.turns[turn.SessionID], turn)

	session, ok := s.sessions[turn.SessionID]
	if !ok {
		session = chat.Session{ID: turn.SessionID, CreatedAt: turn.CreatedAt.UTC()}
	}
	session.LastActiveAt = turn.CreatedAt.UTC()
	session.TurnCount++
	s.sessions[turn.SessionID] = session
	return nil
}

// RecentTurns returns the newest limit turns, newest-last.
func (s *MemoryStore) RecentTurns(_ context.Context, sessionID string, limit int) ([]chat.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.turns[sessionID]
	if limit < 1 || len(turns) == 0 {
		return nil, nil
	}

	start := 0
	if len(turns) > limit {
		start = len(turns) - limit
	}

	copied := make([]chat.Turn, len(turns)-start)
	copy(copied, turns[start:])
	return copied, nil
}

// SessionTurns pages the log oldest-first.
func (s *MemoryStore) SessionTurns(_ context.Context, sessionID string, limit, offset int) ([]chat.Turn, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.turns[sessionID]
	total := len(turns)
	if offset >= total || limit < 1 {
		return nil, total, nil
	}

	end := offset + limit
	if end > total {
		end = total
	}

	copied := make([]chat.Turn, end-offset)
	copy(copied, turns[offset:end])
	return copied, total, nil
}

// CreateSession registers metadata unless the session already exists.
func (s *MemoryStore) CreateSession(_ context.Context, session chat.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; !ok {
		s.sessions[session.ID] = session
	}
	return nil
}

// GetSession fetches session metadata.
func (s *MemoryStore) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// ListSessions pages sessions most recently active first.
func (s *MemoryStore) ListSessions(_ context.Context, limit, offset int) ([]chat.Session, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]chat.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		all = append(all, session)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].LastActiveAt.Equal(all[j].LastActiveAt) {
			return all[i].LastActiveAt.After(all[j].LastActiveAt)
		}
		return all[i].ID < all[j].ID
	})

	total := len(all)
	if offset >= total || limit < 1 {
		return nil, total, nil
	}

	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
