package chat

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avatarlabs/chatbot-backend/internal/model/chat"
)

// CreateSession provisions a session id and records its metadata.
// The metadata write is best-effort: a fresh id is still usable even
// if the store is down, because appends upsert the session row later.
func (s *Service) CreateSession(ctx context.Context, metadata map[string]any) (chat.Session, error) {
	now := time.Now().UTC()
	session := chat.Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		LastActiveAt: now,
		Metadata:     metadata,
	}

	if err := s.store.CreateSession(ctx, session); err != nil {
		log.Printf("[chat] session metadata write failed session=%s err=%v", session.ID, err)
	}
	return session, nil
}

// ListSessions pages known sessions for the session picker.
func (s *Service) ListSessions(ctx context.Context, limit, offset int) (chat.SessionPage, error) {
	sessions, total, err := s.store.ListSessions(ctx, limit, offset)
	if err != nil {
		return chat.SessionPage{}, err
	}
	if sessions == nil {
		sessions = []chat.Session{}
	}

	return chat.SessionPage{
		Sessions:   sessions,
		TotalCount: total,
		HasMore:    offset+len(sessions) < total,
	}, nil
}

// History pages a session's turns oldest-first. Reading never mutates
// the log.
func (s *Service) History(ctx context.Context, sessionID string, limit, offset int) (chat.HistoryPage, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return chat.HistoryPage{}, chat.ErrInvalidRequest("sessionId must not be empty")
	}

	turns, total, err := s.store.SessionTurns(ctx, sessionID, limit, offset)
	if err != nil {
		return chat.HistoryPage{}, err
	}
	if turns == nil {
		turns = []chat.Turn{}
	}

	return chat.HistoryPage{
		SessionID:  sessionID,
		Turns:      turns,
		TotalCount: total,
		HasMore:    offset+len(turns) < total,
	}, nil
}
