// Package store persists the per-session turn log behind the
// orchestrator's History Store contract.
package store

import (
	"context"
	"errors"

	"github.com/avatarlabs/chatbot-backend/internal/model/chat"
)

// ErrSessionNotFound is returned for reads against an unknown session
// where absence is an error rather than an empty result.
var ErrSessionNotFound = errors.New("session not found")

// Store is the append-only history contract. Implementations assign
// turn ordering themselves; callers never supply a sequence. All
// methods must be safe for concurrent use.
type Store interface {
	// AppendTurn records a completed exchange and updates the owning
	// session's metadata in the same write.
	AppendTurn(ctx context.Context, turn chat.Turn) error

	// RecentTurns returns at most limit turns, newest-last, consistent
	// with append order. An unknown session yields an empty slice.
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]chat.Turn, error)

	// SessionTurns pages a session's log oldest-first and reports the
	// total count for pagination.
	SessionTurns(ctx context.Context, sessionID string, limit, offset int) ([]chat.Turn, int, error)

	// CreateSession registers session metadata ahead of any turns.
	CreateSession(ctx context.Context, session chat.Session) error

	// GetSession fetches session metadata.
	GetSession(ctx context.Context, sessionID string) (chat.Session, error)

	// ListSessions pages known sessions, most recently active first.
	ListSessions(ctx context.Context, limit, offset int) ([]chat.Session, int, error)

	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error

	Close() error
}
