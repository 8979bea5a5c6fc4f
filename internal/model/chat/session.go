package chat

import "time"

// Session aggregates per-conversation metadata for the session picker.
// The turn log itself lives in the store keyed by SessionID.
type Session struct {
	ID           string         `json:"sessionId"`
	CreatedAt    time.Time      `json:"createdAt"`
	LastActiveAt time.Time      `json:"lastActiveAt"`
	TurnCount    int            `json:"turnCount"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}
