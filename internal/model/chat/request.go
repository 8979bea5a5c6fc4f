package chat

// Request is the inbound chat payload.
type Request struct {
	SessionID string         `json:"sessionId"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	// TraceID comes from the transport layer (request id header), not
	// from the client body. A fresh one is generated when empty.
	TraceID string `json:"-"`
}

// Response is the outbound chat payload.
type Response struct {
	SessionID string   `json:"sessionId"`
	TurnID    string   `json:"turnId"`
	Answer    Answer   `json:"answer"`
	Sources   []Source `json:"sources"`
	LatencyMs int64    `json:"latencyMs"`
	TraceID   string   `json:"traceId"`
}

// HistoryPage is a paginated slice of a session's turn log.
type HistoryPage struct {
	SessionID  string `json:"sessionId"`
	Turns      []Turn `json:"turns"`
	TotalCount int    `json:"totalCount"`
	HasMore    bool   `json:"hasMore"`
}

// SessionPage is a paginated listing of known sessions.
type SessionPage struct {
	Sessions   []Session `json:"sessions"`
	TotalCount int       `json:"totalCount"`
	HasMore    bool      `json:"hasMore"`
}
