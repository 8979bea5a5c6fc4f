package chat

import "time"

// Turn persists one user message together with the generated answer.
// Ordering within a session is assigned by the store, not the caller.
type Turn struct {
	ID          string         `json:"id"`
	SessionID   string         `json:"sessionId"`
	UserMessage string         `json:"userMessage"`
	Answer      Answer         `json:"answer"`
	Sources     []Source       `json:"sources,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	LatencyMs   int64          `json:"latencyMs"`
	TraceID     string         `json:"traceId,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Answer carries the generated text in both rendered forms.
type Answer struct {
	PlainText string `json:"plainText"`
	Markdown  string `json:"markdown"`
}

// Source is one attribution record copied into a turn.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet"`
}

// RetrievedPassage is a transient retrieval result. Only the subset
// actually cited ends up in a Turn's Sources.
type RetrievedPassage struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	URL     string  `json:"url,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// Source converts a passage to its attribution form with a bounded snippet.
func (p RetrievedPassage) Source() Source {
	return Source{
		Title:   p.Title,
		URL:     p.URL,
		Snippet: Snippet(p.Content),
	}
}

// GenerationContext is the assembled input for one generator call.
// It has no identity beyond the request it serves.
type GenerationContext struct {
	System  string
	History []Turn
	Message string
}
