// Package generator abstracts the remote grounded-answer model.
package generator

import (
	"context"

	"github.com/avatarlabs/chatbot-backend/internal/model/chat"
)

// Usage reports token consumption when the model provides it.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Answer is one complete generation. Partial output is never returned;
// a deadline miss is an error, because attribution cannot be trusted
// on truncated text.
type Answer struct {
	Markdown string
	// Sources carries model-reported citations. Most models return
	// none, in which case the orchestrator attributes all retrieved
	// passages instead.
	Sources []chat.Source
	Usage   *Usage
}

// Generator produces an answer for an assembled context. Implementations
// must honor the context deadline and abort rather than return late.
type Generator interface {
	Generate(ctx context.Context, gc chat.GenerationContext) (Answer, error)
	Ready() bool
}
