// Package retrieval supplies supporting passages for answer grounding.
package retrieval

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/avatarlabs/chatbot-backend/internal/config"
	"github.com/avatarlabs/chatbot-backend/internal/model/chat"
)

// ErrProviderUnavailable marks a degraded provider, as opposed to a
// healthy provider that found nothing. The orchestrator absorbs it.
var ErrProviderUnavailable = errors.New("retrieval provider unavailable")

// Provider is the pluggable retrieval contract. Retrieve returns at
// most topK passages in rank order; an empty result is success, never
// an error. Implementations must honor the caller's deadline.
type Provider interface {
	Retrieve(ctx context.Context, query string, topK int) ([]chat.RetrievedPassage, error)
	Available() bool
	Name() string
}

// NewProvider selects an implementation from configuration. Selection
// happens once at startup; there is no runtime type switching.
func NewProvider(cfg config.RetrievalConfig) Provider {
	switch cfg.Provider {
	case "memory":
		return NewMemoryProvider(SeedPassages())
	case "search":
		return NewSearchProvider(cfg.SearchEndpoint, cfg.SearchAPIKey, cfg.SearchIndex, cfg.Timeout)
	default:
		return NoOpProvider{}
	}
}

// NoOpProvider always returns zero passages. It serves deployments
// with retrieval switched off.
type NoOpProvider struct{}

func (NoOpProvider) Retrieve(context.Context, string, int) ([]chat.RetrievedPassage, error) {
	return nil, nil
}

func (NoOpProvider) Available() bool { return true }

func (NoOpProvider) Name() string { return "none" }

var reQueryJunk = regexp.MustCompile(`[^\p{L}\p{N}\s\-.,!?;:]`)

// sanitizeQuery strips characters that break index query parsers and
// collapses whitespace.
func sanitizeQuery(query string) string {
	cleaned := reQueryJunk.ReplaceAllString(query, " ")
	return strings.Join(strings.Fields(cleaned), " ")
}
