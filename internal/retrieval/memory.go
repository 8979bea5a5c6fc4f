package retrieval

import (
	"context"
	"sort"
	"strings"

	"github.com/avatarlabs/chatbot-backend/internal/model/chat"
)

// MemoryProvider ranks a fixed corpus by keyword overlap. It exists
// for development and tests, where a real index is unavailable.
type MemoryProvider struct {
	passages []chat.RetrievedPassage
}

// NewMemoryProvider builds a provider over the given corpus.
func NewMemoryProvider(passages []chat.RetrievedPassage) *MemoryProvider {
	return &MemoryProvider{passages: passages}
}

// SeedPassages returns the built-in development corpus.
func SeedPassages() []chat.RetrievedPassage {
	return []chat.RetrievedPassage{
		{
			ID:      "doc1",
			Title:   "Enterprise Policies",
			Content: "This is a sample document about enterprise policies and procedures.",
			URL:     "https://example.com/doc1",
		},
		{
			ID:      "doc2",
			Title:   "HR Guidelines",
			Content: "This document contains information about HR guidelines and employee benefits.",
			URL:     "https://example.com/doc2",
		},
		{
			ID:      "doc3",
			Title:   "Development Standards",
			Content: "Technical documentation for software development processes and coding standards.",
			URL:     "https://example.com/doc3",
		},
	}
}

// Retrieve scores each passage by word overlap with the query. Title
// hits weigh double. Ties break on passage id so ranking stays stable.
func (p *MemoryProvider) Retrieve(ctx context.Context, query string, topK int) ([]chat.RetrievedPassage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK < 1 {
		return nil, nil
	}

	queryWords := strings.Fields(strings.ToLower(sanitizeQuery(query)))

	var scored []chat.RetrievedPassage
	for _, passage := range p.passages {
		contentWords := wordSet(passage.Content)
		titleWords := wordSet(passage.Title)

		score := 0.0
		for _, word := range queryWords {
			if contentWords[word] {
				score += 0.1
			}
			if titleWords[word] {
				score += 0.2
			}
		}
		if score > 0 {
			passage.Score = score
			scored = append(scored, passage)
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (p *MemoryProvider) Available() bool { return true }

func (p *MemoryProvider) Name() string { return "memory" }

func wordSet(text string) map[string]bool {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.Trim(w, ".,!?;:")] = true
	}
	return set
}
