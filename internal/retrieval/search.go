package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avatarlabs/chatbot-backend/internal/model/chat"
)

// SearchProvider queries a REST full-text search index. Any transport
// failure surfaces as ErrProviderUnavailable so callers can tell a
// degraded index from an empty result.
type SearchProvider struct {
	endpoint   string
	apiKey     string
	index      string
	httpClient *http.Client
}

// NewSearchProvider builds a provider against the given index.
func NewSearchProvider(endpoint, apiKey, index string, timeout time.Duration) *SearchProvider {
	return &SearchProvider{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		index:    index,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type searchRequest struct {
	Search string `json:"search"`
	Top    int    `json:"top"`
}

type searchResponse struct {
	Value []struct {
		ID      string  `json:"id"`
		Title   string  `json:"title"`
		Content string  `json:"content"`
		URL     string  `json:"url"`
		Score   float64 `json:"@search.score"`
	} `json:"value"`
}

// Retrieve posts a search query and maps hits to passages in index
// rank order.
func (p *SearchProvider) Retrieve(ctx context.Context, query string, topK int) ([]chat.RetrievedPassage, error) {
	if !p.Available() {
		return nil, fmt.Errorf("search index not configured: %w", ErrProviderUnavailable)
	}
	if topK < 1 {
		return nil, nil
	}

	payload, err := json.Marshal(searchRequest{Search: sanitizeQuery(query), Top: topK})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	url := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=2023-11-01", p.endpoint, p.index)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %v: %w", err, ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed reading search response: %v: %w", err, ErrProviderUnavailable)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search non-success status=%d body=%s: %w",
			resp.StatusCode, truncate(string(body), 400), ErrProviderUnavailable)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %s: %w", truncate(string(body), 400), ErrProviderUnavailable)
	}

	passages := make([]chat.RetrievedPassage, 0, len(parsed.Value))
	for _, hit := range parsed.Value {
		passages = append(passages, chat.RetrievedPassage{
			ID:      hit.ID,
			Title:   hit.Title,
			Content: hit.Content,
			URL:     hit.URL,
			Score:   hit.Score,
		})
	}
	return passages, nil
}

// Available reports whether the index connection is configured.
func (p *SearchProvider) Available() bool {
	return p.endpoint != "" && p.apiKey != ""
}

func (p *SearchProvider) Name() string { return "search" }

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
