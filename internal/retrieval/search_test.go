package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newSearchTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *SearchProvider) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, NewSearchProvider(srv.URL, "test-key", "chat-docs", 2*time.Second)
}

func TestSearchRetrieveMapsHits(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any

	_, p := newSearchTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("api-key")
		json.NewDecoder(r.Body).Decode(&gotBody)

		json.NewEncoder(w).Encode(map[string]any{
			"value": []map[string]any{
				{"id": "d1", "title": "First", "content": "first content", "url": "https://example.com/1", "@search.score": 2.5},
				{"id": "d2", "title": "Second", "content": "second content", "url": "https://example.com/2", "@search.score": 1.1},
			},
		})
	})

	passages, err := p.Retrieve(context.Background(), "vacation policy", 3)
	if err != nil {
		t.Fatalf("Retrieve err: %v", err)
	}

	if gotPath != "/indexes/chat-docs/docs/search" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api-key = %q", gotKey)
	}
	if gotBody["search"] != "vacation policy" || gotBody["top"] != float64(3) {
		t.Errorf("request body = %v", gotBody)
	}

	if len(passages) != 2 {
		t.Fatalf("expected 2 passages, got %d", len(passages))
	}
	if passages[0].ID != "d1" || passages[0].Score != 2.5 || passages[0].URL != "https://example.com/1" {
		t.Fatalf("first hit mapped wrong: %#v", passages[0])
	}
	if passages[1].Title != "Second" {
		t.Fatalf("second hit mapped wrong: %#v", passages[1])
	}
}

func TestSearchRetrieveEmptyResultIsSuccess(t *testing.T) {
	_, p := newSearchTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"value": []any{}})
	})

	passages, err := p.Retrieve(context.Background(), "nothing matches", 5)
	if err != nil {
		t.Fatalf("empty result must be success: %v", err)
	}
	if len(passages) != 0 {
		t.Fatalf("expected no passages, got %d", len(passages))
	}
}

func TestSearchRetrieveServerErrorIsUnavailable(t *testing.T) {
	_, p := newSearchTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index overloaded", http.StatusInternalServerError)
	})

	_, err := p.Retrieve(context.Background(), "query", 5)
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestSearchRetrieveBadJSONIsUnavailable(t *testing.T) {
	_, p := newSearchTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway error</html>"))
	})

	_, err := p.Retrieve(context.Background(), "query", 5)
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestSearchRetrieveTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	p := NewSearchProvider(srv.URL, "test-key", "chat-docs", 2*time.Second)
	srv.Close()

	_, err := p.Retrieve(context.Background(), "query", 5)
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestSearchRetrieveUnconfigured(t *testing.T) {
	p := NewSearchProvider("", "", "chat-docs", time.Second)

	if p.Available() {
		t.Fatal("provider without endpoint must report unavailable")
	}
	_, err := p.Retrieve(context.Background(), "query", 5)
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestSearchRetrieveSanitizesQuery(t *testing.T) {
	var gotSearch string
	_, p := newSearchTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		gotSearch, _ = body["search"].(string)
		json.NewEncoder(w).Encode(map[string]any{"value": []any{}})
	})

	if _, err := p.Retrieve(context.Background(), `policy "draft" (v2)`, 5); err != nil {
		t.Fatalf("Retrieve err: %v", err)
	}
	if gotSearch != "policy draft v2" {
		t.Fatalf("query not sanitized: %q", gotSearch)
	}
}
