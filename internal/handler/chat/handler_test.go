package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avatarlabs/chatbot-backend/internal/config"
	"github.com/avatarlabs/chatbot-backend/internal/generator"
	"github.com/avatarlabs/chatbot-backend/internal/model/chat"
	"github.com/avatarlabs/chatbot-backend/internal/retrieval"
	chatservice "github.com/avatarlabs/chatbot-backend/internal/service/chat"
	"github.com/avatarlabs/chatbot-backend/internal/store"
)

type fakeGenerator struct {
	answer generator.Answer
	err    error
}

func (g *fakeGenerator) Generate(ctx context.Context, gc chat.GenerationContext) (generator.Answer, error) {
	if g.err != nil {
		return generator.Answer{}, g.err
	}
	return g.answer, nil
}

func (g *fakeGenerator) Ready() bool { return true }

func testService(st store.Store, gen generator.Generator) *chatservice.Service {
	cfg := config.ChatConfig{
		MaxHistoryTurns: 20,
		MaxMessageChars: 4000,
		RequestTimeout:  5 * time.Second,
		PersistTimeout:  time.Second,
	}
	return chatservice.NewService(cfg, config.RetrievalConfig{Provider: "none"}, st, retrieval.NoOpProvider{}, gen)
}

func testRouter(svc *chatservice.Service) http.Handler {
	r := chi.NewRouter()
	New(svc).RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHandleChatSuccess(t *testing.T) {
	gen := &fakeGenerator{answer: generator.Answer{Markdown: "**Paris** is the capital."}}
	h := testRouter(testService(store.NewMemoryStore(), gen))

	rec := doJSON(t, h, http.MethodPost, "/chat", `{"sessionId":"s1","message":"capital of France?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	var resp chat.Response
	decodeBody(t, rec, &resp)
	if resp.SessionID != "s1" || resp.TurnID == "" {
		t.Fatalf("unexpected response identity: %#v", resp)
	}
	if resp.Answer.PlainText != "Paris is the capital." {
		t.Fatalf("plain text = %q", resp.Answer.PlainText)
	}
	if resp.Answer.Markdown != "**Paris** is the capital." {
		t.Fatalf("markdown = %q", resp.Answer.Markdown)
	}
	if resp.Sources == nil {
		t.Fatal("sources must be an empty array, not null")
	}
	if resp.LatencyMs < 0 {
		t.Fatalf("latency = %d", resp.LatencyMs)
	}
}

func TestHandleChatInvalidBody(t *testing.T) {
	h := testRouter(testService(store.NewMemoryStore(), &fakeGenerator{}))

	rec := doJSON(t, h, http.MethodPost, "/chat", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decodeBody(t, rec, &body)
	if body.Error.Code != "INVALID_REQUEST" {
		t.Fatalf("code = %q", body.Error.Code)
	}
}

func TestHandleChatValidationError(t *testing.T) {
	h := testRouter(testService(store.NewMemoryStore(), &fakeGenerator{}))

	rec := doJSON(t, h, http.MethodPost, "/chat", `{"sessionId":"s1","message":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleChatUpstreamFailureMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"generator error", errors.New("model exploded"), http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"generator timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &fakeGenerator{err: tc.err}
			h := testRouter(testService(store.NewMemoryStore(), gen))

			rec := doJSON(t, h, http.MethodPost, "/chat", `{"sessionId":"s1","message":"hi"}`)
			if rec.Code != tc.want {
				t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
			}

			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			decodeBody(t, rec, &body)
			if body.Error.Code != tc.code {
				t.Fatalf("code = %q", body.Error.Code)
			}
		})
	}
}

func TestHandleCreateSession(t *testing.T) {
	st := store.NewMemoryStore()
	h := testRouter(testService(st, &fakeGenerator{}))

	rec := doJSON(t, h, http.MethodPost, "/sessions", `{"metadata":{"userId":"u1"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	var session chat.Session
	decodeBody(t, rec, &session)
	if session.ID == "" {
		t.Fatal("expected session id")
	}

	stored, err := st.GetSession(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if stored.Metadata["userId"] != "u1" {
		t.Fatalf("metadata not stored: %#v", stored.Metadata)
	}
}

func TestHandleCreateSessionEmptyBody(t *testing.T) {
	h := testRouter(testService(store.NewMemoryStore(), &fakeGenerator{}))

	rec := doJSON(t, h, http.MethodPost, "/sessions", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func seedStore(t *testing.T, st store.Store, sessionID string, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		turn := chat.Turn{
			ID:          fmt.Sprintf("%s-t%d", sessionID, i),
			SessionID:   sessionID,
			UserMessage: fmt.Sprintf("q%d", i),
			Answer:      chat.Answer{PlainText: fmt.Sprintf("a%d", i)},
			CreatedAt:   time.Now().UTC(),
		}
		if err := st.AppendTurn(context.Background(), turn); err != nil {
			t.Fatalf("AppendTurn err: %v", err)
		}
	}
}

func TestHandleHistory(t *testing.T) {
	st := store.NewMemoryStore()
	h := testRouter(testService(st, &fakeGenerator{}))
	seedStore(t, st, "s1", 5)

	rec := doJSON(t, h, http.MethodGet, "/sessions/s1/history?limit=2&offset=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	var page chat.HistoryPage
	decodeBody(t, rec, &page)
	if page.TotalCount != 5 || len(page.Turns) != 2 {
		t.Fatalf("unexpected page: total=%d turns=%d", page.TotalCount, len(page.Turns))
	}
	if page.Turns[0].UserMessage != "q3" {
		t.Fatalf("expected oldest-first paging, got %q", page.Turns[0].UserMessage)
	}
	if !page.HasMore {
		t.Fatal("expected hasMore")
	}
}

func TestHandleHistoryUnknownSession(t *testing.T) {
	h := testRouter(testService(store.NewMemoryStore(), &fakeGenerator{}))

	rec := doJSON(t, h, http.MethodGet, "/sessions/ghost/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	var page chat.HistoryPage
	decodeBody(t, rec, &page)
	if page.TotalCount != 0 || len(page.Turns) != 0 {
		t.Fatalf("expected empty page, got %#v", page)
	}
}

func TestHandleHistoryBadPagination(t *testing.T) {
	h := testRouter(testService(store.NewMemoryStore(), &fakeGenerator{}))

	for _, query := range []string{"limit=0", "limit=abc", "offset=-1"} {
		rec := doJSON(t, h, http.MethodGet, "/sessions/s1/history?"+query, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", query, rec.Code)
		}
	}
}

func TestHandleListSessions(t *testing.T) {
	st := store.NewMemoryStore()
	h := testRouter(testService(st, &fakeGenerator{}))
	seedStore(t, st, "s1", 1)
	seedStore(t, st, "s2", 1)

	rec := doJSON(t, h, http.MethodGet, "/sessions?limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	var page chat.SessionPage
	decodeBody(t, rec, &page)
	if page.TotalCount != 2 || len(page.Sessions) != 1 || !page.HasMore {
		t.Fatalf("unexpected page: %#v", page)
	}
}
