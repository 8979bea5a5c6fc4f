// Package chat implements the request orchestration pipeline: bounded
// history, optional retrieval, deadline-budgeted generation, and
// best-effort persistence.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/avatarlabs/chatbot-backend/internal/config"
	"github.com/avatarlabs/chatbot-backend/internal/generator"
	"github.com/avatarlabs/chatbot-backend/internal/model/chat"
	"github.com/avatarlabs/chatbot-backend/internal/retrieval"
	"github.com/avatarlabs/chatbot-backend/internal/store"
)

// Service coordinates one request/response cycle per Handle call.
// It holds no per-session state; concurrent requests are independent.
type Service struct {
	cfg       config.ChatConfig
	retrieval config.RetrievalConfig
	store     store.Store
	provider  retrieval.Provider
	generator generator.Generator

	// PersistHook observes the outcome of the detached turn write.
	// Set before serving; used by tests and metrics, never by the
	// response path.
	PersistHook func(turn chat.Turn, err error)
}

// NewService wires the orchestrator. generator may be nil when the
// model is not configured; Handle then fails upstream-classified while
// read-only endpoints keep working.
func NewService(cfg config.ChatConfig, rcfg config.RetrievalConfig, st store.Store, provider retrieval.Provider, gen generator.Generator) *Service {
	if provider == nil {
		provider = retrieval.NoOpProvider{}
	}
	return &Service{
		cfg:       cfg,
		retrieval: rcfg,
		store:     st,
		provider:  provider,
		generator: gen,
	}
}

// Handle runs the full pipeline for one message. History and retrieval
// failures degrade; only validation and generator failures surface.
func (s *Service) Handle(ctx context.Context, req chat.Request) (chat.Response, error) {
	start := time.Now()

	sessionID := strings.TrimSpace(req.SessionID)
	message := strings.TrimSpace(req.Message)
	if sessionID == "" {
		return chat.Response{}, chat.ErrInvalidRequest("sessionId must not be empty")
	}
	if message == "" {
		return chat.Response{}, chat.ErrInvalidRequest("message must not be empty")
	}
	if utf8.RuneCountInString(message) > s.cfg.MaxMessageChars {
		return chat.Response{}, chat.ErrInvalidRequest(fmt.Sprintf("message exceeds %d characters", s.cfg.MaxMessageChars))
	}

	traceID := req.TraceID
	if traceID == "" {
		traceID = uuid.NewString()
	}

	if s.generator == nil {
		return chat.Response{}, chat.ErrUpstreamError(errors.New("answer generator not configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	// History and retrieval are independent; run them concurrently and
	// join both before assembly.
	var (
		wg       sync.WaitGroup
		history  []chat.Turn
		passages []chat.RetrievedPassage
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		turns, err := s.store.RecentTurns(ctx, sessionID, s.cfg.MaxHistoryTurns)
		if err != nil {
			log.Printf("[chat] degraded: history load failed session=%s trace=%s err=%v", sessionID, traceID, err)
			return
		}
		history = turns
	}()

	if s.retrieval.Enabled() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rctx, rcancel := context.WithTimeout(ctx, s.retrieval.Timeout)
			defer rcancel()

			results, err := s.provider.Retrieve(rctx, message, s.retrieval.TopK)
			if err != nil {
				if errors.Is(err, retrieval.ErrProviderUnavailable) {
					log.Printf("[chat] degraded: retrieval provider unavailable trace=%s err=%v", traceID, err)
				} else {
					log.Printf("[chat] degraded: retrieval failed trace=%s err=%v", traceID, err)
				}
				return
			}
			passages = results
		}()
	}

	wg.Wait()

	gc := Assemble(history, passages, message, req.Metadata)

	answer, err := s.generator.Generate(ctx, gc)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			log.Printf("[chat] generation timed out session=%s trace=%s err=%v", sessionID, traceID, err)
			return chat.Response{}, chat.ErrUpstreamTimeout(err)
		}
		log.Printf("[chat] generation failed session=%s trace=%s err=%v", sessionID, traceID, err)
		return chat.Response{}, chat.ErrUpstreamError(err)
	}

	markdown := strings.TrimSpace(answer.Markdown)
	turn := chat.Turn{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		UserMessage: message,
		Answer: chat.Answer{
			PlainText: chat.StripMarkdown(markdown),
			Markdown:  markdown,
		},
		Sources:   attributeSources(answer.Sources, passages),
		CreatedAt: time.Now().UTC(),
		LatencyMs: time.Since(start).Milliseconds(),
		TraceID:   traceID,
		Metadata:  req.Metadata,
	}

	response := chat.Response{
		SessionID: sessionID,
		TurnID:    turn.ID,
		Answer:    turn.Answer,
		Sources:   turn.Sources,
		LatencyMs: turn.LatencyMs,
		TraceID:   traceID,
	}
	if response.Sources == nil {
		response.Sources = []chat.Source{}
	}

	// The response is final at this point. Persistence runs detached
	// with its own deadline; its failure is logged, never surfaced.
	go s.persistTurn(turn)

	log.Printf("[chat] completed session=%s turn=%s latency_ms=%d sources=%d trace=%s",
		sessionID, turn.ID, turn.LatencyMs, len(turn.Sources), traceID)

	return response, nil
}

func (s *Service) persistTurn(turn chat.Turn) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PersistTimeout)
	defer cancel()

	err := s.store.AppendTurn(ctx, turn)
	if err != nil {
		log.Printf("[chat] turn write failed session=%s turn=%s trace=%s err=%v",
			turn.SessionID, turn.ID, turn.TraceID, err)
	}
	if s.PersistHook != nil {
		s.PersistHook(turn, err)
	}
}

// attributeSources prefers generator-reported citations and falls back
// to all retrieved passages, deduplicated by locator.
func attributeSources(cited []chat.Source, passages []chat.RetrievedPassage) []chat.Source {
	candidates := cited
	if len(candidates) == 0 {
		for _, passage := range passages {
			candidates = append(candidates, passage.Source())
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(candidates))
	sources := make([]chat.Source, 0, len(candidates))
	for _, src := range candidates {
		locator := src.URL
		if locator == "" {
			locator = src.Title
		}
		if seen[locator] {
			continue
		}
		seen[locator] = true
		sources = append(sources, src)
	}
	return sources
}
