package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/avatarlabs/chatbot-backend/internal/model/chat"
	chatservice "github.com/avatarlabs/chatbot-backend/internal/service/chat"
	"github.com/avatarlabs/chatbot-backend/pkg/utils"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	svc *chatservice.Service
}

// New 创建聊天处理器
func New(svc *chatservice.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions", h.handleListSessions)
	r.Get("/sessions/{sessionID}/history", h.handleHistory)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())

	var payload chat.Request
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, string(chat.KindInvalidRequest), "invalid request body", traceID)
		return
	}
	payload.TraceID = traceID

	response, err := h.svc.Handle(r.Context(), payload)
	if err != nil {
		respondChatError(w, err, traceID)
		return
	}

	utils.RespondJSON(w, http.StatusOK, response)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())

	var payload struct {
		Metadata map[string]any `json:"metadata"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			utils.RespondError(w, http.StatusBadRequest, string(chat.KindInvalidRequest), "invalid request body", traceID)
			return
		}
	}

	session, err := h.svc.CreateSession(r.Context(), payload.Metadata)
	if err != nil {
		respondChatError(w, err, traceID)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())
	limit, offset, err := pagination(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, string(chat.KindInvalidRequest), err.Error(), traceID)
		return
	}

	page, err := h.svc.ListSessions(r.Context(), limit, offset)
	if err != nil {
		respondChatError(w, err, traceID)
		return
	}

	utils.RespondJSON(w, http.StatusOK, page)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	limit, offset, err := pagination(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, string(chat.KindInvalidRequest), err.Error(), traceID)
		return
	}

	page, err := h.svc.History(r.Context(), sessionID, limit, offset)
	if err != nil {
		respondChatError(w, err, traceID)
		return
	}

	utils.RespondJSON(w, http.StatusOK, page)
}

// pagination parses limit/offset query parameters with clamped bounds.
func pagination(r *http.Request) (limit, offset int, err error) {
	limit = defaultPageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, errors.New("limit must be a positive integer")
		}
		if limit > maxPageLimit {
			limit = maxPageLimit
		}
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, errors.New("offset must be a non-negative integer")
		}
	}

	return limit, offset, nil
}

// respondChatError maps the error taxonomy to HTTP statuses.
func respondChatError(w http.ResponseWriter, err error, traceID string) {
	var ce *chat.Error
	if errors.As(err, &ce) {
		utils.RespondError(w, ce.HTTPStatus(), string(ce.Kind), ce.Message, traceID)
		return
	}
	utils.RespondError(w, http.StatusInternalServerError, string(chat.KindInternal), "an unexpected error occurred", traceID)
}
