package ws

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/avatarlabs/chatbot-backend/internal/model/chat"
	chatservice "github.com/avatarlabs/chatbot-backend/internal/service/chat"
)

// Handler exposes the chat pipeline over a websocket. Each inbound
// text frame is one chat request; each outbound frame is one complete
// response. There is no token streaming on this transport.
type Handler struct {
	svc      *chatservice.Service
	upgrader websocket.Upgrader
}

// New 创建WebSocket聊天处理器
func New(svc *chatservice.Service) *Handler {
	return &Handler{
		svc: svc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/chat", h.handleChat)
}

type errorFrame struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	TraceID string `json:"traceId,omitempty"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[ws] read failed: %v", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var request chat.Request
		if err := json.Unmarshal(payload, &request); err != nil {
			h.writeError(conn, chat.ErrInvalidRequest("invalid request frame"), "")
			continue
		}

		response, err := h.svc.Handle(r.Context(), request)
		if err != nil {
			h.writeError(conn, err, request.TraceID)
			continue
		}

		if err := conn.WriteJSON(response); err != nil {
			log.Printf("[ws] write failed session=%s: %v", request.SessionID, err)
			return
		}
	}
}

func (h *Handler) writeError(conn *websocket.Conn, err error, traceID string) {
	var frame errorFrame
	frame.TraceID = traceID

	var ce *chat.Error
	if errors.As(err, &ce) {
		frame.Error.Code = string(ce.Kind)
		frame.Error.Message = ce.Message
	} else {
		frame.Error.Code = string(chat.KindInternal)
		frame.Error.Message = "an unexpected error occurred"
	}

	if werr := conn.WriteJSON(frame); werr != nil {
		log.Printf("[ws] error write failed: %v", werr)
	}
}
