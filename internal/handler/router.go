package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chathandler "github.com/avatarlabs/chatbot-backend/internal/handler/chat"
	healthhandler "github.com/avatarlabs/chatbot-backend/internal/handler/health"
	wshandler "github.com/avatarlabs/chatbot-backend/internal/handler/ws"
	middlewarePkg "github.com/avatarlabs/chatbot-backend/internal/middleware"
	chatservice "github.com/avatarlabs/chatbot-backend/internal/service/chat"
)

// NewRouter wires HTTP routes to the chat service.
func NewRouter(chatSvc *chatservice.Service, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(corsOrigins))

	chatHandler := chathandler.New(chatSvc)
	healthHandler := healthhandler.New(chatSvc)
	wsHandler := wshandler.New(chatSvc)

	r.Route("/api/v1", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		healthHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)
	})

	return r
}
