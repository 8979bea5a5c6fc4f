package health

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	chatservice "github.com/avatarlabs/chatbot-backend/internal/service/chat"
	"github.com/avatarlabs/chatbot-backend/pkg/utils"
)

// Handler serves the two health surfaces: a detailed per-dependency
// report and a binary probe for load balancers.
type Handler struct {
	svc *chatservice.Service
}

// New 创建健康检查处理器
func New(svc *chatservice.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes 注册健康检查路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
	r.Get("/healthz", h.handleHealthz)
}

type healthResponse struct {
	Status       string          `json:"status"`
	Timestamp    time.Time       `json:"timestamp"`
	Dependencies map[string]bool `json:"dependencies"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := h.svc.CheckHealth(r.Context())

	status := "healthy"
	if !report.Healthy {
		status = "unhealthy"
	}

	utils.RespondJSON(w, http.StatusOK, healthResponse{
		Status:       status,
		Timestamp:    time.Now().UTC(),
		Dependencies: report.Dependencies,
	})
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	report := h.svc.CheckHealth(r.Context())
	if !report.Healthy {
		utils.RespondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":       "error",
			"dependencies": report.Dependencies,
		})
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
