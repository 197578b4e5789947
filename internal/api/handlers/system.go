package handlers

import (
	"net/http"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/service"
)

// SystemHandler serves the unauthenticated health endpoint.
type SystemHandler struct {
	systemService *service.SystemService
}

func NewSystemHandler(systemService *service.SystemService) *SystemHandler {
	return &SystemHandler{systemService: systemService}
}

// HealthResponse represents the health check response.
// Scheduler is omitted when no scheduler is attached (e.g. in tests).
type HealthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	Scheduler   string `json:"scheduler,omitempty"`
	Connections int    `json:"connections"`
	Groups      int    `json:"groups"`
	Error       string `json:"error,omitempty"`
}

// Health reports database connectivity and live channel usage.
//
// Endpoint: GET /api/system/health
// Response: 200 OK with HealthResponse
// Error: 503 Service Unavailable if the database cannot be reached
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.systemService.Status(r.Context())
	body := HealthResponse{
		Status:      "healthy",
		Database:    "connected",
		Scheduler:   status.Scheduler,
		Connections: status.Connections,
		Groups:      status.Groups,
	}

	code := http.StatusOK
	if status.Database != nil {
		code = http.StatusServiceUnavailable
		body.Status = "unhealthy"
		body.Database = "disconnected"
		body.Error = status.Database.Error()
	}
	response.RespondJSON(w, code, body)
}
