package handler

import (
	"context"
	"net/http"
	"time"

	"go-ledger-api/logger"
)

// HealthHandler reports liveness and, when a pinger is set, storage reachability.
type HealthHandler struct {
	ping func(ctx context.Context) error
}

// NewHealthHandler creates a HealthHandler. ping may be nil for in-memory storage.
func NewHealthHandler(ping func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{ping: ping}
}

// HealthCheck godoc
// @Summary      Show the status of server
// @Description  get the status of server and its storage
// @Tags         health
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /health [get]
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h != nil && h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			logger.Log.WithError(err).Warn("Health check failed to reach storage")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "storage unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "API is healthy and running"})
}
