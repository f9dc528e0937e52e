package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthChecker defines the interface for health checking components
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	explorer HealthChecker
	wallet   HealthChecker
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(explorer, wallet HealthChecker) *HealthHandler {
	return &HealthHandler{
		explorer: explorer,
		wallet:   wallet,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  make(map[string]string),
	}

	// Check explorer API
	if err := h.explorer.HealthCheck(ctx); err != nil {
		response.Status = "unhealthy"
		response.Services["explorer"] = "unhealthy: " + err.Error()
	} else {
		response.Services["explorer"] = "healthy"
	}

	// Check wallet RPC; history views still work without it
	if h.wallet != nil {
		if err := h.wallet.HealthCheck(ctx); err != nil {
			if response.Status == "healthy" {
				response.Status = "degraded"
			}
			response.Services["wallet_rpc"] = "unhealthy: " + err.Error()
		} else {
			response.Services["wallet_rpc"] = "healthy"
		}
	}

	status := http.StatusOK
	if response.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// Ready handles GET /ready (Kubernetes readiness probe)
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.explorer.HealthCheck(ctx); err != nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

// Live handles GET /live (Kubernetes liveness probe)
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("alive"))
}
