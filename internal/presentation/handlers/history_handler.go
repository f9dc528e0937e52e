package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/usdc-dashboard/internal/application/services"
	"github.com/bimakw/usdc-dashboard/internal/format"
	"github.com/bimakw/usdc-dashboard/internal/infrastructure/explorer"
	"github.com/bimakw/usdc-dashboard/internal/presentation/middleware"
)

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// HistoryHandler handles HTTP requests for transfer history and metrics
type HistoryHandler struct {
	service *services.HistoryService
	metrics *middleware.WalletMetrics
	logger  *zap.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(service *services.HistoryService, metrics *middleware.WalletMetrics, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		service: service,
		metrics: metrics,
		logger:  logger,
	}
}

// RegisterRoutes registers the history routes
func (h *HistoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/address/{address}/transfers", h.GetTransfers)
	r.Get("/address/{address}/balance", h.GetBalance)
	r.Get("/address/{address}/metrics", h.GetMetrics)
	r.Get("/transactions/{hash}", h.GetTransaction)
}

// GetTransfers handles GET /address/{address}/transfers
func (h *HistoryHandler) GetTransfers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	address := chi.URLParam(r, "address")

	if !format.IsValidAddress(address) {
		h.respondError(w, http.StatusBadRequest, "Invalid address format")
		return
	}

	page := 1
	offset := 0
	forceRefresh := false

	if v := r.URL.Query().Get("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil && o > 0 && o <= 1000 {
			offset = o
		}
	}
	if v := r.URL.Query().Get("refresh"); v == "true" || v == "1" {
		forceRefresh = true
	}

	response, err := h.service.GetTransfers(ctx, address, page, offset, forceRefresh)
	if err != nil {
		h.respondUpstreamError(w, err, "Failed to get transfers")
		return
	}

	if response.Cached {
		h.metrics.CacheHits.Inc()
	} else {
		h.metrics.CacheMisses.Inc()
	}

	h.respondJSON(w, http.StatusOK, response)
}

// GetBalance handles GET /address/{address}/balance
func (h *HistoryHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	address := chi.URLParam(r, "address")

	if !format.IsValidAddress(address) {
		h.respondError(w, http.StatusBadRequest, "Invalid address format")
		return
	}

	response, err := h.service.GetBalance(ctx, address)
	if err != nil {
		h.respondUpstreamError(w, err, "Failed to get balance")
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

// GetMetrics handles GET /address/{address}/metrics
func (h *HistoryHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	address := chi.URLParam(r, "address")

	if !format.IsValidAddress(address) {
		h.respondError(w, http.StatusBadRequest, "Invalid address format")
		return
	}

	response, err := h.service.Metrics(ctx, address)
	if err != nil {
		h.respondUpstreamError(w, err, "Failed to compute metrics")
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

// GetTransaction handles GET /transactions/{hash}
func (h *HistoryHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hash := chi.URLParam(r, "hash")

	if !txHashPattern.MatchString(hash) {
		h.respondError(w, http.StatusBadRequest, "Invalid transaction hash format")
		return
	}

	detail, err := h.service.GetTransaction(ctx, hash)
	if err != nil {
		h.respondUpstreamError(w, err, "Failed to get transaction")
		return
	}
	if detail == nil {
		h.respondError(w, http.StatusNotFound, "Transaction not found")
		return
	}

	receipt, err := h.service.GetTransactionReceipt(ctx, hash)
	if err != nil {
		h.logger.Warn("Failed to get transaction receipt",
			zap.String("hash", hash),
			zap.Error(err),
		)
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"transaction": detail,
		"receipt":     receipt,
	})
}

// respondUpstreamError maps data source failures to HTTP statuses. Explorer
// failures are the upstream's fault, not the caller's.
func (h *HistoryHandler) respondUpstreamError(w http.ResponseWriter, err error, message string) {
	h.logger.Error(message, zap.Error(err))

	var srcErr *explorer.DataSourceError
	var transportErr *explorer.TransportError
	switch {
	case errors.As(err, &srcErr):
		h.metrics.ExplorerErrors.Inc()
		h.respondJSON(w, http.StatusBadGateway, map[string]string{
			"error":  message,
			"detail": srcErr.Message,
		})
	case errors.As(err, &transportErr):
		h.metrics.ExplorerErrors.Inc()
		h.respondError(w, http.StatusBadGateway, message)
	default:
		h.respondError(w, http.StatusInternalServerError, message)
	}
}

func (h *HistoryHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *HistoryHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
