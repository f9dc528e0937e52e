package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/usdc-dashboard/internal/application/services"
	"github.com/bimakw/usdc-dashboard/internal/format"
	"github.com/bimakw/usdc-dashboard/internal/infrastructure/wallet"
	"github.com/bimakw/usdc-dashboard/internal/presentation/middleware"
)

// SessionHandler handles HTTP requests for the wallet session
type SessionHandler struct {
	service     *services.SessionService
	metrics     *middleware.WalletMetrics
	explorerURL string
	logger      *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(service *services.SessionService, metrics *middleware.WalletMetrics, explorerURL string, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		service:     service,
		metrics:     metrics,
		explorerURL: explorerURL,
		logger:      logger,
	}
}

// RegisterRoutes registers the session routes
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/wallet/session", h.GetSession)
	r.Post("/wallet/connect", h.Connect)
	r.Post("/wallet/disconnect", h.Disconnect)
	r.Post("/wallet/refresh", h.Refresh)
	r.Post("/wallet/transfer", h.Transfer)
}

// TransferRequest is the body of POST /wallet/transfer
type TransferRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// TransferResponse is the success response of POST /wallet/transfer
type TransferResponse struct {
	TxHash      string `json:"tx_hash"`
	TxHashShort string `json:"tx_hash_short"`
	ExplorerURL string `json:"explorer_url"`
}

// GetSession handles GET /wallet/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.service.Snapshot())
}

// Connect handles POST /wallet/connect
func (h *SessionHandler) Connect(w http.ResponseWriter, r *http.Request) {
	h.metrics.ConnectAttempts.Inc()

	if err := h.service.Connect(r.Context()); err != nil {
		switch {
		case errors.Is(err, services.ErrConnectInProgress), errors.Is(err, services.ErrAlreadyConnected):
			h.respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, wallet.ErrUserRejected):
			h.metrics.ConnectFailures.Inc()
			h.respondError(w, http.StatusBadRequest, "Connection request was rejected")
		default:
			h.metrics.ConnectFailures.Inc()
			h.logger.Error("Failed to connect wallet", zap.Error(err))
			h.respondError(w, http.StatusBadGateway, "Failed to connect wallet")
		}
		return
	}

	h.metrics.SessionsConnected.Set(1)
	h.respondJSON(w, http.StatusOK, h.service.Snapshot())
}

// Disconnect handles POST /wallet/disconnect
func (h *SessionHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.service.Disconnect()
	h.metrics.SessionsConnected.Set(0)
	h.respondJSON(w, http.StatusOK, h.service.Snapshot())
}

// Refresh handles POST /wallet/refresh
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.metrics.BalanceRefreshes.Inc()

	if err := h.service.RefreshBalances(r.Context()); err != nil {
		if errors.Is(err, services.ErrNotConnected) {
			h.respondError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("Failed to refresh balances", zap.Error(err))
		h.respondError(w, http.StatusBadGateway, "Failed to refresh balances")
		return
	}

	h.respondJSON(w, http.StatusOK, h.service.Snapshot())
}

// Transfer handles POST /wallet/transfer
func (h *SessionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	txHash, err := h.service.Transfer(r.Context(), req.To, req.Amount)
	if err != nil {
		h.metrics.TransfersRejected.Inc()

		var transferErr *services.TransferError
		if errors.As(err, &transferErr) {
			status := http.StatusBadRequest
			if errors.Is(err, services.ErrNotConnected) {
				status = http.StatusConflict
			}
			h.respondError(w, status, transferErr.Message)
			return
		}
		h.logger.Error("Failed to submit transfer", zap.Error(err))
		h.respondError(w, http.StatusBadGateway, "Failed to submit transfer")
		return
	}

	h.metrics.TransfersSubmitted.Inc()
	h.respondJSON(w, http.StatusOK, TransferResponse{
		TxHash:      txHash,
		TxHashShort: format.ShortenHash(txHash),
		ExplorerURL: format.ExplorerURL(h.explorerURL, "tx", txHash),
	})
}

func (h *SessionHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *SessionHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
