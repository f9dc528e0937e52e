package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/bimakw/usdc-dashboard/internal/application/services"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// EventsHandler streams wallet session updates over a websocket so the
// dashboard can react to connects, disconnects and balance refreshes
// without polling.
type EventsHandler struct {
	service  *services.SessionService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(service *services.SessionService, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Stream handles GET /wallet/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates := h.service.Watch()
	defer h.service.Unwatch(updates)

	h.logger.Info("Session event stream opened", zap.String("ip", r.RemoteAddr))

	// Drain the read side so close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Every stream starts with the current state.
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(h.service.Snapshot()); err != nil {
		return
	}

	pinger := time.NewTicker(pingPeriod)
	defer pinger.Stop()

	for {
		select {
		case session, ok := <-updates:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(session); err != nil {
				h.logger.Debug("Session event write failed", zap.Error(err))
				return
			}
		case <-pinger.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
