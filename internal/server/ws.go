package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// wsMessage is the JSON control message accepted on the WebSocket channel
type wsMessage struct {
	Trigger string `json:"trigger"`
	Data    struct {
		Duration uint32 `json:"duration"` // milliseconds
	} `json:"data"`
}

const wsTriggerPause = "pause"

// WSHandler accepts WebSocket connections carrying control messages and
// binary wire packets. Text frames are JSON commands; binary frames are the
// same packet format the UDP path accepts.
type WSHandler struct {
	logger     *slog.Logger
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader

	connections atomic.Int64
	messages    atomic.Uint64
}

// WSStats represents WebSocket handler statistics
type WSStats struct {
	ActiveConnections int64  `json:"active_connections"`
	Messages          uint64 `json:"messages"`
}

// NewWSHandler creates a WebSocket handler
func NewWSHandler(logger *slog.Logger, dispatcher *Dispatcher) *WSHandler {
	return &WSHandler{
		logger:     logger,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and serves it until the peer disconnects
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()),
		)
		return
	}

	h.connections.Add(1)
	h.logger.Info("WebSocket connection opened",
		slog.String("remote_addr", r.RemoteAddr),
	)

	defer func() {
		conn.Close()
		h.connections.Add(-1)
		h.logger.Info("WebSocket connection closed",
			slog.String("remote_addr", r.RemoteAddr),
		)
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket read error",
					slog.String("remote_addr", r.RemoteAddr),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		h.messages.Add(1)

		switch messageType {
		case websocket.TextMessage:
			h.handleTextMessage(data)
		case websocket.BinaryMessage:
			h.dispatcher.HandleRaw(data)
		}
	}
}

// handleTextMessage parses and applies a JSON control message
func (h *WSHandler) handleTextMessage(data []byte) {
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.logger.Warn("Malformed WebSocket control message",
			slog.Int("message_size", len(data)),
			slog.String("error", err.Error()),
		)
		return
	}

	switch msg.Trigger {
	case wsTriggerPause:
		h.dispatcher.PauseForMillis(msg.Data.Duration)
	default:
		h.logger.Warn("Unknown WebSocket trigger",
			slog.String("trigger", msg.Trigger),
		)
	}
}

// GetStats returns current WebSocket statistics
func (h *WSHandler) GetStats() WSStats {
	return WSStats{
		ActiveConnections: h.connections.Load(),
		Messages:          h.messages.Load(),
	}
}
