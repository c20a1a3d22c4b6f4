// internal/handler/websocket_handler.go
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tunnins-service/internal/model"
	"tunnins-service/internal/service"
	"tunnins-service/internal/utils"
)

const (
	wsPongWait     = 60 * time.Second
	wsPingInterval = 54 * time.Second
	wsWriteWait    = 10 * time.Second
	wsSendBuffer   = 256
	wsActionWait   = 30 * time.Second
)

// WebSocketHandler streams device events to clients and accepts actions from them
type WebSocketHandler struct {
	upgrader       websocket.Upgrader
	connections    *ConnectionManager
	controlService *service.ControlService
	eventBus       *EventBus
	logger         *utils.ServiceLogger

	done     chan struct{}
	stopOnce sync.Once
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	controlService *service.ControlService,
	eventBus *EventBus,
	allowedOrigins []string,
	logger *zap.Logger,
) *WebSocketHandler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(allowedOrigins, r.Header.Get("Origin"))
		},
	}

	return &WebSocketHandler{
		upgrader:       upgrader,
		connections:    NewConnectionManager(),
		controlService: controlService,
		eventBus:       eventBus,
		logger:         utils.NewServiceLogger(logger, "websocket-handler"),
		done:           make(chan struct{}),
	}
}

func originAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 || origin == "" {
		return true
	}
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// Start forwards bus events to connected clients until Stop is called
func (h *WebSocketHandler) Start() {
	events := h.eventBus.SubscribeAll()

	go func() {
		for {
			select {
			case event := <-events:
				h.Broadcast(&WebSocketMessage{
					Type:      event.Type,
					Data:      event.Data,
					Timestamp: event.Timestamp,
				})
			case <-h.done:
				return
			}
		}
	}()
}

// Stop stops event forwarding and disconnects every client
func (h *WebSocketHandler) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.connections.CloseAll()
	})
}

// RegisterRoutes registers WebSocket routes
func (h *WebSocketHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/events", h.HandleEventConnection)
}

// HandleEventConnection handles event WebSocket connections
// @Summary Event stream
// @Description Upgrade to a WebSocket that streams status changes, received data and command results. Clients may send execute_action and ping messages.
// @Tags WebSocket
// @Router /ws/events [get]
func (h *WebSocketHandler) HandleEventConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := &Client{
		ID:          uuid.New().String(),
		Connection:  conn,
		Send:        make(chan []byte, wsSendBuffer),
		UserAgent:   c.Request.UserAgent(),
		RemoteAddr:  c.Request.RemoteAddr,
		ConnectedAt: time.Now(),
	}

	h.connections.Register(client)
	h.logger.Info("Event WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.String("remote_addr", client.RemoteAddr),
	)

	h.sendMessage(client, &WebSocketMessage{
		Type:      "initial_status",
		Data:      h.controlService.GetStatus(),
		Timestamp: time.Now(),
	})

	go h.handleClientRead(client)
	go h.handleClientWrite(client)
}

// handleClientRead handles reading messages from WebSocket client
func (h *WebSocketHandler) handleClientRead(client *Client) {
	defer func() {
		h.connections.Unregister(client)
		client.Connection.Close()
		h.logger.Info("Event WebSocket client disconnected", zap.String("client_id", client.ID))
	}()

	client.Connection.SetReadDeadline(time.Now().Add(wsPongWait))
	client.Connection.SetPongHandler(func(string) error {
		client.Connection.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, messageBytes, err := client.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket read error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
			}
			break
		}

		var message WebSocketMessage
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			h.sendError(client, "", "invalid message")
			continue
		}

		h.handleClientMessage(client, &message)
	}
}

// handleClientWrite handles writing messages to WebSocket client
func (h *WebSocketHandler) handleClientWrite(client *Client) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		client.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Connection.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				client.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Connection.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Error("WebSocket write error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
				return
			}

		case <-ticker.C:
			client.Connection.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleClientMessage handles incoming client messages
func (h *WebSocketHandler) handleClientMessage(client *Client, message *WebSocketMessage) {
	switch message.Type {
	case "execute_action":
		h.handleExecuteAction(client, message)
	case "get_status":
		h.sendMessage(client, &WebSocketMessage{
			Type:      "status",
			Data:      h.controlService.GetStatus(),
			Timestamp: time.Now(),
			RequestID: message.RequestID,
		})
	case "ping":
		h.sendMessage(client, &WebSocketMessage{
			Type:      "pong",
			Timestamp: time.Now(),
			RequestID: message.RequestID,
		})
	default:
		h.logger.Warn("Unknown message type",
			zap.String("type", message.Type),
			zap.String("client_id", client.ID),
		)
		h.sendError(client, message.RequestID, "unknown message type: "+message.Type)
	}
}

// handleExecuteAction decodes an action request and runs it off the read loop
func (h *WebSocketHandler) handleExecuteAction(client *Client, message *WebSocketMessage) {
	raw, err := json.Marshal(message.Data)
	if err != nil {
		h.sendError(client, message.RequestID, "invalid action data")
		return
	}

	var req service.ActionRequest
	if err := json.Unmarshal(raw, &req); err != nil || req.ActionID == "" {
		h.sendError(client, message.RequestID, "action_id is required")
		return
	}
	req.Source = model.SourceWebSocket

	go h.executeAction(client, message.RequestID, &req)
}

func (h *WebSocketHandler) executeAction(client *Client, requestID string, req *service.ActionRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), wsActionWait)
	defer cancel()

	record, err := h.controlService.ExecuteAction(ctx, req)

	data := map[string]interface{}{
		"action_id": req.ActionID,
		"success":   err == nil,
	}
	if record != nil {
		data["command"] = record
	}
	if err != nil {
		data["error"] = err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			h.logger.Warn("WebSocket action timed out", zap.String("action", req.ActionID))
		}
	}

	h.sendMessage(client, &WebSocketMessage{
		Type:      "action_result",
		Data:      data,
		Timestamp: time.Now(),
		RequestID: requestID,
	})
}

// sendMessage sends a message to a client
func (h *WebSocketHandler) sendMessage(client *Client, message *WebSocketMessage) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal WebSocket message", zap.Error(err))
		return
	}

	if !h.connections.Send(client, messageBytes) {
		h.logger.Warn("Client unavailable, dropping message",
			zap.String("client_id", client.ID),
			zap.String("type", message.Type),
		)
	}
}

// sendError sends an error message to a client
func (h *WebSocketHandler) sendError(client *Client, requestID, errorMsg string) {
	h.sendMessage(client, &WebSocketMessage{
		Type: "error",
		Data: map[string]interface{}{
			"error": errorMsg,
		},
		Timestamp: time.Now(),
		RequestID: requestID,
	})
}

// Broadcast sends a message to every connected client
func (h *WebSocketHandler) Broadcast(message *WebSocketMessage) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message", zap.Error(err))
		return
	}

	h.connections.Broadcast(messageBytes)
}

// GetConnectionStats returns connection statistics
func (h *WebSocketHandler) GetConnectionStats() *ConnectionStats {
	return h.connections.GetStats()
}
