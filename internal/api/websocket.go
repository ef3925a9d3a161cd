package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/siddheshvrane/solar-dashboard/internal/metrics"
)

// WebSocket message types
const (
	// Client -> Server messages
	MsgTypePing    = "ping"
	MsgTypeRefresh = "refresh"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeDashboard = "dashboard"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

const (
	sendBuffer = 8
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// WSMessage is the envelope of every websocket frame.
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WSErrorResponse is the payload of an error message.
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub pushes the dashboard view to every connected client after each
// poller state change.
type Hub struct {
	handler  *Handler
	logger   *zap.Logger
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
	maxMsg   int64

	mu      sync.RWMutex
	clients map[string]*wsClient
}

// NewHub creates a hub. maxMessageSize bounds inbound frames in bytes.
func NewHub(h *Handler, logger *zap.Logger, m *metrics.Metrics, maxMessageSize int64) *Hub {
	if maxMessageSize <= 0 {
		maxMessageSize = 64 * 1024
	}
	return &Hub{
		handler: h,
		logger:  logger,
		metrics: m,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		maxMsg:  maxMessageSize,
		clients: make(map[string]*wsClient),
	}
}

// Run broadcasts the view on every poller notification until ctx ends.
func (hub *Hub) Run(ctx context.Context) {
	updates, cancel := hub.handler.poller.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			hub.closeAll()
			return
		case _, ok := <-updates:
			if !ok {
				return
			}
			hub.Broadcast()
		}
	}
}

// Broadcast sends the current view to every client. Clients whose send
// buffer is full are dropped.
func (hub *Hub) Broadcast() {
	data, err := hub.dashboardMessage()
	if err != nil {
		hub.logger.Error("encode dashboard message", zap.Error(err))
		return
	}

	hub.mu.RLock()
	var slow []*wsClient
	for _, cl := range hub.clients {
		select {
		case cl.send <- data:
		default:
			slow = append(slow, cl)
		}
	}
	hub.mu.RUnlock()

	for _, cl := range slow {
		hub.logger.Warn("dropping slow websocket client", zap.String("client_id", cl.id))
		hub.remove(cl)
	}
}

// ClientCount returns the number of connected clients.
func (hub *Hub) ClientCount() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.clients)
}

// HandleWebSocket upgrades the connection and streams dashboard updates.
func (hub *Hub) HandleWebSocket(c echo.Context) error {
	ws, err := hub.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	cl := &wsClient{
		id:   uuid.New().String(),
		conn: ws,
		send: make(chan []byte, sendBuffer),
	}
	hub.add(cl)
	hub.logger.Debug("websocket client connected", zap.String("client_id", cl.id))

	go hub.writePump(cl)

	hub.enqueue(cl, WSMessage{Type: MsgTypeConnected, ID: cl.id})
	if data, err := hub.dashboardMessage(); err == nil {
		hub.enqueueRaw(cl, data)
	}

	hub.readPump(cl)
	hub.remove(cl)
	hub.logger.Debug("websocket client disconnected", zap.String("client_id", cl.id))
	return nil
}

func (hub *Hub) readPump(cl *wsClient) {
	cl.conn.SetReadLimit(hub.maxMsg)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg WSMessage
		if err := cl.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				hub.logger.Warn("websocket read failed", zap.String("client_id", cl.id), zap.Error(err))
			}
			return
		}
		cl.conn.SetReadDeadline(time.Now().Add(pongWait))

		switch msg.Type {
		case MsgTypePing:
			hub.enqueue(cl, WSMessage{Type: MsgTypePong, ID: msg.ID})
		case MsgTypeRefresh:
			if _, err := hub.handler.poller.Refresh(); err != nil {
				hub.sendError(cl, err.Error(), "REFRESH_FAILED")
			}
		default:
			hub.sendError(cl, "Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}
}

func (hub *Hub) writePump(cl *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case data, ok := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (hub *Hub) dashboardMessage() ([]byte, error) {
	view, err := json.Marshal(hub.handler.View())
	if err != nil {
		return nil, err
	}
	return json.Marshal(WSMessage{
		Type:      MsgTypeDashboard,
		Payload:   view,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (hub *Hub) enqueue(cl *wsClient, msg WSMessage) {
	msg.Timestamp = time.Now().UnixMilli()
	data, err := json.Marshal(msg)
	if err != nil {
		hub.logger.Error("encode websocket message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	hub.enqueueRaw(cl, data)
}

func (hub *Hub) enqueueRaw(cl *wsClient, data []byte) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if _, ok := hub.clients[cl.id]; !ok {
		return
	}
	select {
	case cl.send <- data:
	default:
	}
}

func (hub *Hub) sendError(cl *wsClient, message, code string) {
	payload, _ := json.Marshal(WSErrorResponse{Message: message, Code: code})
	hub.enqueue(cl, WSMessage{Type: MsgTypeError, Payload: payload})
}

func (hub *Hub) add(cl *wsClient) {
	hub.mu.Lock()
	hub.clients[cl.id] = cl
	n := len(hub.clients)
	hub.mu.Unlock()
	hub.metrics.SetWSClients(n)
}

// remove closes the client's send channel once; the write pump then
// closes the connection.
func (hub *Hub) remove(cl *wsClient) {
	hub.mu.Lock()
	if _, ok := hub.clients[cl.id]; !ok {
		hub.mu.Unlock()
		return
	}
	delete(hub.clients, cl.id)
	close(cl.send)
	n := len(hub.clients)
	hub.mu.Unlock()
	hub.metrics.SetWSClients(n)
}

func (hub *Hub) closeAll() {
	hub.mu.Lock()
	for id, cl := range hub.clients {
		delete(hub.clients, id)
		close(cl.send)
	}
	hub.mu.Unlock()
	hub.metrics.SetWSClients(0)
}
