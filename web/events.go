// ABOUTME: Websocket change feed broadcasting activity entries to connected clients
// ABOUTME: Slow clients are dropped rather than blocking the mutation path
package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/incial/crm/activity"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans activity entries out to websocket clients.
type Hub struct {
	mu          sync.Mutex
	clients     map[*wsClient]struct{}
	logger      *zap.Logger
	unsubscribe func()
}

// NewHub subscribes to log. Close unsubscribes and disconnects everyone.
func NewHub(log *activity.Log, logger *zap.Logger) *Hub {
	h := &Hub{
		clients:     make(map[*wsClient]struct{}),
		logger:      logger,
		unsubscribe: func() {},
	}
	if log != nil {
		h.unsubscribe = log.Subscribe(h.Broadcast)
	}
	return h
}

// Broadcast sends entry to every client whose buffer has room.
func (h *Hub) Broadcast(entry activity.Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		h.logger.Error("Failed to encode activity entry", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("Dropping slow websocket client")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Close() {
	h.unsubscribe()
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// Serve upgrades the request and streams entries until the client leaves.
func (h *Hub) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("Websocket client connected", zap.String("actor", callerName(c)))

	go h.writePump(client)
	h.readPump(client)
}

func (h *Hub) remove(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// readPump only watches for close and pong frames; clients send nothing else.
func (h *Hub) readPump(client *wsClient) {
	defer func() {
		h.remove(client)
		_ = client.conn.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
