// Package realtime fans out refresh hints to connected clients over
// websockets. A hint only says that a resource changed; clients are expected
// to refetch through the API. Delivery is best-effort and at-most-once, so a
// hint must never be applied as state on its own.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Clients only listen; inbound frames beyond control messages are noise.
	maxInboundSize = 256
)

// Hint is the refresh signal payload. It identifies what changed but never
// carries the changed data itself.
type Hint struct {
	Resource string    `json:"resource"`
	ID       string    `json:"id"`
	Status   string    `json:"status,omitempty"`
	SentAt   time.Time `json:"sent_at"`
}

// Hub tracks connected clients and broadcasts hints to all of them.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub constructs a hub. Origin checking is delegated to the CORS layer.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// Serve upgrades the request and keeps the connection registered until the
// peer goes away.
func (h *Hub) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{conn: conn, send: make(chan []byte, 8)}
	h.register(cl)

	go h.writeLoop(cl)
	h.readLoop(cl)
}

// Publish sends a hint to every connected client. Slow clients are skipped
// rather than blocking the caller; missing a hint only delays the next
// refetch.
func (h *Hub) Publish(hint Hint) {
	if hint.SentAt.IsZero() {
		hint.SentAt = time.Now().UTC()
	}
	payload, err := json.Marshal(hint)
	if err != nil {
		h.logger.Warn("failed to encode refresh hint", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for cl := range h.clients {
		select {
		case cl.send <- payload:
		default:
		}
	}
}

// ClientCount reports the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(cl *client) {
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("realtime client connected", zap.Int("clients", count))
}

func (h *Hub) unregister(cl *client) {
	h.mu.Lock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
	count := len(h.clients)
	h.mu.Unlock()
	_ = cl.conn.Close()
	h.logger.Debug("realtime client disconnected", zap.Int("clients", count))
}

func (h *Hub) readLoop(cl *client) {
	defer h.unregister(cl)
	cl.conn.SetReadLimit(maxInboundSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case payload, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
