package notify

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"weathertracker/internal/weather"
	"weathertracker/pkg/logger"
)

// Conn is the subset of a websocket connection the hub needs.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Hub is a registry of connected websocket clients. Every freshly fetched
// observation is pushed to all of them as a JSON message. Clients whose
// writes fail are dropped.
type Hub struct {
	mu      sync.Mutex
	clients map[Conn]struct{}
	log     *zap.SugaredLogger
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[Conn]struct{}),
		log:     logger.Get().With("component", "notify"),
	}
}

// Register adds a client connection.
func (h *Hub) Register(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = struct{}{}
}

// Unregister removes a client connection.
func (h *Hub) Unregister(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}

// BroadcastObservation implements weather.Broadcaster.
func (h *Hub) BroadcastObservation(obs weather.Observation) {
	payload, err := json.Marshal(obs)
	if err != nil {
		h.log.Errorw("marshal observation for broadcast", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.log.Warnw("websocket write failed, dropping client", "error", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}
