package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/your-org/fdalert/internal/auth"
	"github.com/your-org/fdalert/internal/observability"
	"github.com/your-org/fdalert/pkg/dto"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Client represents a connected WebSocket client.
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	owner    uuid.UUID
	cameraID string // optional filter
}

type envelope struct {
	owner    uuid.UUID
	cameraID string
	data     []byte
}

// Hub maintains active WebSocket clients and broadcasts live alert events.
// Clients only see events for their own owner.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub event loop until ctx is done. Call this in a goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.dropLocked(client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			observability.WSConnections.Inc()
			slog.Debug("ws client connected", "owner", client.owner, "filter", client.cameraID)

		case client := <-h.unregister:
			h.mu.Lock()
			h.dropLocked(client)
			h.mu.Unlock()
			slog.Debug("ws client disconnected", "owner", client.owner)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if client.owner != msg.owner {
					continue
				}
				if client.cameraID != "" && msg.cameraID != "" && client.cameraID != msg.cameraID {
					continue
				}

				select {
				case client.send <- msg.data:
				default:
					// Client buffer full, disconnect
					h.dropLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) dropLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	observability.WSConnections.Dec()
}

// BroadcastEvent sends an event to the connected clients of its owner.
func (h *Hub) BroadcastEvent(event *dto.WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshal ws event", "error", err)
		return
	}
	h.broadcast <- envelope{owner: event.Owner, cameraID: event.CameraID, data: data}
}

// Forward adapts BroadcastEvent to the queue's alert handler signature.
func (h *Hub) Forward(_ context.Context, event *dto.WSEvent) error {
	h.BroadcastEvent(event)
	return nil
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWS handles WebSocket upgrade requests.
func (h *Hub) HandleWS(c *gin.Context) {
	owner := auth.Owner(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "error", err)
		return
	}

	client := &Client{
		conn:     conn,
		send:     make(chan []byte, 64),
		owner:    owner,
		cameraID: c.Query("camera_id"),
	}

	h.register <- client

	go client.writePump()
	go client.readPump(h)
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		// We don't process incoming messages from clients.
		// This loop exists to detect disconnection.
	}
}
