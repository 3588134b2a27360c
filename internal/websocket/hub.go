package websocket

import (
	"encoding/json"
	"sync"

	"github.com/callwatch/backend/internal/ingestion"
	"github.com/callwatch/backend/internal/metrics"
	"github.com/callwatch/backend/internal/types"
	"github.com/rs/zerolog"
)

// SnapshotProvider builds the current dashboard read model so a fresh
// observer sees state immediately instead of waiting for the next event
type SnapshotProvider interface {
	Snapshot() types.DashboardUpdate
}

// Hub maintains the set of active observer clients and broadcasts
// dashboard messages to them
type Hub struct {
	// Registered observer clients
	clients map[*Client]bool

	// Outbound messages for all observers
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex to protect clients map
	mu sync.RWMutex

	// Snapshot source for newly connected observers
	snapshots SnapshotProvider

	// Manual reminder requests from observers
	invoker ingestion.ReminderInvoker

	logger zerolog.Logger
}

// NewHub creates a new Hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger,
	}
}

// SetSnapshotProvider wires the snapshot source. Must be called before Run.
func (h *Hub) SetSnapshotProvider(p SnapshotProvider) {
	h.snapshots = p
}

// SetReminderInvoker wires the manual reminder path. Must be called before Run.
func (h *Hub) SetReminderInvoker(inv ingestion.ReminderInvoker) {
	h.invoker = inv
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	m := metrics.Get()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			m.RecordWebSocketConnect()
			h.logger.Info().
				Str("client_id", client.id).
				Int("total_clients", h.ClientCount()).
				Msg("observer connected")

			h.sendSnapshot(client)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
				m.RecordWebSocketDisconnect()
				h.logger.Info().
					Str("client_id", client.id).
					Int("total_clients", len(h.clients)).
					Msg("observer disconnected")
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.broadcastRaw(message)
		}
	}
}

// Broadcast sends a message to all connected observers
func (h *Hub) Broadcast(message []byte) {
	h.broadcast <- message
}

// ClientCount returns the number of connected observers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// sendSnapshot delivers the current dashboard to a single observer
func (h *Hub) sendSnapshot(client *Client) {
	if h.snapshots == nil {
		return
	}

	data, err := json.Marshal(h.snapshots.Snapshot())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal initial snapshot")
		return
	}
	client.safeSend(data)
}

// broadcastRaw sends a raw message to all observers. Takes the write
// lock because slow clients are evicted inline.
func (h *Hub) broadcastRaw(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			// Client's send buffer is full, close and remove it
			client.Close()
			delete(h.clients, client)
			h.logger.Warn().
				Str("client_id", client.id).
				Msg("observer send buffer full, closing connection")
		}
	}
}
