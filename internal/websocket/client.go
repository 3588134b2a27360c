package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/callwatch/backend/internal/config"
	"github.com/callwatch/backend/internal/metrics"
	"github.com/callwatch/backend/internal/types"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Client is a middleman between an observer websocket connection and the hub
type Client struct {
	// Unique client ID
	id string

	// The hub this client belongs to
	hub *Hub

	// The websocket connection
	conn *websocket.Conn

	// Buffered channel of outbound messages
	send chan []byte

	// Configuration
	config *config.Config

	// Logger
	logger zerolog.Logger

	// closeOnce ensures send channel is closed only once
	closeOnce sync.Once
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, cfg *config.Config, logger zerolog.Logger) *Client {
	clientID := uuid.New().String()
	return &Client{
		id:     clientID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		config: cfg,
		logger: logger.With().Str("client_id", clientID).Logger(),
	}
}

// readPump pumps messages from the websocket connection to the hub
//
// The application runs readPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error().Err(err).Msg("websocket read error")
			}
			break
		}
		c.handleMessage(message)
	}
}

// handleMessage processes inbound observer messages. Observers are
// mostly read-only; the one command they may send is a manual reminder.
func (c *Client) handleMessage(message []byte) {
	metrics.Get().RecordWebSocketMessage()

	var msgType struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &msgType); err != nil {
		c.logger.Debug().Err(err).Msg("failed to parse message type")
		c.sendError("invalid message")
		return
	}

	switch msgType.Type {
	case "send_manual_reminder":
		var req types.ManualReminder
		if err := json.Unmarshal(message, &req); err != nil {
			c.logger.Debug().Err(err).Msg("failed to parse manual reminder request")
			c.sendError("invalid manual reminder request")
			return
		}
		if req.AgentCode == "" {
			c.sendError("agentCode is required")
			return
		}
		if c.hub.invoker == nil {
			c.sendError("reminders unavailable")
			return
		}

		delivered := c.hub.invoker.TriggerManual(req.AgentCode, req.AgentName)
		c.reply(types.ManualReminderResponse{
			Type:      "manual_reminder_response",
			Success:   delivered,
			AgentCode: req.AgentCode,
			Timestamp: time.Now(),
		})

	default:
		c.logger.Debug().Str("type", msgType.Type).Msg("unknown message type")
		c.sendError("unknown message type: " + msgType.Type)
	}
}

// reply sends a payload to this observer only
func (c *Client) reply(payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to marshal reply")
		return
	}
	c.safeSend(data)
}

func (c *Client) sendError(message string) {
	metrics.Get().RecordWebSocketError()
	c.reply(types.ErrorMessage{Type: "error", Message: message})
}

// writePump pumps messages from the hub to the websocket connection
//
// A goroutine running writePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start starts the client's read and write pumps
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// Close safely closes the client's send channel (idempotent)
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// safeSend attempts to send a message, recovering if the channel closed
func (c *Client) safeSend(data []byte) (sent bool) {
	defer func() {
		if r := recover(); r != nil {
			sent = false
		}
	}()

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}
