package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/callwatch/backend/internal/metrics"
	"github.com/callwatch/backend/internal/types"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the agent
	agentWriteWait = 10 * time.Second

	// Time allowed to read the next pong message from the agent
	agentPongWait = 30 * time.Second

	// Send pings to agent with this period (must be less than pongWait)
	agentPingPeriod = 20 * time.Second

	// Maximum message size allowed from agent
	agentMaxMessageSize = 4096
)

// AgentClient represents a WebSocket connection from an agent's device
type AgentClient struct {
	// Unique connection ID
	id string

	// Agent code, set once the device sends agent_online
	agentCode string

	// The hub this client belongs to
	hub *AgentHub

	// The websocket connection
	conn *websocket.Conn

	// Buffered channel of outbound messages
	send chan []byte

	// Logger
	logger zerolog.Logger

	// done channel to signal client shutdown
	done chan struct{}

	// closeOnce ensures send channel is closed only once
	closeOnce sync.Once
}

// NewAgentClient creates a new AgentClient
func NewAgentClient(hub *AgentHub, conn *websocket.Conn, logger zerolog.Logger) *AgentClient {
	connID := uuid.New().String()
	return &AgentClient{
		id:     connID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 64),
		logger: logger.With().Str("conn_id", connID).Logger(),
		done:   make(chan struct{}),
	}
}

// readPump pumps messages from the websocket connection to the hub
func (c *AgentClient) readPump() {
	defer func() {
		close(c.done)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(agentMaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(agentPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(agentPongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug().Err(err).Str("agent_code", c.agentCode).Msg("agent websocket read error")
			}
			break
		}

		c.handleMessage(message)
	}
}

// handleMessage processes incoming messages from the agent's device
func (c *AgentClient) handleMessage(message []byte) {
	m := metrics.Get()
	m.RecordWebSocketMessage()
	m.RecordEventReceived()

	var msgType struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &msgType); err != nil {
		c.logger.Debug().Err(err).Msg("failed to parse message type")
		m.RecordEventError()
		c.sendError("invalid message")
		return
	}

	switch msgType.Type {
	case "agent_online":
		var ev types.AgentOnline
		if err := json.Unmarshal(message, &ev); err != nil {
			c.logger.Debug().Err(err).Msg("failed to parse agent_online message")
			m.RecordEventError()
			c.sendError("invalid agent_online message")
			return
		}
		if ev.AgentCode == "" {
			m.RecordEventError()
			c.sendError("agentCode is required")
			return
		}
		c.agentCode = ev.AgentCode
		c.logger = c.logger.With().Str("agent_code", c.agentCode).Logger()
		c.hub.online <- &onlineEvent{ev: &ev, client: c}

	case "agent_offline":
		var ev types.AgentOffline
		if err := json.Unmarshal(message, &ev); err != nil {
			c.logger.Debug().Err(err).Msg("failed to parse agent_offline message")
			m.RecordEventError()
			c.sendError("invalid agent_offline message")
			return
		}
		if ev.AgentCode == "" {
			m.RecordEventError()
			c.sendError("agentCode is required")
			return
		}
		c.hub.offline <- &ev

	case "call_started":
		var ev types.CallStarted
		if err := json.Unmarshal(message, &ev); err != nil {
			c.logger.Debug().Err(err).Msg("failed to parse call_started message")
			m.RecordEventError()
			c.sendError("invalid call_started message")
			return
		}
		if ev.AgentCode == "" {
			m.RecordEventError()
			c.sendError("agentCode is required")
			return
		}
		c.hub.callStarted <- &ev

	case "call_ended":
		var ev types.CallEnded
		if err := json.Unmarshal(message, &ev); err != nil {
			c.logger.Debug().Err(err).Msg("failed to parse call_ended message")
			m.RecordEventError()
			c.sendError("invalid call_ended message")
			return
		}
		if ev.AgentCode == "" {
			m.RecordEventError()
			c.sendError("agentCode is required")
			return
		}
		c.hub.callEnded <- &ev

	default:
		c.logger.Debug().Str("type", msgType.Type).Msg("unknown message type")
		c.sendError("unknown message type: " + msgType.Type)
	}
}

// sendError replies to the originating device only; the event never
// reaches the hub
func (c *AgentClient) sendError(message string) {
	metrics.Get().RecordWebSocketError()
	data, err := json.Marshal(types.ErrorMessage{Type: "error", Message: message})
	if err != nil {
		return
	}
	c.safeSend(data)
}

// writePump pumps messages from the hub to the websocket connection
func (c *AgentClient) writePump() {
	ticker := time.NewTicker(agentPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(agentWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(agentWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start starts the client's read and write pumps
func (c *AgentClient) Start() {
	go c.writePump()
	go c.readPump()
}

// Close safely closes the client's send channel (idempotent)
func (c *AgentClient) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// safeSend attempts to send a message, recovering from panic if channel is closed
func (c *AgentClient) safeSend(data []byte) (sent bool) {
	defer func() {
		if r := recover(); r != nil {
			sent = false
		}
	}()

	select {
	case c.send <- data:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}
