package websocket

import (
	"encoding/json"
	"sync"

	"github.com/callwatch/backend/internal/ingestion"
	"github.com/callwatch/backend/internal/metrics"
	"github.com/callwatch/backend/internal/types"
	"github.com/rs/zerolog"
)

// AgentHub maintains the set of active agent device connections. All
// session events funnel through its single Run loop, which gives the
// processor a strict one-at-a-time ordering without locks.
type AgentHub struct {
	// Registered agent clients
	agents map[string]*AgentClient // agentCode -> client

	// Register requests from agent clients
	register chan *AgentClient

	// Unregister requests from agent clients
	unregister chan *AgentClient

	// Typed inbound event channels
	online      chan *onlineEvent
	offline     chan *types.AgentOffline
	callStarted chan *types.CallStarted
	callEnded   chan *types.CallEnded

	// Mutex to protect agents map
	mu sync.RWMutex

	// Event processor for session state transitions
	processor ingestion.EventProcessor

	logger zerolog.Logger
}

// onlineEvent carries an agent_online together with the connection that
// sent it, so registration and processing happen in one loop iteration
type onlineEvent struct {
	ev     *types.AgentOnline
	client *AgentClient
}

// NewAgentHub creates a new AgentHub
func NewAgentHub(processor ingestion.EventProcessor, logger zerolog.Logger) *AgentHub {
	return &AgentHub{
		agents:      make(map[string]*AgentClient),
		register:    make(chan *AgentClient),
		unregister:  make(chan *AgentClient),
		online:      make(chan *onlineEvent, 100),
		offline:     make(chan *types.AgentOffline, 100),
		callStarted: make(chan *types.CallStarted, 500),
		callEnded:   make(chan *types.CallEnded, 500),
		processor:   processor,
		logger:      logger,
	}
}

// Run starts the hub's main loop
func (h *AgentHub) Run() {
	m := metrics.Get()

	for {
		select {
		case ev := <-h.online:
			h.mu.Lock()
			// Replace any existing connection for the same agent
			if existing, ok := h.agents[ev.ev.AgentCode]; ok && existing != ev.client {
				existing.Close()
			}
			h.agents[ev.ev.AgentCode] = ev.client
			total := len(h.agents)
			h.mu.Unlock()

			m.RecordAgentConnect()
			h.logger.Debug().
				Str("agent_code", ev.ev.AgentCode).
				Int("total_agents", total).
				Msg("agent connection registered")

			h.processor.ProcessOnline(ev.ev, ev.client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			code := client.agentCode
			current, registered := h.agents[code]
			if registered && current == client {
				delete(h.agents, code)
			}
			h.mu.Unlock()

			client.Close()

			if registered && current == client {
				m.RecordAgentDisconnect()
				h.logger.Debug().
					Str("agent_code", code).
					Int("total_agents", h.AgentCount()).
					Msg("agent disconnected")
				h.processor.ProcessDisconnect(code)
			}

		case ev := <-h.offline:
			h.processor.ProcessOffline(ev)

		case ev := <-h.callStarted:
			h.processor.ProcessCallStarted(ev)

		case ev := <-h.callEnded:
			h.processor.ProcessCallEnded(ev)
		}
	}
}

// AgentCount returns the number of connected agents
func (h *AgentHub) AgentCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.agents)
}

// IsConnected reports whether the agent has a live connection
func (h *AgentHub) IsConnected(agentCode string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.agents[agentCode]
	return ok
}

// SendToAgent delivers a payload to a specific agent's device
func (h *AgentHub) SendToAgent(agentCode string, payload interface{}) bool {
	h.mu.RLock()
	client, ok := h.agents[agentCode]
	h.mu.RUnlock()

	if !ok {
		return false
	}

	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal agent payload")
		return false
	}
	return client.safeSend(data)
}
