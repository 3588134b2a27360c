package api

import (
	"encoding/json"
	"net/http"

	"github.com/callwatch/backend/internal/ingestion"
	"github.com/callwatch/backend/internal/presence"
	"github.com/callwatch/backend/internal/registry"
	"github.com/callwatch/backend/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Publisher refreshes observers after roster mutations
type Publisher interface {
	PublishDashboard()
}

// AgentsHandler provides REST endpoints for roster management
type AgentsHandler struct {
	registry  *registry.Registry
	presence  *presence.Store
	publisher Publisher
	invoker   ingestion.ReminderInvoker
	logger    zerolog.Logger
}

// NewAgentsHandler creates a new AgentsHandler
func NewAgentsHandler(reg *registry.Registry, pres *presence.Store, pub Publisher, invoker ingestion.ReminderInvoker, logger zerolog.Logger) *AgentsHandler {
	return &AgentsHandler{
		registry:  reg,
		presence:  pres,
		publisher: pub,
		invoker:   invoker,
		logger:    logger.With().Str("component", "agents_handler").Logger(),
	}
}

// ListAgents handles GET /api/agents
func (h *AgentsHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents := h.registry.All()
	if agents == nil {
		agents = []types.Agent{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(agents)
}

// UpsertAgent handles POST /api/agents
func (h *AgentsHandler) UpsertAgent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgentCode string `json:"agentCode"`
		AgentName string `json:"agentName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.AgentCode == "" {
		http.Error(w, "agentCode is required", http.StatusBadRequest)
		return
	}

	created := h.registry.Upsert(req.AgentCode, req.AgentName)
	h.logger.Info().
		Str("agent_code", req.AgentCode).
		Bool("created", created).
		Msg("agent upserted")

	h.publisher.PublishDashboard()

	agent, _ := h.registry.Get(req.AgentCode)
	w.Header().Set("Content-Type", "application/json")
	if created {
		w.WriteHeader(http.StatusCreated)
	}
	json.NewEncoder(w).Encode(agent)
}

// RemoveAgent handles DELETE /api/agents/{agentCode}
func (h *AgentsHandler) RemoveAgent(w http.ResponseWriter, r *http.Request) {
	agentCode := chi.URLParam(r, "agentCode")
	if agentCode == "" {
		http.Error(w, "agentCode is required", http.StatusBadRequest)
		return
	}

	if !h.registry.Remove(agentCode) {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}

	// The fact would otherwise keep the agent in the live lists until
	// its TTL runs out
	if _, ok := h.presence.Get(agentCode); ok {
		h.presence.Update(agentCode, func(f *types.PresenceFact) {
			f.Status = types.StatusRemoved
			f.CurrentCall = nil
			f.LastCallEnd = nil
		})
	}

	h.logger.Info().Str("agent_code", agentCode).Msg("agent removed")
	h.publisher.PublishDashboard()

	w.WriteHeader(http.StatusNoContent)
}

// UpdateReminderConfig handles PUT /api/agents/{agentCode}/reminder
func (h *AgentsHandler) UpdateReminderConfig(w http.ResponseWriter, r *http.Request) {
	agentCode := chi.URLParam(r, "agentCode")
	if agentCode == "" {
		http.Error(w, "agentCode is required", http.StatusBadRequest)
		return
	}

	var req struct {
		IntervalMinutes int  `json:"intervalMinutes"`
		Enabled         bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.IntervalMinutes < 0 {
		http.Error(w, "intervalMinutes must not be negative", http.StatusBadRequest)
		return
	}

	if !h.registry.SetReminderConfig(agentCode, req.IntervalMinutes, req.Enabled) {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}

	h.logger.Info().
		Str("agent_code", agentCode).
		Int("interval_minutes", req.IntervalMinutes).
		Bool("enabled", req.Enabled).
		Msg("reminder config updated")

	agent, _ := h.registry.Get(agentCode)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(agent)
}

// SendReminder handles POST /api/agents/{agentCode}/reminder/send
func (h *AgentsHandler) SendReminder(w http.ResponseWriter, r *http.Request) {
	agentCode := chi.URLParam(r, "agentCode")
	if agentCode == "" {
		http.Error(w, "agentCode is required", http.StatusBadRequest)
		return
	}
	if _, ok := h.registry.Get(agentCode); !ok {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}

	delivered := h.invoker.TriggerManual(agentCode, "")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"agentCode": agentCode,
		"delivered": delivered,
	})
}
