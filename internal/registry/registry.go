package registry

import (
	"sync"
	"time"

	"github.com/callwatch/backend/internal/types"
	"github.com/rs/zerolog"
)

const defaultReminderMinutes = 15

// Persister is the external persistence hook for registry entries.
// Writes are fire-and-forget; a failed write never blocks the registry.
type Persister interface {
	SaveAgent(record types.AgentRecord) error
}

// Registry is the authoritative in-memory set of known agents
type Registry struct {
	agents    map[string]*types.Agent // agentCode -> agent
	mu        sync.RWMutex
	persister Persister
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates a new Registry. persister may be nil.
func New(persister Persister, logger zerolog.Logger) *Registry {
	return &Registry{
		agents:    make(map[string]*types.Agent),
		persister: persister,
		logger:    logger.With().Str("component", "registry").Logger(),
		now:       time.Now,
	}
}

// Seed loads previously persisted agents, typically at startup
func (r *Registry) Seed(records []types.AgentRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range records {
		if rec.AgentCode == "" {
			continue
		}
		created, _ := time.Parse(time.RFC3339, rec.CreatedAt)
		updated, _ := time.Parse(time.RFC3339, rec.UpdatedAt)
		r.agents[rec.AgentCode] = &types.Agent{
			Code:   rec.AgentCode,
			Name:   rec.AgentName,
			Status: types.StatusOffline,
			Reminder: types.ReminderConfig{
				Enabled:         rec.ReminderEnabled,
				IntervalMinutes: rec.ReminderMinutes,
			},
			Removed:   rec.Removed,
			CreatedAt: created,
			UpdatedAt: updated,
		}
	}
}

// Upsert creates the agent on first sight or refreshes its name.
// Returns true when a new agent was created. Idempotent.
func (r *Registry) Upsert(code, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	existing, ok := r.agents[code]
	if !ok {
		r.agents[code] = &types.Agent{
			Code:   code,
			Name:   name,
			Status: types.StatusOffline,
			Reminder: types.ReminderConfig{
				Enabled:         true,
				IntervalMinutes: defaultReminderMinutes,
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		r.persistLocked(code)
		return true
	}

	// A returning agent clears any tombstone
	if existing.Name != name && name != "" || existing.Removed {
		if name != "" {
			existing.Name = name
		}
		existing.Removed = false
		existing.UpdatedAt = now
		r.persistLocked(code)
	}
	return false
}

// SetStatus updates the stored status of a known agent
func (r *Registry) SetStatus(code string, status types.PresenceStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.agents[code]
	if !ok {
		return
	}
	agent.Status = status
	agent.UpdatedAt = r.now()
	r.persistLocked(code)
}

// SetReminderConfig updates an agent's reminder settings
func (r *Registry) SetReminderConfig(code string, intervalMinutes int, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.agents[code]
	if !ok {
		return false
	}
	if intervalMinutes > 0 {
		agent.Reminder.IntervalMinutes = intervalMinutes
	}
	agent.Reminder.Enabled = enabled
	agent.UpdatedAt = r.now()
	r.persistLocked(code)
	return true
}

// Remove tombstones an agent. The record stays so history keeps resolving.
func (r *Registry) Remove(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.agents[code]
	if !ok || agent.Removed {
		return false
	}
	agent.Removed = true
	agent.Status = types.StatusRemoved
	agent.UpdatedAt = r.now()
	r.persistLocked(code)
	return true
}

// Get returns a copy of the agent
func (r *Registry) Get(code string) (types.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, ok := r.agents[code]
	if !ok {
		return types.Agent{}, false
	}
	return *agent, true
}

// All returns copies of all non-tombstoned agents
func (r *Registry) All() []types.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]types.Agent, 0, len(r.agents))
	for _, agent := range r.agents {
		if agent.Removed {
			continue
		}
		agents = append(agents, *agent)
	}
	return agents
}

// Count returns the number of non-tombstoned agents
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, agent := range r.agents {
		if !agent.Removed {
			n++
		}
	}
	return n
}

// Clear drops all agents, returning how many were removed
func (r *Registry) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.agents)
	r.agents = make(map[string]*types.Agent)
	return n
}

// persistLocked kicks off an async save of the agent. Caller holds the lock.
func (r *Registry) persistLocked(code string) {
	if r.persister == nil {
		return
	}

	agent := r.agents[code]
	record := types.AgentRecord{
		AgentCode:       agent.Code,
		AgentName:       agent.Name,
		Status:          string(agent.Status),
		ReminderEnabled: agent.Reminder.Enabled,
		ReminderMinutes: agent.Reminder.IntervalMinutes,
		Removed:         agent.Removed,
		CreatedAt:       agent.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       agent.UpdatedAt.Format(time.RFC3339),
	}

	go func() {
		if err := r.persister.SaveAgent(record); err != nil {
			r.logger.Warn().Err(err).
				Str("agent_code", record.AgentCode).
				Msg("failed to persist agent")
		}
	}()
}
