package broadcast

import (
	"encoding/json"
	"time"

	"github.com/callwatch/backend/internal/metrics"
	"github.com/callwatch/backend/internal/presence"
	"github.com/callwatch/backend/internal/registry"
	"github.com/callwatch/backend/internal/talktime"
	"github.com/callwatch/backend/internal/types"
	"github.com/rs/zerolog"
)

// ObserverHub fans a message out to every connected dashboard
type ObserverHub interface {
	Broadcast(message []byte)
}

// Broadcaster pushes dashboard snapshots and status deltas to observers
type Broadcaster struct {
	hub      ObserverHub
	registry *registry.Registry
	presence *presence.Store
	talktime *talktime.Tracker
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates a Broadcaster
func New(hub ObserverHub, reg *registry.Registry, pres *presence.Store, talk *talktime.Tracker, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		hub:      hub,
		registry: reg,
		presence: pres,
		talktime: talk,
		logger:   logger.With().Str("component", "broadcast").Logger(),
		now:      time.Now,
	}
}

// Snapshot builds the current dashboard read model
func (b *Broadcaster) Snapshot() types.DashboardUpdate {
	return BuildSnapshot(b.registry.All(), b.presence.All(), b.talktime.All(), b.now())
}

// PublishDashboard recomputes and broadcasts the full dashboard
func (b *Broadcaster) PublishDashboard() {
	update := b.Snapshot()

	data, err := json.Marshal(update)
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to marshal dashboard update")
		return
	}

	b.hub.Broadcast(data)
	m := metrics.Get()
	m.RecordDashboardBroadcast()
	m.UpdateAgentStats(b.registry.All())
}

// PublishStatus broadcasts a single agent's status change
func (b *Broadcaster) PublishStatus(agentCode string, status types.PresenceStatus) {
	data, err := json.Marshal(types.AgentStatusMessage{
		Type:      "agent_status",
		Status:    status,
		AgentCode: agentCode,
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to marshal status message")
		return
	}
	b.hub.Broadcast(data)
}
