package ingestion

import "github.com/callwatch/backend/internal/types"

// EventProcessor consumes agent lifecycle events from any transport.
// Implementations are driven from a single hub loop and may assume
// calls are never concurrent with each other.
type EventProcessor interface {
	ProcessOnline(ev *types.AgentOnline, socketID string)
	ProcessOffline(ev *types.AgentOffline)
	ProcessCallStarted(ev *types.CallStarted)
	ProcessCallEnded(ev *types.CallEnded)

	// ProcessDisconnect handles a dropped connection for an agent that
	// may never have sent an explicit agent_offline
	ProcessDisconnect(agentCode string)
}

// ReminderInvoker handles operator-initiated reminder requests
type ReminderInvoker interface {
	// TriggerManual fires an immediate reminder at the agent,
	// returning whether it reached a live connection
	TriggerManual(agentCode, agentName string) bool
}
