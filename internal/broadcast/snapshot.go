package broadcast

import (
	"sort"
	"time"

	"github.com/callwatch/backend/internal/types"
)

// BuildSnapshot recomputes the full dashboard read model from the
// current facts. It is pure: every update rebuilds from scratch, so a
// dropped broadcast is healed by the next one. An agent on a call never
// appears in the idle list. Presence facts count only for agents on the
// roster, so a removed agent drops out of the live lists immediately
// even if its fact has not expired yet.
func BuildSnapshot(agents []types.Agent, facts []types.PresenceFact, talk []types.DailyTalkTime, now time.Time) types.DashboardUpdate {
	names := make(map[string]string, len(agents))
	for _, agent := range agents {
		names[agent.Code] = agent.Name
	}

	onCall := make([]types.OnCallEntry, 0)
	idle := make([]types.IdleEntry, 0)

	for _, fact := range facts {
		name, rostered := names[fact.AgentCode]
		if !rostered {
			continue
		}

		switch {
		case fact.Status == types.StatusOnCall && fact.CurrentCall != nil:
			onCall = append(onCall, types.OnCallEntry{
				AgentCode:   fact.AgentCode,
				AgentName:   name,
				PhoneNumber: fact.CurrentCall.PhoneNumber,
				ContactName: fact.CurrentCall.ContactName,
				CallType:    fact.CurrentCall.CallType,
				StartTime:   fact.CurrentCall.StartTime,
			})

		case fact.Status == types.StatusOnline && fact.LastCallEnd != nil:
			idle = append(idle, types.IdleEntry{
				AgentCode:   fact.AgentCode,
				AgentName:   name,
				LastCallEnd: *fact.LastCallEnd,
				IdleSeconds: int(now.Sub(*fact.LastCallEnd) / time.Second),
			})
		}
	}

	talkEntries := make([]types.TalkTimeEntry, 0, len(talk))
	for _, entry := range talk {
		name := entry.AgentName
		if registered, ok := names[entry.AgentCode]; ok && registered != "" {
			name = registered
		}
		talkEntries = append(talkEntries, types.TalkTimeEntry{
			AgentCode:            entry.AgentCode,
			AgentName:            name,
			TotalTalkTimeSeconds: entry.TotalTalkTimeSeconds,
			CallCount:            entry.CallCount,
		})
	}

	sort.Slice(talkEntries, func(i, j int) bool {
		if talkEntries[i].TotalTalkTimeSeconds != talkEntries[j].TotalTalkTimeSeconds {
			return talkEntries[i].TotalTalkTimeSeconds > talkEntries[j].TotalTalkTimeSeconds
		}
		return talkEntries[i].AgentCode < talkEntries[j].AgentCode
	})
	sort.Slice(onCall, func(i, j int) bool {
		return onCall[i].StartTime.Before(onCall[j].StartTime)
	})
	sort.Slice(idle, func(i, j int) bool {
		if idle[i].IdleSeconds != idle[j].IdleSeconds {
			return idle[i].IdleSeconds > idle[j].IdleSeconds
		}
		return idle[i].AgentCode < idle[j].AgentCode
	})

	return types.DashboardUpdate{
		Type:           "dashboard_update",
		AgentsTalkTime: talkEntries,
		AgentsOnCall:   onCall,
		AgentsIdleTime: idle,
		LastUpdated:    now,
	}
}
