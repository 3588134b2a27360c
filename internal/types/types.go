package types

import "time"

// PresenceStatus represents the current presence of an agent
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
	StatusOnCall  PresenceStatus = "on_call"
	StatusRemoved PresenceStatus = "removed"
)

// CallType classifies the direction of a call
type CallType string

const (
	CallIncoming CallType = "incoming"
	CallOutgoing CallType = "outgoing"
	CallUnknown  CallType = "unknown"
)

// NormalizeCallType maps arbitrary client input onto a known call type
func NormalizeCallType(s string) CallType {
	switch CallType(s) {
	case CallIncoming, CallOutgoing:
		return CallType(s)
	default:
		return CallUnknown
	}
}

// ReminderConfig holds per-agent idle reminder settings
type ReminderConfig struct {
	Enabled         bool `json:"enabled"`
	IntervalMinutes int  `json:"intervalMinutes"`
}

// Agent is the authoritative record for a known agent
type Agent struct {
	Code      string         `json:"agentCode"`
	Name      string         `json:"agentName"`
	Status    PresenceStatus `json:"status"`
	Reminder  ReminderConfig `json:"reminderConfig"`
	Removed   bool           `json:"removed,omitempty"` // tombstone, history preserved
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// CallRef describes the single active call of an agent
type CallRef struct {
	PhoneNumber string    `json:"phoneNumber"`
	ContactName string    `json:"contactName,omitempty"`
	CallType    CallType  `json:"callType"`
	StartTime   time.Time `json:"startTime"`
}

// PresenceFact holds the ephemeral per-agent facts mutated by the engine
type PresenceFact struct {
	AgentCode   string         `json:"agentCode"`
	Status      PresenceStatus `json:"status"`
	CurrentCall *CallRef       `json:"currentCall,omitempty"`
	LastCallEnd *time.Time     `json:"lastCallEnd,omitempty"`
	SocketID    string         `json:"socketId,omitempty"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// IdleSession is an immutable historical idle interval
type IdleSession struct {
	AgentCode       string    `json:"agentCode"`
	AgentName       string    `json:"agentName"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	DurationSeconds int       `json:"durationSeconds"`
	Date            string    `json:"date"` // YYYY-MM-DD in the reporting timezone
}

// DailyTalkTime is the per-agent, per-day talk time aggregate.
// TotalTalkTimeSeconds is the client-reported cumulative total for the
// day (last write wins), not a server-side sum of call durations.
type DailyTalkTime struct {
	AgentCode            string `json:"agentCode"`
	AgentName            string `json:"agentName"`
	Date                 string `json:"date"` // YYYY-MM-DD in the reporting timezone
	TotalTalkTimeSeconds int    `json:"totalTalkTimeSeconds"`
	CallCount            int    `json:"callCount"`
}
