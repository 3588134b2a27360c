package types

import "time"

// AgentOnline is sent by an agent's device when it comes online
type AgentOnline struct {
	Type      string `json:"type"` // "agent_online"
	AgentCode string `json:"agentCode"`
	AgentName string `json:"agentName"`
}

// AgentOffline is sent by an agent's device when it goes offline
type AgentOffline struct {
	Type      string `json:"type"` // "agent_offline"
	AgentCode string `json:"agentCode"`
}

// CallStarted is sent when a call begins on the agent's device
type CallStarted struct {
	Type        string `json:"type"` // "call_started"
	AgentCode   string `json:"agentCode"`
	AgentName   string `json:"agentName"`
	PhoneNumber string `json:"phoneNumber"`
	ContactName string `json:"contactName,omitempty"`
	CallType    string `json:"callType"`
}

// CallData carries the completed call details reported by the device
type CallData struct {
	PhoneNumber   string `json:"phoneNumber"`
	ContactName   string `json:"contactName,omitempty"`
	CallType      string `json:"callType"`
	TalkDuration  int    `json:"talkDuration"`  // seconds
	TotalDuration int    `json:"totalDuration"` // seconds
	CallDate      string `json:"callDate,omitempty"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
}

// CallEnded is sent when a call finishes. TodayTotalTalkTime is the
// device's authoritative cumulative talk time for the day.
type CallEnded struct {
	Type               string   `json:"type"` // "call_ended"
	AgentCode          string   `json:"agentCode"`
	CallData           CallData `json:"callData"`
	TodayTotalTalkTime int      `json:"todayTotalTalkTime"` // seconds
}

// ManualReminder is an operator-initiated reminder request
type ManualReminder struct {
	Type      string `json:"type"` // "send_manual_reminder"
	AgentCode string `json:"agentCode"`
	AgentName string `json:"agentName"`
}

// AgentStatusMessage notifies observers of a single agent's status change
type AgentStatusMessage struct {
	Type      string         `json:"type"` // "agent_status"
	Status    PresenceStatus `json:"status"`
	AgentCode string         `json:"agentCode"`
}

// TalkTimeEntry is one row of the dashboard talk-time list
type TalkTimeEntry struct {
	AgentCode            string `json:"agentCode"`
	AgentName            string `json:"agentName"`
	TotalTalkTimeSeconds int    `json:"totalTalkTimeSeconds"`
	CallCount            int    `json:"callCount"`
}

// OnCallEntry is one row of the dashboard on-call list
type OnCallEntry struct {
	AgentCode   string    `json:"agentCode"`
	AgentName   string    `json:"agentName"`
	PhoneNumber string    `json:"phoneNumber"`
	ContactName string    `json:"contactName,omitempty"`
	CallType    CallType  `json:"callType"`
	StartTime   time.Time `json:"startTime"`
}

// IdleEntry is one row of the dashboard idle list
type IdleEntry struct {
	AgentCode   string    `json:"agentCode"`
	AgentName   string    `json:"agentName"`
	LastCallEnd time.Time `json:"lastCallEnd"`
	IdleSeconds int       `json:"idleSeconds"`
}

// DashboardUpdate is the full read-model snapshot pushed to observers
type DashboardUpdate struct {
	Type           string          `json:"type"` // "dashboard_update"
	AgentsTalkTime []TalkTimeEntry `json:"agentsTalkTime"`
	AgentsOnCall   []OnCallEntry   `json:"agentsOnCall"`
	AgentsIdleTime []IdleEntry     `json:"agentsIdleTime"`
	LastUpdated    time.Time       `json:"lastUpdated"`
}

// ReminderTrigger is delivered to an agent's connection when a reminder fires
type ReminderTrigger struct {
	Type            string `json:"type"` // "reminder_trigger"
	AgentCode       string `json:"agentCode"`
	AgentName       string `json:"agentName"`
	Message         string `json:"message"`
	IdleTime        int    `json:"idleTime"` // minutes
	IntervalMinutes int    `json:"intervalMinutes"`
	IsManual        bool   `json:"isManual,omitempty"`
}

// ManualReminderResponse acknowledges a manual reminder to its requester
type ManualReminderResponse struct {
	Type      string    `json:"type"` // "manual_reminder_response"
	Success   bool      `json:"success"`
	AgentCode string    `json:"agentCode"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorMessage is returned to the originating connection only
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}
