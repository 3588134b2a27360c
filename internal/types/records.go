package types

// CallRecord represents a completed call for DynamoDB persistence
type CallRecord struct {
	DateKey       string `json:"dateKey" dynamodbav:"DateKey"` // YYYY-MM-DD (partition key)
	CallID        string `json:"callId" dynamodbav:"CallID"`   // sort key, stable across replays
	AgentCode     string `json:"agentCode" dynamodbav:"AgentCode"`
	AgentName     string `json:"agentName" dynamodbav:"AgentName"`
	PhoneNumber   string `json:"phoneNumber" dynamodbav:"PhoneNumber"`
	ContactName   string `json:"contactName,omitempty" dynamodbav:"ContactName"`
	CallType      string `json:"callType" dynamodbav:"CallType"`
	TalkDuration  int    `json:"talkDuration" dynamodbav:"TalkDuration"`   // seconds
	TotalDuration int    `json:"totalDuration" dynamodbav:"TotalDuration"` // seconds
	StartTime     string `json:"startTime" dynamodbav:"StartTime"`         // RFC3339
	EndTime       string `json:"endTime" dynamodbav:"EndTime"`             // RFC3339
}

// IdleSessionRecord represents an idle session for DynamoDB persistence
type IdleSessionRecord struct {
	AgentCode       string `json:"agentCode" dynamodbav:"AgentCode"` // partition key
	StartTime       string `json:"startTime" dynamodbav:"StartTime"` // RFC3339 (sort key)
	AgentName       string `json:"agentName" dynamodbav:"AgentName"`
	EndTime         string `json:"endTime" dynamodbav:"EndTime"` // RFC3339
	DurationSeconds int    `json:"durationSeconds" dynamodbav:"DurationSeconds"`
	Date            string `json:"date" dynamodbav:"Date"` // YYYY-MM-DD
}

// DailyTalkTimeRecord represents a daily talk time aggregate for DynamoDB
type DailyTalkTimeRecord struct {
	AgentCode            string `json:"agentCode" dynamodbav:"AgentCode"` // partition key
	Date                 string `json:"date" dynamodbav:"Date"`           // YYYY-MM-DD (sort key)
	AgentName            string `json:"agentName" dynamodbav:"AgentName"`
	TotalTalkTimeSeconds int    `json:"totalTalkTimeSeconds" dynamodbav:"TotalTalkTimeSeconds"`
	CallCount            int    `json:"callCount" dynamodbav:"CallCount"`
}

// AgentRecord represents a registry entry for DynamoDB persistence
type AgentRecord struct {
	AgentCode       string `json:"agentCode" dynamodbav:"AgentCode"` // partition key
	AgentName       string `json:"agentName" dynamodbav:"AgentName"`
	Status          string `json:"status" dynamodbav:"Status"`
	ReminderEnabled bool   `json:"reminderEnabled" dynamodbav:"ReminderEnabled"`
	ReminderMinutes int    `json:"reminderMinutes" dynamodbav:"ReminderMinutes"`
	Removed         bool   `json:"removed" dynamodbav:"Removed"`
	CreatedAt       string `json:"createdAt" dynamodbav:"CreatedAt"` // RFC3339
	UpdatedAt       string `json:"updatedAt" dynamodbav:"UpdatedAt"` // RFC3339
}
