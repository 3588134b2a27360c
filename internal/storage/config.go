package storage

import "os"

// DynamoMode represents the DynamoDB connection mode
type DynamoMode string

const (
	DynamoModeLocal DynamoMode = "local"
	DynamoModeAWS   DynamoMode = "aws"
	DynamoModeNone  DynamoMode = "none"
)

// DynamoConfig holds DynamoDB configuration
type DynamoConfig struct {
	Mode              DynamoMode
	Endpoint          string // for local mode
	Region            string
	AgentsTable       string
	CallRecordsTable  string
	IdleSessionsTable string
	TalkTimeTable     string
}

// LoadDynamoConfig loads DynamoDB config from environment
func LoadDynamoConfig() DynamoConfig {
	mode := DynamoMode(getEnv("DYNAMO_MODE", "none"))
	if mode != DynamoModeLocal && mode != DynamoModeAWS {
		mode = DynamoModeNone
	}

	return DynamoConfig{
		Mode:              mode,
		Endpoint:          getEnv("DYNAMO_ENDPOINT", "http://localhost:8000"),
		Region:            getEnv("DYNAMO_REGION", "eu-central-1"),
		AgentsTable:       getEnv("DYNAMO_AGENTS_TABLE", "callwatch-agents"),
		CallRecordsTable:  getEnv("DYNAMO_CALL_RECORDS_TABLE", "callwatch-call-records"),
		IdleSessionsTable: getEnv("DYNAMO_IDLE_SESSIONS_TABLE", "callwatch-idle-sessions"),
		TalkTimeTable:     getEnv("DYNAMO_TALK_TIME_TABLE", "callwatch-daily-talk-time"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
