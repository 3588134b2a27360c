package storage

import "github.com/callwatch/backend/internal/types"

// Store defines the storage interface
type Store interface {
	SaveAgent(record types.AgentRecord) error
	ListAgents() ([]types.AgentRecord, error)

	SaveCallRecord(record types.CallRecord) error
	GetCallRecords(dateKey string) ([]types.CallRecord, error)
	GetAgentCallsByDate(agentCode, date string) ([]types.CallRecord, error)

	SaveIdleSession(record types.IdleSessionRecord) error
	GetIdleSessions(agentCode string) ([]types.IdleSessionRecord, error)

	SaveDailyTalkTime(record types.DailyTalkTimeRecord) error
	GetDailyTalkTime(agentCode string) ([]types.DailyTalkTimeRecord, error)

	TruncateAll() error
}

// NoopStore is a no-op implementation when DynamoDB is disabled
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (s *NoopStore) SaveAgent(_ types.AgentRecord) error          { return nil }
func (s *NoopStore) ListAgents() ([]types.AgentRecord, error)     { return nil, nil }
func (s *NoopStore) SaveCallRecord(_ types.CallRecord) error      { return nil }
func (s *NoopStore) GetCallRecords(_ string) ([]types.CallRecord, error) { return nil, nil }
func (s *NoopStore) GetAgentCallsByDate(_, _ string) ([]types.CallRecord, error) {
	return nil, nil
}
func (s *NoopStore) SaveIdleSession(_ types.IdleSessionRecord) error { return nil }
func (s *NoopStore) GetIdleSessions(_ string) ([]types.IdleSessionRecord, error) {
	return nil, nil
}
func (s *NoopStore) SaveDailyTalkTime(_ types.DailyTalkTimeRecord) error { return nil }
func (s *NoopStore) GetDailyTalkTime(_ string) ([]types.DailyTalkTimeRecord, error) {
	return nil, nil
}
func (s *NoopStore) TruncateAll() error { return nil }
