package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/callwatch/backend/internal/storage"
	"github.com/callwatch/backend/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type stubStore struct {
	storage.NoopStore
	calls    []types.CallRecord
	idles    []types.IdleSessionRecord
	talk     []types.DailyTalkTimeRecord
	failWith error
}

func (s *stubStore) GetCallRecords(dateKey string) ([]types.CallRecord, error) {
	return s.calls, s.failWith
}

func (s *stubStore) GetAgentCallsByDate(agentCode, date string) ([]types.CallRecord, error) {
	return s.calls, s.failWith
}

func (s *stubStore) GetIdleSessions(agentCode string) ([]types.IdleSessionRecord, error) {
	return s.idles, s.failWith
}

func (s *stubStore) GetDailyTalkTime(agentCode string) ([]types.DailyTalkTimeRecord, error) {
	return s.talk, s.failWith
}

func newHistoryRouter(store storage.Store) http.Handler {
	h := NewHistoryHandler(store, zerolog.Nop())

	r := chi.NewRouter()
	r.Get("/api/history/calls", h.GetCalls)
	r.Get("/api/agents/{agentCode}/calls", h.GetAgentCalls)
	r.Get("/api/agents/{agentCode}/idle-sessions", h.GetIdleSessions)
	r.Get("/api/agents/{agentCode}/talktime", h.GetTalkTime)
	return r
}

func TestGetCallsRequiresDate(t *testing.T) {
	router := newHistoryRouter(&stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/history/calls", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without date, got %d", rec.Code)
	}
}

func TestGetCallsReturnsRecords(t *testing.T) {
	store := &stubStore{calls: []types.CallRecord{{CallID: "c1", AgentCode: "A1"}}}
	router := newHistoryRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/api/history/calls?date=2025-06-02", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var records []types.CallRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(records) != 1 || records[0].CallID != "c1" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestGetIdleSessionsEmptyIsArray(t *testing.T) {
	router := newHistoryRouter(&stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/agents/A1/idle-sessions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("expected empty JSON array, got %q", body)
	}
}

func TestGetTalkTimeStoreError(t *testing.T) {
	router := newHistoryRouter(&stubStore{failWith: errors.New("boom")})

	req := httptest.NewRequest(http.MethodGet, "/api/agents/A1/talktime", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 on store error, got %d", rec.Code)
	}
}
