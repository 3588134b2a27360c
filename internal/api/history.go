package api

import (
	"encoding/json"
	"net/http"

	"github.com/callwatch/backend/internal/storage"
	"github.com/callwatch/backend/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// HistoryHandler provides REST endpoints for persisted history data
type HistoryHandler struct {
	store  storage.Store
	logger zerolog.Logger
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(store storage.Store, logger zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{
		store:  store,
		logger: logger.With().Str("component", "history_handler").Logger(),
	}
}

// GetCalls returns all call records for a date
// GET /api/history/calls?date=YYYY-MM-DD
func (h *HistoryHandler) GetCalls(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		http.Error(w, "date query parameter is required (YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	records, err := h.store.GetCallRecords(date)
	if err != nil {
		h.logger.Error().Err(err).Str("date", date).Msg("failed to get call records")
		http.Error(w, "failed to retrieve calls", http.StatusInternalServerError)
		return
	}

	if records == nil {
		records = []types.CallRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

// GetAgentCalls returns call records for one agent on a specific date
// GET /api/agents/{agentCode}/calls?date=YYYY-MM-DD
func (h *HistoryHandler) GetAgentCalls(w http.ResponseWriter, r *http.Request) {
	agentCode := chi.URLParam(r, "agentCode")
	if agentCode == "" {
		http.Error(w, "agentCode is required", http.StatusBadRequest)
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		http.Error(w, "date query parameter is required (YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	records, err := h.store.GetAgentCallsByDate(agentCode, date)
	if err != nil {
		h.logger.Error().Err(err).
			Str("agent_code", agentCode).
			Str("date", date).
			Msg("failed to get agent calls")
		http.Error(w, "failed to retrieve calls", http.StatusInternalServerError)
		return
	}

	if records == nil {
		records = []types.CallRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

// GetIdleSessions returns recorded idle sessions for one agent
// GET /api/agents/{agentCode}/idle-sessions
func (h *HistoryHandler) GetIdleSessions(w http.ResponseWriter, r *http.Request) {
	agentCode := chi.URLParam(r, "agentCode")
	if agentCode == "" {
		http.Error(w, "agentCode is required", http.StatusBadRequest)
		return
	}

	sessions, err := h.store.GetIdleSessions(agentCode)
	if err != nil {
		h.logger.Error().Err(err).Str("agent_code", agentCode).Msg("failed to get idle sessions")
		http.Error(w, "failed to retrieve idle sessions", http.StatusInternalServerError)
		return
	}

	if sessions == nil {
		sessions = []types.IdleSessionRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessions)
}

// GetTalkTime returns daily talk time aggregates for one agent
// GET /api/agents/{agentCode}/talktime
func (h *HistoryHandler) GetTalkTime(w http.ResponseWriter, r *http.Request) {
	agentCode := chi.URLParam(r, "agentCode")
	if agentCode == "" {
		http.Error(w, "agentCode is required", http.StatusBadRequest)
		return
	}

	entries, err := h.store.GetDailyTalkTime(agentCode)
	if err != nil {
		h.logger.Error().Err(err).Str("agent_code", agentCode).Msg("failed to get daily talk time")
		http.Error(w, "failed to retrieve talk time", http.StatusInternalServerError)
		return
	}

	if entries == nil {
		entries = []types.DailyTalkTimeRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}
