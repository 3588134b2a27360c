package api

import (
	"encoding/json"
	"net/http"

	"github.com/callwatch/backend/internal/presence"
	"github.com/callwatch/backend/internal/registry"
	"github.com/callwatch/backend/internal/storage"
	"github.com/callwatch/backend/internal/talktime"
	"github.com/rs/zerolog"
)

// SoftStateResetter clears transient session state
type SoftStateResetter interface {
	Reset()
}

// AdminHandler handles in-memory resets and storage truncation
type AdminHandler struct {
	registry  *registry.Registry
	presence  *presence.Store
	talktime  *talktime.Tracker
	engine    SoftStateResetter
	store     storage.Store
	publisher Publisher
	logger    zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(reg *registry.Registry, pres *presence.Store, talk *talktime.Tracker, engine SoftStateResetter, store storage.Store, pub Publisher, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		registry:  reg,
		presence:  pres,
		talktime:  talk,
		engine:    engine,
		store:     store,
		publisher: pub,
		logger:    logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Reset handles POST /api/admin/reset. Clears all in-memory state;
// persisted history stays untouched.
func (h *AdminHandler) Reset(w http.ResponseWriter, r *http.Request) {
	agents := h.registry.Clear()
	facts := h.presence.Clear()
	talk := h.talktime.Clear()
	h.engine.Reset()

	h.logger.Info().
		Int("agents", agents).
		Int("presence_facts", facts).
		Int("talk_entries", talk).
		Msg("in-memory state reset")

	h.publisher.PublishDashboard()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{
		"agents":        agents,
		"presenceFacts": facts,
		"talkEntries":   talk,
	})
}

// Truncate handles POST /api/admin/truncate. Deletes every row from
// every storage table.
func (h *AdminHandler) Truncate(w http.ResponseWriter, r *http.Request) {
	if err := h.store.TruncateAll(); err != nil {
		h.logger.Error().Err(err).Msg("failed to truncate storage")
		http.Error(w, "failed to truncate storage", http.StatusInternalServerError)
		return
	}

	h.logger.Info().Msg("storage truncated")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "truncated"})
}
