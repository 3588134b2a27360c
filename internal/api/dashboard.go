package api

import (
	"encoding/json"
	"net/http"

	"github.com/callwatch/backend/internal/queue"
	"github.com/callwatch/backend/internal/types"
	"github.com/rs/zerolog"
)

// SnapshotProvider builds the current dashboard read model
type SnapshotProvider interface {
	Snapshot() types.DashboardUpdate
}

// DashboardHandler serves the dashboard snapshot and queue status over REST
type DashboardHandler struct {
	snapshots SnapshotProvider
	queue     *queue.DeliveryQueue
	logger    zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(snapshots SnapshotProvider, q *queue.DeliveryQueue, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		snapshots: snapshots,
		queue:     q,
		logger:    logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// GetDashboard handles GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.snapshots.Snapshot())
}

// GetQueueStatus handles GET /api/queue/status
func (h *DashboardHandler) GetQueueStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.queue.GetStatus())
}
