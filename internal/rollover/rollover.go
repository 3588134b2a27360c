package rollover

import (
	"context"
	"time"

	"github.com/callwatch/backend/internal/presence"
	"github.com/callwatch/backend/internal/talktime"
	"github.com/rs/zerolog"
)

// Publisher refreshes the dashboard after state changes
type Publisher interface {
	PublishDashboard()
}

// Watcher resets daily talk time at midnight in the reporting timezone
// and sweeps expired presence facts. It checks every minute; the reset
// itself keys off the date so a missed tick just delays it a minute.
type Watcher struct {
	talktime  *talktime.Tracker
	presence  *presence.Store
	publisher Publisher
	interval  time.Duration
	logger    zerolog.Logger
}

// NewWatcher creates a Watcher
func NewWatcher(talk *talktime.Tracker, pres *presence.Store, pub Publisher, logger zerolog.Logger) *Watcher {
	return &Watcher{
		talktime:  talk,
		presence:  pres,
		publisher: pub,
		interval:  time.Minute,
		logger:    logger.With().Str("component", "rollover").Logger(),
	}
}

// Start begins the rollover loop
func (w *Watcher) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	lastDate := w.talktime.Today()
	w.logger.Info().Str("date", lastDate).Msg("rollover watcher started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("rollover watcher stopped")
			return
		case <-ticker.C:
			if swept := w.presence.Sweep(); swept > 0 {
				w.logger.Debug().Int("swept", swept).Msg("expired presence facts removed")
			}

			today := w.talktime.Today()
			if today == lastDate {
				continue
			}

			removed := w.talktime.Rollover()
			w.logger.Info().
				Str("from", lastDate).
				Str("to", today).
				Int("entries_reset", removed).
				Msg("daily talk time rolled over")
			lastDate = today

			w.publisher.PublishDashboard()
		}
	}
}
