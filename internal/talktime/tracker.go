package talktime

import (
	"sync"
	"time"

	"github.com/callwatch/backend/internal/types"
)

// Tracker accumulates per-agent daily talk time in the reporting
// timezone. The reporting device pushes its own cumulative total on
// every call end, so totals are last-write-wins rather than summed
// server-side; only the call count is incremented here.
type Tracker struct {
	entries map[string]*types.DailyTalkTime // agentCode -> today's entry
	loc     *time.Location
	mu      sync.RWMutex
	now     func() time.Time
}

// NewTracker creates a tracker reporting in loc
func NewTracker(loc *time.Location) *Tracker {
	if loc == nil {
		loc = time.Local
	}
	return &Tracker{
		entries: make(map[string]*types.DailyTalkTime),
		loc:     loc,
		now:     time.Now,
	}
}

// DateKey formats t as the reporting-day key
func (tr *Tracker) DateKey(t time.Time) string {
	return t.In(tr.loc).Format("2006-01-02")
}

// Today returns the current reporting-day key
func (tr *Tracker) Today() string {
	return tr.DateKey(tr.now())
}

// RecordCallEnd stores the device-reported cumulative total for today
// and bumps the call count. Returns a copy of the stored entry.
func (tr *Tracker) RecordCallEnd(code, name string, totalSeconds int) types.DailyTalkTime {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	today := tr.DateKey(tr.now())
	entry, ok := tr.entries[code]
	if !ok || entry.Date != today {
		entry = &types.DailyTalkTime{
			AgentCode: code,
			Date:      today,
		}
		tr.entries[code] = entry
	}
	if name != "" {
		entry.AgentName = name
	}
	entry.TotalTalkTimeSeconds = totalSeconds
	entry.CallCount++
	return *entry
}

// Get returns today's entry for code
func (tr *Tracker) Get(code string) (types.DailyTalkTime, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	entry, ok := tr.entries[code]
	if !ok || entry.Date != tr.DateKey(tr.now()) {
		return types.DailyTalkTime{}, false
	}
	return *entry, true
}

// All returns copies of today's entries
func (tr *Tracker) All() []types.DailyTalkTime {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	today := tr.DateKey(tr.now())
	entries := make([]types.DailyTalkTime, 0, len(tr.entries))
	for _, entry := range tr.entries {
		if entry.Date != today {
			continue
		}
		entries = append(entries, *entry)
	}
	return entries
}

// Rollover drops entries from previous reporting days, returning how
// many were removed. Safe to call every minute; it only acts when the
// stored date differs from today.
func (tr *Tracker) Rollover() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	today := tr.DateKey(tr.now())
	removed := 0
	for code, entry := range tr.entries {
		if entry.Date != today {
			delete(tr.entries, code)
			removed++
		}
	}
	return removed
}

// Clear drops all entries, returning how many were removed
func (tr *Tracker) Clear() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	n := len(tr.entries)
	tr.entries = make(map[string]*types.DailyTalkTime)
	return n
}
