package engine

import (
	"time"

	"github.com/callwatch/backend/internal/metrics"
	"github.com/callwatch/backend/internal/presence"
	"github.com/callwatch/backend/internal/queue"
	"github.com/callwatch/backend/internal/registry"
	"github.com/callwatch/backend/internal/storage"
	"github.com/callwatch/backend/internal/talktime"
	"github.com/callwatch/backend/internal/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RecordQueue buffers analytics records for at-least-once delivery
type RecordQueue interface {
	Enqueue(rec queue.Record)
}

// Publisher pushes the read model to dashboard observers
type Publisher interface {
	PublishDashboard()
	PublishStatus(agentCode string, status types.PresenceStatus)
}

// Engine is the per-agent session state machine. All mutation happens on
// the agent hub's run loop, so the idleStart map needs no lock.
// Collaborator writes are fire-and-forget and never block a transition.
type Engine struct {
	registry  *registry.Registry
	presence  *presence.Store
	talktime  *talktime.Tracker
	queue     RecordQueue
	store     storage.Store
	publisher Publisher

	idleStart     map[string]time.Time // agentCode -> open idle interval start
	idleThreshold time.Duration

	logger zerolog.Logger
	now    func() time.Time
}

// New creates an Engine
func New(
	reg *registry.Registry,
	pres *presence.Store,
	talk *talktime.Tracker,
	q RecordQueue,
	store storage.Store,
	pub Publisher,
	idleThreshold time.Duration,
	logger zerolog.Logger,
) *Engine {
	return &Engine{
		registry:      reg,
		presence:      pres,
		talktime:      talk,
		queue:         q,
		store:         store,
		publisher:     pub,
		idleStart:     make(map[string]time.Time),
		idleThreshold: idleThreshold,
		logger:        logger.With().Str("component", "engine").Logger(),
		now:           time.Now,
	}
}

// ProcessOnline handles agent_online. Idempotent against client retries.
func (e *Engine) ProcessOnline(ev *types.AgentOnline, socketID string) {
	created := e.registry.Upsert(ev.AgentCode, ev.AgentName)
	e.registry.SetStatus(ev.AgentCode, types.StatusOnline)

	e.presence.Update(ev.AgentCode, func(f *types.PresenceFact) {
		f.Status = types.StatusOnline
		f.SocketID = socketID
		f.CurrentCall = nil
	})

	// An open idle marker survives reconnect chatter; a fresh session
	// starts without one (idle tracking begins at the first call end)

	e.logger.Info().
		Str("agent_code", ev.AgentCode).
		Str("agent_name", ev.AgentName).
		Bool("created", created).
		Msg("agent online")

	metrics.Get().RecordEventProcessed()
	e.publisher.PublishStatus(ev.AgentCode, types.StatusOnline)
	e.publisher.PublishDashboard()
}

// ProcessOffline handles agent_offline
func (e *Engine) ProcessOffline(ev *types.AgentOffline) {
	if _, known := e.registry.Get(ev.AgentCode); !known {
		e.logger.Debug().Str("agent_code", ev.AgentCode).Msg("offline for unknown agent ignored")
		return
	}

	e.goOffline(ev.AgentCode)
	metrics.Get().RecordEventProcessed()
}

// ProcessDisconnect handles a dropped socket; equivalent to an explicit
// offline, and the only cleanup path for agents that just vanish
func (e *Engine) ProcessDisconnect(agentCode string) {
	if agentCode == "" {
		return
	}
	e.goOffline(agentCode)
}

func (e *Engine) goOffline(code string) {
	e.registry.SetStatus(code, types.StatusOffline)
	e.presence.Update(code, func(f *types.PresenceFact) {
		f.Status = types.StatusOffline
		f.SocketID = ""
		f.CurrentCall = nil
	})

	// Idle tracking ends silently; sessions only close on call_started
	delete(e.idleStart, code)

	e.logger.Info().Str("agent_code", code).Msg("agent offline")

	e.publisher.PublishStatus(code, types.StatusOffline)
	e.publisher.PublishDashboard()
}

// ProcessCallStarted handles call_started, closing any open idle interval
func (e *Engine) ProcessCallStarted(ev *types.CallStarted) {
	now := e.now()
	e.registry.Upsert(ev.AgentCode, ev.AgentName)

	if start, open := e.idleStart[ev.AgentCode]; open {
		e.closeIdleInterval(ev.AgentCode, start, now)
		delete(e.idleStart, ev.AgentCode)
	}

	// A new call always replaces any stale ref; one active call per agent
	ref := &types.CallRef{
		PhoneNumber: ev.PhoneNumber,
		ContactName: ev.ContactName,
		CallType:    types.NormalizeCallType(ev.CallType),
		StartTime:   now,
	}

	e.registry.SetStatus(ev.AgentCode, types.StatusOnCall)
	e.presence.Update(ev.AgentCode, func(f *types.PresenceFact) {
		f.Status = types.StatusOnCall
		f.CurrentCall = ref
	})

	e.logger.Info().
		Str("agent_code", ev.AgentCode).
		Str("call_type", string(ref.CallType)).
		Msg("call started")

	metrics.Get().RecordEventProcessed()
	e.publisher.PublishStatus(ev.AgentCode, types.StatusOnCall)
	e.publisher.PublishDashboard()
}

// ProcessCallEnded handles call_ended. A missing call ref is tolerated:
// the talk time and history still land, the status still settles online.
func (e *Engine) ProcessCallEnded(ev *types.CallEnded) {
	now := e.now()
	agent, known := e.registry.Get(ev.AgentCode)
	name := agent.Name
	if !known {
		e.registry.Upsert(ev.AgentCode, "")
	}

	fact, _ := e.presence.Get(ev.AgentCode)
	if fact.CurrentCall == nil {
		e.logger.Debug().
			Str("agent_code", ev.AgentCode).
			Msg("call_ended without active call, treating as replay")
	}

	// Device-reported cumulative total wins
	entry := e.talktime.RecordCallEnd(ev.AgentCode, name, ev.TodayTotalTalkTime)
	e.persistTalkTime(entry)

	e.queue.Enqueue(queue.Record{
		Kind:       queue.KindCallRecord,
		CallRecord: e.buildCallRecord(ev, name, now),
	})

	e.registry.SetStatus(ev.AgentCode, types.StatusOnline)
	e.presence.Update(ev.AgentCode, func(f *types.PresenceFact) {
		f.Status = types.StatusOnline
		f.CurrentCall = nil
		end := now
		f.LastCallEnd = &end
	})

	// The idle interval opens here and closes at the next call_started
	e.idleStart[ev.AgentCode] = now

	e.logger.Info().
		Str("agent_code", ev.AgentCode).
		Int("talk_duration", ev.CallData.TalkDuration).
		Int("today_total", ev.TodayTotalTalkTime).
		Msg("call ended")

	metrics.Get().RecordEventProcessed()
	e.publisher.PublishStatus(ev.AgentCode, types.StatusOnline)
	e.publisher.PublishDashboard()
}

// closeIdleInterval emits an IdleSession when the gap is long enough to
// be signal rather than noise
func (e *Engine) closeIdleInterval(code string, start, end time.Time) {
	duration := end.Sub(start)
	if duration <= e.idleThreshold {
		return
	}

	agent, _ := e.registry.Get(code)
	seconds := int(duration / time.Second)

	e.queue.Enqueue(queue.Record{
		Kind: queue.KindIdleSession,
		IdleSession: &types.IdleSessionRecord{
			AgentCode:       code,
			AgentName:       agent.Name,
			StartTime:       start.Format(time.RFC3339),
			EndTime:         end.Format(time.RFC3339),
			DurationSeconds: seconds,
			Date:            e.talktime.DateKey(start),
		},
	})

	metrics.Get().RecordIdleSession()
	e.logger.Debug().
		Str("agent_code", code).
		Int("duration_seconds", seconds).
		Msg("idle session recorded")
}

// buildCallRecord assembles the durable call history record. The CallID
// is derived fresh per event; replays from the delivery queue reuse the
// same record and stay idempotent on the (DateKey, CallID) key.
func (e *Engine) buildCallRecord(ev *types.CallEnded, name string, now time.Time) *types.CallRecord {
	start := ev.CallData.StartTime
	endTime := ev.CallData.EndTime
	if endTime == "" {
		endTime = now.Format(time.RFC3339)
	}
	dateKey := ev.CallData.CallDate
	if dateKey == "" {
		dateKey = e.talktime.DateKey(now)
	}

	return &types.CallRecord{
		DateKey:       dateKey,
		CallID:        uuid.New().String(),
		AgentCode:     ev.AgentCode,
		AgentName:     name,
		PhoneNumber:   ev.CallData.PhoneNumber,
		ContactName:   ev.CallData.ContactName,
		CallType:      string(types.NormalizeCallType(ev.CallData.CallType)),
		TalkDuration:  ev.CallData.TalkDuration,
		TotalDuration: ev.CallData.TotalDuration,
		StartTime:     start,
		EndTime:       endTime,
	}
}

// persistTalkTime writes the daily aggregate asynchronously. Last write
// wins downstream too, so a lost write costs nothing until midnight.
func (e *Engine) persistTalkTime(entry types.DailyTalkTime) {
	if e.store == nil {
		return
	}

	record := types.DailyTalkTimeRecord{
		AgentCode:            entry.AgentCode,
		Date:                 entry.Date,
		AgentName:            entry.AgentName,
		TotalTalkTimeSeconds: entry.TotalTalkTimeSeconds,
		CallCount:            entry.CallCount,
	}

	go func() {
		if err := e.store.SaveDailyTalkTime(record); err != nil {
			e.logger.Warn().Err(err).
				Str("agent_code", record.AgentCode).
				Msg("failed to persist daily talk time")
		}
	}()
}

// OpenIdleSince reports the open idle marker for an agent, if any
func (e *Engine) OpenIdleSince(code string) (time.Time, bool) {
	t, ok := e.idleStart[code]
	return t, ok
}

// Reset clears the engine's soft state (idle markers)
func (e *Engine) Reset() {
	e.idleStart = make(map[string]time.Time)
}
