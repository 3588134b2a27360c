package reminder

import (
	"context"
	"time"

	"github.com/callwatch/backend/internal/metrics"
	"github.com/callwatch/backend/internal/presence"
	"github.com/callwatch/backend/internal/registry"
	"github.com/callwatch/backend/internal/types"
	"github.com/rs/zerolog"
)

// AgentSender delivers a payload to a connected agent's device. The
// returned bool reports whether the agent had a live connection.
type AgentSender interface {
	SendToAgent(agentCode string, payload interface{}) bool
}

// Scheduler fires idle reminders to agent devices. A reminder is due
// when an agent has been idle for a whole multiple of their configured
// interval; each such slot fires at most once even though the scan runs
// far more often than the interval.
type Scheduler struct {
	registry *registry.Registry
	presence *presence.Store
	sender   AgentSender
	marks    *markSet
	tick     time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewScheduler creates a Scheduler scanning every tick
func NewScheduler(reg *registry.Registry, pres *presence.Store, sender AgentSender, tick time.Duration, markCapacity int, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		registry: reg,
		presence: pres,
		sender:   sender,
		marks:    newMarkSet(markCapacity),
		tick:     tick,
		logger:   logger.With().Str("component", "reminder").Logger(),
		now:      time.Now,
	}
}

// Start begins the reminder scan loop
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.logger.Info().Dur("tick", s.tick).Msg("reminder scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("reminder scheduler stopped")
			return
		case <-ticker.C:
			s.Scan()
		}
	}
}

// Scan checks every agent once and fires any due reminders
func (s *Scheduler) Scan() {
	now := s.now()
	fired := 0

	for _, agent := range s.registry.All() {
		if s.scanAgent(agent, now) {
			fired++
		}
	}

	if fired > 0 {
		s.logger.Debug().Int("fired", fired).Msg("reminders fired")
	}
}

func (s *Scheduler) scanAgent(agent types.Agent, now time.Time) bool {
	if !agent.Reminder.Enabled || agent.Reminder.IntervalMinutes <= 0 {
		return false
	}
	if agent.Status != types.StatusOnline {
		return false
	}

	fact, ok := s.presence.Get(agent.Code)
	if !ok || fact.Status != types.StatusOnline || fact.LastCallEnd == nil {
		return false
	}

	minutesIdle := int(now.Sub(*fact.LastCallEnd) / time.Minute)
	interval := agent.Reminder.IntervalMinutes
	if minutesIdle < interval || minutesIdle%interval != 0 {
		return false
	}

	key := markKey(agent.Code, *fact.LastCallEnd, minutesIdle)
	if s.marks.Seen(key) {
		return false
	}

	// Mark before delivery: a lost send is dropped, not retried, so a
	// slow agent connection cannot double-fire a slot
	s.marks.Add(key)

	delivered := s.sender.SendToAgent(agent.Code, types.ReminderTrigger{
		Type:            "reminder_trigger",
		AgentCode:       agent.Code,
		AgentName:       agent.Name,
		Message:         reminderMessage(minutesIdle),
		IdleTime:        minutesIdle,
		IntervalMinutes: interval,
	})

	metrics.Get().RecordReminderFired()
	s.logger.Info().
		Str("agent_code", agent.Code).
		Int("minutes_idle", minutesIdle).
		Bool("delivered", delivered).
		Msg("reminder fired")
	return true
}

// TriggerManual fires a reminder immediately, bypassing the eligibility
// and dedup checks. Returns whether the agent had a live connection.
func (s *Scheduler) TriggerManual(agentCode, agentName string) bool {
	if agentName == "" {
		if agent, ok := s.registry.Get(agentCode); ok {
			agentName = agent.Name
		}
	}

	minutesIdle := 0
	if fact, ok := s.presence.Get(agentCode); ok && fact.LastCallEnd != nil {
		minutesIdle = int(s.now().Sub(*fact.LastCallEnd) / time.Minute)
	}

	delivered := s.sender.SendToAgent(agentCode, types.ReminderTrigger{
		Type:      "reminder_trigger",
		AgentCode: agentCode,
		AgentName: agentName,
		Message:   "Manual reminder from your supervisor",
		IdleTime:  minutesIdle,
		IsManual:  true,
	})

	metrics.Get().RecordManualReminder()
	s.logger.Info().
		Str("agent_code", agentCode).
		Bool("delivered", delivered).
		Msg("manual reminder sent")
	return delivered
}

// MarkCount returns the number of stored dedup marks
func (s *Scheduler) MarkCount() int {
	return s.marks.Len()
}

func reminderMessage(minutesIdle int) string {
	if minutesIdle >= 60 {
		return "You have been idle for over an hour. Time to make a call!"
	}
	return "You have been idle for a while. Time to make a call!"
}
