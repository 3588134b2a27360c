package reminder

import (
	"fmt"
	"testing"
	"time"

	"github.com/callwatch/backend/internal/presence"
	"github.com/callwatch/backend/internal/registry"
	"github.com/callwatch/backend/internal/types"
	"github.com/rs/zerolog"
)

type captureSender struct {
	sent      []types.ReminderTrigger
	connected bool
}

func (c *captureSender) SendToAgent(agentCode string, payload interface{}) bool {
	if trigger, ok := payload.(types.ReminderTrigger); ok {
		c.sent = append(c.sent, trigger)
	}
	return c.connected
}

type schedFixture struct {
	sched    *Scheduler
	registry *registry.Registry
	presence *presence.Store
	sender   *captureSender
	clock    time.Time
}

func newSchedFixture(t *testing.T) *schedFixture {
	t.Helper()

	f := &schedFixture{
		registry: registry.New(nil, zerolog.Nop()),
		presence: presence.NewStore(0),
		sender:   &captureSender{connected: true},
		clock:    time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
	}
	f.sched = NewScheduler(f.registry, f.presence, f.sender, time.Minute, 100, zerolog.Nop())
	f.sched.now = func() time.Time { return f.clock }
	return f
}

// idleAgent registers an online agent whose last call ended at the
// fixture's current clock
func (f *schedFixture) idleAgent(code string, intervalMinutes int) {
	f.registry.Upsert(code, "Agent "+code)
	f.registry.SetReminderConfig(code, intervalMinutes, true)
	f.registry.SetStatus(code, types.StatusOnline)

	end := f.clock
	f.presence.Update(code, func(fact *types.PresenceFact) {
		fact.Status = types.StatusOnline
		fact.LastCallEnd = &end
	})
}

func TestReminderFiresOnIntervalMultiplesOnly(t *testing.T) {
	f := newSchedFixture(t)
	f.idleAgent("A1", 5)

	// Scan every minute for 11 minutes; only minutes 5 and 10 may fire
	for i := 0; i < 11; i++ {
		f.clock = f.clock.Add(time.Minute)
		f.sched.Scan()
	}

	if len(f.sender.sent) != 2 {
		t.Fatalf("expected 2 reminders over 11 minutes, got %d", len(f.sender.sent))
	}
	if f.sender.sent[0].IdleTime != 5 || f.sender.sent[1].IdleTime != 10 {
		t.Errorf("expected fires at 5 and 10 minutes, got %d and %d",
			f.sender.sent[0].IdleTime, f.sender.sent[1].IdleTime)
	}
}

func TestRepeatedScansDoNotRefire(t *testing.T) {
	f := newSchedFixture(t)
	f.idleAgent("A1", 5)

	f.clock = f.clock.Add(5 * time.Minute)
	f.sched.Scan()
	f.sched.Scan()
	f.sched.Scan()

	if len(f.sender.sent) != 1 {
		t.Errorf("expected slot to fire once across repeated scans, got %d", len(f.sender.sent))
	}
}

func TestNoReminderBeforeInterval(t *testing.T) {
	f := newSchedFixture(t)
	f.idleAgent("A1", 15)

	f.clock = f.clock.Add(14 * time.Minute)
	f.sched.Scan()

	if len(f.sender.sent) != 0 {
		t.Errorf("expected no reminder under the interval, got %d", len(f.sender.sent))
	}
}

func TestDisabledAgentNeverFires(t *testing.T) {
	f := newSchedFixture(t)
	f.idleAgent("A1", 5)
	f.registry.SetReminderConfig("A1", 5, false)

	f.clock = f.clock.Add(5 * time.Minute)
	f.sched.Scan()

	if len(f.sender.sent) != 0 {
		t.Errorf("expected no reminder for disabled agent, got %d", len(f.sender.sent))
	}
}

func TestOnCallAgentNeverFires(t *testing.T) {
	f := newSchedFixture(t)
	f.idleAgent("A1", 5)
	f.registry.SetStatus("A1", types.StatusOnCall)

	f.clock = f.clock.Add(5 * time.Minute)
	f.sched.Scan()

	if len(f.sender.sent) != 0 {
		t.Errorf("expected no reminder while on call, got %d", len(f.sender.sent))
	}
}

func TestAgentWithoutCallHistoryNeverFires(t *testing.T) {
	f := newSchedFixture(t)
	f.registry.Upsert("A1", "Alice")
	f.registry.SetStatus("A1", types.StatusOnline)
	f.presence.Update("A1", func(fact *types.PresenceFact) {
		fact.Status = types.StatusOnline
	})

	f.clock = f.clock.Add(30 * time.Minute)
	f.sched.Scan()

	if len(f.sender.sent) != 0 {
		t.Errorf("expected no reminder without a last call end, got %d", len(f.sender.sent))
	}
}

func TestNewIdleIntervalResetsDedup(t *testing.T) {
	f := newSchedFixture(t)
	f.idleAgent("A1", 5)

	f.clock = f.clock.Add(5 * time.Minute)
	f.sched.Scan()

	// A new call ends: same wall-clock multiple, different interval
	end := f.clock
	f.presence.Update("A1", func(fact *types.PresenceFact) {
		fact.LastCallEnd = &end
	})

	f.clock = f.clock.Add(5 * time.Minute)
	f.sched.Scan()

	if len(f.sender.sent) != 2 {
		t.Errorf("expected a fresh interval to fire again, got %d reminders", len(f.sender.sent))
	}
}

func TestManualReminderBypassesDedup(t *testing.T) {
	f := newSchedFixture(t)
	f.idleAgent("A1", 5)

	f.clock = f.clock.Add(5 * time.Minute)
	f.sched.Scan()

	// Manual fires regardless of the just-fired slot, repeatedly
	if !f.sched.TriggerManual("A1", "") {
		t.Error("expected manual reminder delivered")
	}
	if !f.sched.TriggerManual("A1", "") {
		t.Error("expected repeated manual reminder delivered")
	}

	if len(f.sender.sent) != 3 {
		t.Fatalf("expected 3 reminders total, got %d", len(f.sender.sent))
	}
	manual := f.sender.sent[2]
	if !manual.IsManual {
		t.Error("expected manual flag set")
	}
	if manual.AgentName != "Agent A1" {
		t.Errorf("expected name resolved from registry, got %q", manual.AgentName)
	}
}

func TestManualReminderReportsDisconnected(t *testing.T) {
	f := newSchedFixture(t)
	f.sender.connected = false
	f.idleAgent("A1", 5)

	if f.sched.TriggerManual("A1", "Alice") {
		t.Error("expected manual reminder to report no connection")
	}
}

func TestMarkSetBounded(t *testing.T) {
	ms := newMarkSet(3)
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		ms.Add(markKey(fmt.Sprintf("A%d", i), base, 5))
	}

	if ms.Len() != 3 {
		t.Fatalf("expected bounded size 3, got %d", ms.Len())
	}
	if ms.Seen(markKey("A0", base, 5)) {
		t.Error("expected oldest mark evicted")
	}
	if !ms.Seen(markKey("A4", base, 5)) {
		t.Error("expected newest mark retained")
	}
}

func TestMarkSetAddIsIdempotent(t *testing.T) {
	ms := newMarkSet(10)
	key := markKey("A1", time.Now(), 5)

	ms.Add(key)
	ms.Add(key)

	if ms.Len() != 1 {
		t.Errorf("expected single mark, got %d", ms.Len())
	}
}
