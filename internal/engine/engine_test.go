package engine

import (
	"testing"
	"time"

	"github.com/callwatch/backend/internal/presence"
	"github.com/callwatch/backend/internal/queue"
	"github.com/callwatch/backend/internal/registry"
	"github.com/callwatch/backend/internal/talktime"
	"github.com/callwatch/backend/internal/types"
	"github.com/rs/zerolog"
)

type captureQueue struct {
	records []queue.Record
}

func (q *captureQueue) Enqueue(rec queue.Record) {
	q.records = append(q.records, rec)
}

func (q *captureQueue) idleSessions() []*types.IdleSessionRecord {
	var out []*types.IdleSessionRecord
	for _, rec := range q.records {
		if rec.Kind == queue.KindIdleSession {
			out = append(out, rec.IdleSession)
		}
	}
	return out
}

func (q *captureQueue) callRecords() []*types.CallRecord {
	var out []*types.CallRecord
	for _, rec := range q.records {
		if rec.Kind == queue.KindCallRecord {
			out = append(out, rec.CallRecord)
		}
	}
	return out
}

type capturePublisher struct {
	dashboards int
	statuses   []types.PresenceStatus
}

func (p *capturePublisher) PublishDashboard() {
	p.dashboards++
}

func (p *capturePublisher) PublishStatus(agentCode string, status types.PresenceStatus) {
	p.statuses = append(p.statuses, status)
}

type fixture struct {
	engine   *Engine
	registry *registry.Registry
	presence *presence.Store
	talktime *talktime.Tracker
	queue    *captureQueue
	pub      *capturePublisher
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		registry: registry.New(nil, zerolog.Nop()),
		presence: presence.NewStore(0),
		talktime: talktime.NewTracker(time.UTC),
		queue:    &captureQueue{},
		pub:      &capturePublisher{},
		clock:    time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
	}
	f.engine = New(f.registry, f.presence, f.talktime, f.queue, nil, f.pub, 30*time.Second, zerolog.Nop())
	f.engine.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func (f *fixture) online(code, name string) {
	f.engine.ProcessOnline(&types.AgentOnline{Type: "agent_online", AgentCode: code, AgentName: name}, "sock-"+code)
}

func (f *fixture) callStarted(code, name string) {
	f.engine.ProcessCallStarted(&types.CallStarted{
		Type:        "call_started",
		AgentCode:   code,
		AgentName:   name,
		PhoneNumber: "+15550100",
		CallType:    "incoming",
	})
}

func (f *fixture) callEnded(code string, talkDuration, todayTotal int) {
	f.engine.ProcessCallEnded(&types.CallEnded{
		Type:      "call_ended",
		AgentCode: code,
		CallData: types.CallData{
			PhoneNumber:  "+15550100",
			CallType:     "incoming",
			TalkDuration: talkDuration,
			StartTime:    f.clock.Add(-time.Duration(talkDuration) * time.Second).Format(time.RFC3339),
			EndTime:      f.clock.Format(time.RFC3339),
		},
		TodayTotalTalkTime: todayTotal,
	})
}

func TestOnlineRegistersAgent(t *testing.T) {
	f := newFixture(t)
	f.online("A1", "Alice")

	agent, ok := f.registry.Get("A1")
	if !ok {
		t.Fatal("expected agent A1 registered")
	}
	if agent.Status != types.StatusOnline {
		t.Errorf("expected status online, got %s", agent.Status)
	}
	if !agent.Reminder.Enabled {
		t.Error("expected default reminder enabled")
	}

	fact, ok := f.presence.Get("A1")
	if !ok {
		t.Fatal("expected presence fact for A1")
	}
	if fact.SocketID != "sock-A1" {
		t.Errorf("expected socket ID sock-A1, got %q", fact.SocketID)
	}
	if f.pub.dashboards == 0 {
		t.Error("expected dashboard publish after online")
	}
}

func TestOnlineIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.online("A1", "Alice")
	f.online("A1", "Alice")
	f.online("A1", "Alice")

	if n := f.registry.Count(); n != 1 {
		t.Errorf("expected 1 agent after repeated online, got %d", n)
	}
	agent, _ := f.registry.Get("A1")
	if agent.Status != types.StatusOnline {
		t.Errorf("expected status online, got %s", agent.Status)
	}
}

func TestOnCallAndIdleAreMutuallyExclusive(t *testing.T) {
	f := newFixture(t)
	f.online("A1", "Alice")
	f.callEnded("A1", 120, 120)

	if _, open := f.engine.OpenIdleSince("A1"); !open {
		t.Fatal("expected open idle marker after call end")
	}

	f.advance(2 * time.Minute)
	f.callStarted("A1", "Alice")

	fact, _ := f.presence.Get("A1")
	if fact.Status != types.StatusOnCall {
		t.Errorf("expected on_call status, got %s", fact.Status)
	}
	if fact.CurrentCall == nil {
		t.Fatal("expected active call ref")
	}
	if _, open := f.engine.OpenIdleSince("A1"); open {
		t.Error("idle marker must close when a call starts")
	}
}

func TestIdleSessionThreshold(t *testing.T) {
	tests := []struct {
		name    string
		gap     time.Duration
		emitted bool
	}{
		{"exactly threshold is discarded", 30 * time.Second, false},
		{"just over threshold is recorded", 31 * time.Second, true},
		{"well under threshold is discarded", 5 * time.Second, false},
		{"long gap is recorded", 10 * time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.online("A1", "Alice")
			f.callEnded("A1", 60, 60)

			f.advance(tt.gap)
			f.callStarted("A1", "Alice")

			sessions := f.queue.idleSessions()
			if tt.emitted && len(sessions) != 1 {
				t.Fatalf("expected 1 idle session, got %d", len(sessions))
			}
			if !tt.emitted && len(sessions) != 0 {
				t.Fatalf("expected no idle session, got %d", len(sessions))
			}
			if tt.emitted {
				want := int(tt.gap / time.Second)
				if sessions[0].DurationSeconds != want {
					t.Errorf("expected duration %d, got %d", want, sessions[0].DurationSeconds)
				}
			}
		})
	}
}

func TestCallEndedRecordsHistoryAndTalkTime(t *testing.T) {
	f := newFixture(t)
	f.online("A1", "Alice")
	f.callStarted("A1", "Alice")
	f.advance(2 * time.Minute)
	f.callEnded("A1", 120, 120)

	records := f.queue.callRecords()
	if len(records) != 1 {
		t.Fatalf("expected 1 call record, got %d", len(records))
	}
	rec := records[0]
	if rec.AgentCode != "A1" || rec.TalkDuration != 120 {
		t.Errorf("unexpected call record: %+v", rec)
	}
	if rec.CallID == "" {
		t.Error("expected call record to carry an ID")
	}
	if rec.DateKey != "2025-06-02" {
		t.Errorf("expected date key 2025-06-02, got %s", rec.DateKey)
	}

	entry, ok := f.talktime.Get("A1")
	if !ok {
		t.Fatal("expected talk time entry")
	}
	if entry.TotalTalkTimeSeconds != 120 || entry.CallCount != 1 {
		t.Errorf("unexpected talk time entry: %+v", entry)
	}

	fact, _ := f.presence.Get("A1")
	if fact.Status != types.StatusOnline {
		t.Errorf("expected agent back online after call, got %s", fact.Status)
	}
	if fact.LastCallEnd == nil {
		t.Error("expected last call end timestamp")
	}
}

func TestTalkTimeLastWriteWins(t *testing.T) {
	f := newFixture(t)
	f.online("A1", "Alice")

	f.callEnded("A1", 300, 300)
	f.advance(time.Minute)
	f.callStarted("A1", "Alice")
	f.advance(time.Minute)
	f.callEnded("A1", 60, 360)

	entry, _ := f.talktime.Get("A1")
	if entry.TotalTalkTimeSeconds != 360 {
		t.Errorf("expected device total 360 to win, got %d", entry.TotalTalkTimeSeconds)
	}
	if entry.CallCount != 2 {
		t.Errorf("expected 2 calls counted, got %d", entry.CallCount)
	}
}

func TestCallEndedWithoutActiveCallStillRecords(t *testing.T) {
	f := newFixture(t)
	f.online("A1", "Alice")

	// Replay after reconnect: no call ref exists
	f.callEnded("A1", 90, 90)

	if len(f.queue.callRecords()) != 1 {
		t.Fatal("expected call record despite missing active call")
	}
	fact, _ := f.presence.Get("A1")
	if fact.Status != types.StatusOnline {
		t.Errorf("expected agent settled online, got %s", fact.Status)
	}
}

func TestOfflineClearsIdleMarkerWithoutEmitting(t *testing.T) {
	f := newFixture(t)
	f.online("A1", "Alice")
	f.callEnded("A1", 60, 60)

	f.advance(5 * time.Minute)
	f.engine.ProcessOffline(&types.AgentOffline{Type: "agent_offline", AgentCode: "A1"})

	if len(f.queue.idleSessions()) != 0 {
		t.Error("offline must not emit an idle session")
	}
	if _, open := f.engine.OpenIdleSince("A1"); open {
		t.Error("expected idle marker cleared on offline")
	}
	fact, _ := f.presence.Get("A1")
	if fact.Status != types.StatusOffline {
		t.Errorf("expected offline status, got %s", fact.Status)
	}
}

func TestOfflineForUnknownAgentIgnored(t *testing.T) {
	f := newFixture(t)
	f.engine.ProcessOffline(&types.AgentOffline{Type: "agent_offline", AgentCode: "ghost"})

	if f.registry.Count() != 0 {
		t.Error("offline must not create agents")
	}
	if len(f.pub.statuses) != 0 {
		t.Error("offline for unknown agent must not publish")
	}
}

func TestDisconnectBehavesLikeOffline(t *testing.T) {
	f := newFixture(t)
	f.online("A1", "Alice")
	f.callStarted("A1", "Alice")

	f.engine.ProcessDisconnect("A1")

	fact, _ := f.presence.Get("A1")
	if fact.Status != types.StatusOffline {
		t.Errorf("expected offline after disconnect, got %s", fact.Status)
	}
	if fact.CurrentCall != nil {
		t.Error("expected call ref cleared on disconnect")
	}
}

func TestDisconnectWithEmptyCodeIsNoop(t *testing.T) {
	f := newFixture(t)
	published := len(f.pub.statuses)
	f.engine.ProcessDisconnect("")
	if len(f.pub.statuses) != published {
		t.Error("empty disconnect must not publish")
	}
}

func TestReconnectPreservesIdleMarker(t *testing.T) {
	f := newFixture(t)
	f.online("A1", "Alice")
	f.callEnded("A1", 60, 60)

	start, _ := f.engine.OpenIdleSince("A1")

	// Device reconnects without an intervening offline
	f.advance(time.Minute)
	f.online("A1", "Alice")

	got, open := f.engine.OpenIdleSince("A1")
	if !open {
		t.Fatal("expected idle marker to survive reconnect")
	}
	if !got.Equal(start) {
		t.Errorf("expected original idle start %v, got %v", start, got)
	}
}

func TestNewCallReplacesStaleRef(t *testing.T) {
	f := newFixture(t)
	f.online("A1", "Alice")
	f.callStarted("A1", "Alice")

	first, _ := f.presence.Get("A1")

	f.advance(time.Minute)
	f.engine.ProcessCallStarted(&types.CallStarted{
		Type:        "call_started",
		AgentCode:   "A1",
		AgentName:   "Alice",
		PhoneNumber: "+15550199",
		CallType:    "outgoing",
	})

	fact, _ := f.presence.Get("A1")
	if fact.CurrentCall.PhoneNumber == first.CurrentCall.PhoneNumber {
		t.Error("expected new call to replace the stale ref")
	}
	if fact.CurrentCall.CallType != types.CallOutgoing {
		t.Errorf("expected outgoing call type, got %s", fact.CurrentCall.CallType)
	}
}
