package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/callwatch/backend/internal/types"
	"github.com/rs/zerolog"
)

// flakySink fails deliveries while failing() returns true and records
// everything it accepts
type flakySink struct {
	mu        sync.Mutex
	delivered []Record
	failUntil int // fail while attempt count < failUntil for the matching id
	attempts  map[string]int
	failID    string
}

func newFlakySink() *flakySink {
	return &flakySink{attempts: make(map[string]int)}
}

func (s *flakySink) Deliver(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := recordID(rec)
	s.attempts[id]++
	if id == s.failID && s.attempts[id] <= s.failUntil {
		return errors.New("sink unavailable")
	}
	s.delivered = append(s.delivered, rec)
	return nil
}

func (s *flakySink) deliveredIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.delivered))
	for _, rec := range s.delivered {
		ids = append(ids, recordID(rec))
	}
	return ids
}

func recordID(rec Record) string {
	if rec.CallRecord != nil {
		return rec.CallRecord.CallID
	}
	return rec.IdleSession.StartTime
}

func callRecord(id string) Record {
	return Record{
		Kind:       KindCallRecord,
		CallRecord: &types.CallRecord{CallID: id, DateKey: "2024-03-01"},
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestQueueDeliversInOrder(t *testing.T) {
	sink := newFlakySink()
	q := New(sink, 10*time.Millisecond, 5, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	for _, id := range []string{"c1", "c2", "c3"} {
		q.Enqueue(callRecord(id))
	}

	waitFor(t, time.Second, func() bool { return len(sink.deliveredIDs()) == 3 })

	ids := sink.deliveredIDs()
	for i, want := range []string{"c1", "c2", "c3"} {
		if ids[i] != want {
			t.Errorf("position %d: expected %s, got %s", i, want, ids[i])
		}
	}
}

func TestQueueOrderingUnderFailure(t *testing.T) {
	sink := newFlakySink()
	sink.failID = "c2"
	sink.failUntil = 2 // c2 fails twice before succeeding
	q := New(sink, 10*time.Millisecond, 5, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	for _, id := range []string{"c1", "c2", "c3", "c4", "c5"} {
		q.Enqueue(callRecord(id))
	}

	waitFor(t, 2*time.Second, func() bool { return len(sink.deliveredIDs()) == 5 })

	ids := sink.deliveredIDs()
	want := []string{"c1", "c2", "c3", "c4", "c5"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("order broken: expected %v, got %v", want, ids)
		}
	}

	// c1 must not have been redelivered by the retries of c2
	sink.mu.Lock()
	c1Attempts := sink.attempts["c1"]
	sink.mu.Unlock()
	if c1Attempts != 1 {
		t.Errorf("expected exactly 1 delivery of c1, got %d", c1Attempts)
	}
	if q.Depth() != 0 {
		t.Errorf("expected empty queue, got depth %d", q.Depth())
	}
}

func TestQueueBatchLimitReschedules(t *testing.T) {
	sink := newFlakySink()
	q := New(sink, 10*time.Millisecond, 2, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	for i := 0; i < 7; i++ {
		q.Enqueue(callRecord(string(rune('a' + i))))
	}

	// All records drain even though each cycle handles at most 2
	waitFor(t, time.Second, func() bool { return len(sink.deliveredIDs()) == 7 })
}

func TestGetStatus(t *testing.T) {
	sink := newFlakySink()
	q := New(sink, time.Hour, 5, zerolog.Nop())

	current := time.Now()
	q.now = func() time.Time { return current }

	st := q.GetStatus()
	if st.Depth != 0 || st.InFlight {
		t.Errorf("expected idle empty queue, got %+v", st)
	}

	q.Enqueue(callRecord("c1"))
	current = current.Add(30 * time.Second)
	q.Enqueue(callRecord("c2"))

	st = q.GetStatus()
	if st.Depth != 2 {
		t.Errorf("expected depth 2, got %d", st.Depth)
	}
	if st.OldestAge != 30*time.Second {
		t.Errorf("expected oldest age 30s, got %v", st.OldestAge)
	}
}

func TestQueueStopsOnContextCancel(t *testing.T) {
	sink := newFlakySink()
	sink.failID = "c1"
	sink.failUntil = 1000 // permanently failing
	q := New(sink, 10*time.Millisecond, 5, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()

	q.Enqueue(callRecord("c1"))
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("queue did not stop after context cancel")
	}

	// The poisoned record is still buffered, not lost
	if q.Depth() != 1 {
		t.Errorf("expected poisoned record retained, depth %d", q.Depth())
	}
}
