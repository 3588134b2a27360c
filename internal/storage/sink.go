package storage

import (
	"context"
	"fmt"

	"github.com/callwatch/backend/internal/queue"
)

// Sink adapts a Store to the delivery queue's sink contract
type Sink struct {
	store Store
}

// NewSink creates a Sink writing to store
func NewSink(store Store) *Sink {
	return &Sink{store: store}
}

// Deliver persists one queued record
func (s *Sink) Deliver(_ context.Context, rec queue.Record) error {
	switch rec.Kind {
	case queue.KindCallRecord:
		if rec.CallRecord == nil {
			return fmt.Errorf("call record payload missing")
		}
		return s.store.SaveCallRecord(*rec.CallRecord)

	case queue.KindIdleSession:
		if rec.IdleSession == nil {
			return fmt.Errorf("idle session payload missing")
		}
		return s.store.SaveIdleSession(*rec.IdleSession)

	default:
		return fmt.Errorf("unknown record kind %q", rec.Kind)
	}
}
