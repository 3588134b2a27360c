package queue

import (
	"context"
	"sync"
	"time"

	"github.com/callwatch/backend/internal/metrics"
	"github.com/callwatch/backend/internal/types"
	"github.com/rs/zerolog"
)

// RecordKind discriminates the payload carried by a Record
type RecordKind string

const (
	KindCallRecord  RecordKind = "call_record"
	KindIdleSession RecordKind = "idle_session"
)

// Record is one unit of work destined for the durable sink
type Record struct {
	Kind        RecordKind
	CallRecord  *types.CallRecord
	IdleSession *types.IdleSessionRecord
	EnqueuedAt  time.Time
}

// Sink is the slow/unreliable downstream the queue protects. Deliver
// must be idempotent-safe: the queue re-submits on failure.
type Sink interface {
	Deliver(ctx context.Context, rec Record) error
}

// Status describes the queue for observability
type Status struct {
	Depth      int           `json:"depth"`
	InFlight   bool          `json:"inFlight"`
	OldestAge  time.Duration `json:"-"`
	OldestSecs float64       `json:"oldestAgeSeconds"`
}

// DeliveryQueue is an ordered at-least-once buffer in front of Sink.
// A single worker drains it; on a sink failure the failed record goes
// back to the front and draining pauses for the backoff, so order is
// preserved at the cost of head-of-line blocking.
type DeliveryQueue struct {
	items      []Record
	mu         sync.Mutex
	processing bool

	sink      Sink
	backoff   time.Duration
	batchSize int
	wake      chan struct{}
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates a DeliveryQueue draining into sink
func New(sink Sink, backoff time.Duration, batchSize int, logger zerolog.Logger) *DeliveryQueue {
	if batchSize <= 0 {
		batchSize = 5
	}
	return &DeliveryQueue{
		sink:      sink,
		backoff:   backoff,
		batchSize: batchSize,
		wake:      make(chan struct{}, 1),
		logger:    logger.With().Str("component", "delivery_queue").Logger(),
		now:       time.Now,
	}
}

// Enqueue appends a record and wakes the worker. Never blocks.
func (q *DeliveryQueue) Enqueue(rec Record) {
	rec.EnqueuedAt = q.now()

	q.mu.Lock()
	q.items = append(q.items, rec)
	depth := len(q.items)
	q.mu.Unlock()

	metrics.Get().RecordQueueEnqueue(depth)

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Depth returns the current number of buffered records
func (q *DeliveryQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// GetStatus reports queue depth, the single-flight flag, and the age of
// the oldest buffered record
func (q *DeliveryQueue) GetStatus() Status {
	q.mu.Lock()
	defer q.mu.Unlock()

	st := Status{
		Depth:    len(q.items),
		InFlight: q.processing,
	}
	if len(q.items) > 0 {
		st.OldestAge = q.now().Sub(q.items[0].EnqueuedAt)
		st.OldestSecs = st.OldestAge.Seconds()
	}
	return st
}

// Run drains the queue until ctx is cancelled. It is the only goroutine
// that touches the sink, so drain cycles are never re-entered.
func (q *DeliveryQueue) Run(ctx context.Context) {
	q.logger.Info().
		Dur("backoff", q.backoff).
		Int("batch_size", q.batchSize).
		Msg("delivery queue started")

	for {
		select {
		case <-ctx.Done():
			q.logger.Info().Int("remaining", q.Depth()).Msg("delivery queue stopped")
			return
		case <-q.wake:
			q.drain(ctx)
		}
	}
}

// drain delivers up to batchSize records, stopping early on failure
func (q *DeliveryQueue) drain(ctx context.Context) {
	q.mu.Lock()
	q.processing = true
	q.mu.Unlock()
	defer func() {
		q.mu.Lock()
		q.processing = false
		q.mu.Unlock()
	}()

	m := metrics.Get()

	for delivered := 0; delivered < q.batchSize; delivered++ {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.mu.Unlock()
			return
		}
		rec := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		if err := q.sink.Deliver(ctx, rec); err != nil {
			// Put the record back at the front and pause the whole
			// queue; ordering matters more than throughput here
			q.mu.Lock()
			q.items = append([]Record{rec}, q.items...)
			depth := len(q.items)
			q.mu.Unlock()

			m.RecordQueueFailure(depth)
			q.logger.Warn().Err(err).
				Str("kind", string(rec.Kind)).
				Int("depth", depth).
				Msg("sink delivery failed, backing off")

			select {
			case <-ctx.Done():
			case <-time.After(q.backoff):
				// Wake ourselves to resume draining
				select {
				case q.wake <- struct{}{}:
				default:
				}
			}
			return
		}

		m.RecordQueueDelivered(q.Depth())
	}

	// Batch exhausted with records possibly left; reschedule
	q.mu.Lock()
	remaining := len(q.items)
	q.mu.Unlock()
	if remaining > 0 {
		select {
		case q.wake <- struct{}{}:
		default:
		}
	}
}
