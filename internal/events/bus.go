// -----------------------------------------------------------------------
// Event Bus - per-job fan-out with bounded per-subscriber buffering
// -----------------------------------------------------------------------

package events

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/models"
)

const defaultBufferSize = 256

// Bus fans events out per job. Each job gets its own stream so a slow
// consumer on one job never blocks another job's publisher.
type Bus struct {
	mu         sync.RWMutex
	logger     arbor.ILogger
	bufferSize int
	streams    map[string]*jobStream
}

type jobStream struct {
	mu sync.Mutex
	// lastStatus is captured on every status_update publish so that late
	// subscribers receive the current snapshot as their first event.
	lastStatus *models.Event
	subs       map[string]*Subscription
	closed     bool
}

// Subscription is one subscriber's view of a job's event stream.
type Subscription struct {
	ID      string
	JobID   string
	ch      chan models.Event
	dropped atomic.Uint64
	once    sync.Once
	bus     *Bus
}

// Events returns the receive channel. It is closed when the subscription is
// closed or the job stream is torn down.
func (s *Subscription) Events() <-chan models.Event {
	return s.ch
}

// Dropped returns the count of events dropped because this subscriber's
// buffer was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close detaches the subscription from the bus.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s)
}

// NewBus creates an event bus. bufferSize is the per-subscriber ring size.
func NewBus(bufferSize int, logger arbor.ILogger) *Bus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Bus{
		logger:     logger,
		bufferSize: bufferSize,
		streams:    make(map[string]*jobStream),
	}
}

func (b *Bus) stream(jobID string, create bool) *jobStream {
	b.mu.RLock()
	js := b.streams[jobID]
	b.mu.RUnlock()
	if js != nil || !create {
		return js
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if js = b.streams[jobID]; js == nil {
		js = &jobStream{subs: make(map[string]*Subscription)}
		b.streams[jobID] = js
	}
	return js
}

// Publish delivers an event to every subscriber of the job. Delivery is
// best-effort: a full subscriber ring drops its oldest event rather than
// blocking the publisher. Delivery order per subscriber matches publish
// order because the stream lock is held across the fan-out.
func (b *Bus) Publish(jobID string, ev models.Event) {
	js := b.stream(jobID, true)

	js.mu.Lock()
	defer js.mu.Unlock()

	if js.closed {
		return
	}

	if ev.Type == models.EventStatusUpdate {
		snapshot := ev
		js.lastStatus = &snapshot
	}

	for _, sub := range js.subs {
		sub.push(ev)
	}
}

// push enqueues without ever blocking: on overflow the oldest buffered event
// is discarded and the drop counter incremented.
func (s *Subscription) push(ev models.Event) {
	select {
	case s.ch <- ev:
		return
	default:
	}

	select {
	case <-s.ch:
		s.dropped.Add(1)
	default:
	}

	select {
	case s.ch <- ev:
	default:
		s.dropped.Add(1)
	}
}

// Subscribe registers a subscriber on the job's stream. The last published
// status_update, if any, is delivered first so late joiners catch up.
func (b *Bus) Subscribe(jobID string) *Subscription {
	js := b.stream(jobID, true)

	sub := &Subscription{
		ID:    uuid.New().String(),
		JobID: jobID,
		ch:    make(chan models.Event, b.bufferSize),
		bus:   b,
	}

	js.mu.Lock()
	defer js.mu.Unlock()

	if js.closed {
		close(sub.ch)
		return sub
	}

	js.subs[sub.ID] = sub
	if js.lastStatus != nil {
		sub.push(*js.lastStatus)
	}

	if b.logger != nil {
		b.logger.Debug().
			Str("job_id", jobID).
			Str("subscriber_id", sub.ID).
			Int("subscriber_count", len(js.subs)).
			Msg("Event subscriber attached")
	}

	return sub
}

func (b *Bus) unsubscribe(sub *Subscription) {
	js := b.stream(sub.JobID, false)
	if js == nil {
		return
	}

	js.mu.Lock()
	_, present := js.subs[sub.ID]
	delete(js.subs, sub.ID)
	js.mu.Unlock()

	if present {
		sub.once.Do(func() { close(sub.ch) })
	}
}

// CloseJob tears down a job's stream, closing all subscriber channels. Called
// by the job manager once a terminal job leaves its retention window.
func (b *Bus) CloseJob(jobID string) {
	b.mu.Lock()
	js := b.streams[jobID]
	delete(b.streams, jobID)
	b.mu.Unlock()

	if js == nil {
		return
	}

	js.mu.Lock()
	js.closed = true
	subs := make([]*Subscription, 0, len(js.subs))
	for _, sub := range js.subs {
		subs = append(subs, sub)
	}
	js.subs = make(map[string]*Subscription)
	js.mu.Unlock()

	for _, sub := range subs {
		sub.once.Do(func() { close(sub.ch) })
	}
}
