package dispatch

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"trackframe-worker-go/internal/metrics"
	"trackframe-worker-go/internal/models"
)

// Buffer is an in-memory FIFO of InternalEvents for pull consumers.
// A capacity of 0 means unbounded. A full bounded buffer drops its oldest
// event so Dispatch never blocks.
type Buffer struct {
	mu       sync.Mutex
	items    []models.InternalEvent
	capacity int
	dropped  int64
	notify   chan struct{}
}

func NewBuffer(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}
}

func (b *Buffer) Dispatch(ev models.InternalEvent) {
	b.mu.Lock()
	if b.capacity > 0 && len(b.items) >= b.capacity {
		b.items[0] = models.InternalEvent{}
		b.items = b.items[1:]
		b.dropped++
		metrics.BufferDropped.Inc()
		log.Warn().Str("event_id", ev.EventID).Int("capacity", b.capacity).Msg("Event buffer full, dropped oldest event")
	}
	b.items = append(b.items, ev)
	b.mu.Unlock()

	b.signal()
}

// TryGet pops the oldest event without waiting
func (b *Buffer) TryGet() (models.InternalEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) == 0 {
		return models.InternalEvent{}, false
	}
	ev := b.items[0]
	b.items[0] = models.InternalEvent{}
	b.items = b.items[1:]
	if len(b.items) > 0 {
		// wake the next waiting consumer
		b.signal()
	}
	return ev, true
}

// Get waits for the next event or for ctx to end
func (b *Buffer) Get(ctx context.Context) (models.InternalEvent, error) {
	for {
		if ev, ok := b.TryGet(); ok {
			return ev, nil
		}
		select {
		case <-ctx.Done():
			return models.InternalEvent{}, ctx.Err()
		case <-b.notify:
		}
	}
}

// Drain pops up to max events, oldest first. max <= 0 drains everything.
func (b *Buffer) Drain(max int) []models.InternalEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.items)
	if max > 0 && max < n {
		n = max
	}
	out := make([]models.InternalEvent, n)
	copy(out, b.items[:n])
	for i := 0; i < n; i++ {
		b.items[i] = models.InternalEvent{}
	}
	b.items = b.items[n:]
	return out
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Dropped is the number of events evicted because the buffer was full
func (b *Buffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

func (b *Buffer) signal() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}
