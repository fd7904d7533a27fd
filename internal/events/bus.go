package events

import (
	"context"
	"sync"
	"time"

	"crypto-trading-engine/internal/logger"
)

// Bus fans events out to registered sinks from a single dispatch goroutine.
// Publish never blocks: when the buffer is full the event is dropped and
// counted, because a stalled consumer must not stall the trading loops.
type Bus struct {
	ch    chan Event
	sinks []Sink

	mu      sync.Mutex
	dropped uint64
	done    chan struct{}
	once    sync.Once
}

func NewBus(buffer int, sinks ...Sink) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	b := &Bus{
		ch:    make(chan Event, buffer),
		sinks: sinks,
		done:  make(chan struct{}),
	}
	go b.dispatch()
	return b
}

func (b *Bus) dispatch() {
	defer close(b.done)
	for ev := range b.ch {
		for _, s := range b.sinks {
			s.Consume(ev)
		}
	}
}

// Publish enqueues an event for delivery. Non-blocking.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case b.ch <- ev:
	default:
		b.mu.Lock()
		b.dropped++
		b.mu.Unlock()
	}
}

// Dropped reports how many events were discarded due to backpressure.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close drains the queue, closes all sinks, and waits for dispatch to end.
func (b *Bus) Close(ctx context.Context) error {
	b.once.Do(func() { close(b.ch) })
	select {
	case <-b.done:
	case <-ctx.Done():
		logger.Warn(ctx, "Event bus close timed out before drain completed")
	}
	var firstErr error
	for _, s := range b.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
