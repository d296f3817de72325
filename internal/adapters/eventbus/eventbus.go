// Package eventbus carries session events from the replay engine to its
// consumers (terminal UI, audit log).
//
// The bus is a bounded in-memory channel. Publishing never blocks: a slow
// consumer drops events rather than stalling the click sequence, whose
// pacing is load-bearing.
package eventbus

import (
	"context"
	"sync"

	"github.com/KevymLuccas/hbmxml/internal/domain/model"
)

const defaultCapacity = 1024

// Bus provides non-blocking publish and channel-based subscribe semantics.
type Bus interface {
	// Publish adds an event to the bus. Returns false if the bus is full
	// or closed and the event was dropped.
	Publish(ctx context.Context, e model.Event) bool

	// Subscribe returns the channel events are delivered on. The channel
	// is closed when the bus is closed.
	Subscribe(ctx context.Context) <-chan model.Event

	// Close shuts the bus down. Further publishes are dropped.
	Close() error
}

// InMemoryBus implements Bus over a buffered channel.
type InMemoryBus struct {
	events chan model.Event
	mu     sync.RWMutex
	closed bool
}

// Option applies a configuration option to the InMemoryBus.
type Option func(*config)

type config struct {
	capacity int
}

// WithCapacity bounds the number of undelivered events.
func WithCapacity(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// New creates an InMemoryBus with configuration options.
func New(opts ...Option) *InMemoryBus {
	cfg := config{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &InMemoryBus{events: make(chan model.Event, cfg.capacity)}
}

// Publish adds an event to the bus without blocking.
func (b *InMemoryBus) Publish(ctx context.Context, e model.Event) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return false
	}
	select {
	case b.events <- e:
		return true
	default:
		return false // consumer lagging; drop rather than stall replay
	}
}

// Subscribe returns the delivery channel.
func (b *InMemoryBus) Subscribe(ctx context.Context) <-chan model.Event {
	return b.events
}

// Close shuts the bus down and closes the delivery channel.
func (b *InMemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	close(b.events)
	return nil
}
