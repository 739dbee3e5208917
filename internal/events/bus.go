package events

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/funlynk/funlynk/pkg/logging"
)

// Handler processes a single event. Handlers run synchronously on the
// publisher's goroutine, in subscription order.
type Handler func(ctx context.Context, event Event) error

// Bus is an in-process publish/subscribe dispatcher for domain events.
// A failing or panicking handler never affects the publisher or the
// other handlers for the same event.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus creates an empty event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
	}
}

// Subscribe registers a handler for events with the given name
func (b *Bus) Subscribe(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], handler)
}

// Publish dispatches an event to all subscribed handlers
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.Name()]
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.dispatch(ctx, event, handler)
	}
}

func (b *Bus) dispatch(ctx context.Context, event Event, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			logging.WithComponent("events").Error("Event handler panicked",
				zap.String("event", event.Name()),
				zap.Any("panic", r))
		}
	}()

	if err := handler(ctx, event); err != nil {
		logging.WithComponent("events").Error("Event handler failed",
			zap.String("event", event.Name()),
			zap.Error(err))
	}
}
