package eventbus

import (
	"PayoutGuard/internal/core/ports"
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// handlerTimeout bounds a single delivery so a stuck relay cannot pile up goroutines.
const handlerTimeout = 30 * time.Second

// inMemoryEventBus implements the ports.EventBus interface
type inMemoryEventBus struct {
	log         zerolog.Logger
	subscribers map[string][]ports.EventHandler
	mu          sync.RWMutex
	inflight    sync.WaitGroup
}

// NewInMemoryEventBus creates a new, empty event bus
func NewInMemoryEventBus(baseLogger *zerolog.Logger) ports.EventBus {
	return &inMemoryEventBus{
		log:         baseLogger.With().Str("component", "in_memory_bus").Logger(),
		subscribers: make(map[string][]ports.EventHandler),
	}
}

// Publish hands the event to every subscriber of the topic and of TopicAll.
// Handlers run in their own goroutines on a detached context, so a slow relay
// never blocks the state transition that published the event.
func (b *inMemoryEventBus) Publish(ctx context.Context, topic string, data any) error {
	b.mu.RLock()
	handlers := make([]ports.EventHandler, 0, len(b.subscribers[topic])+len(b.subscribers[ports.TopicAll]))
	handlers = append(handlers, b.subscribers[topic]...)
	handlers = append(handlers, b.subscribers[ports.TopicAll]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.log.Warn().Str("topic", topic).Msg("Published event with no subscribers")
		return nil
	}

	event := ports.Event{Topic: topic, Data: data}
	for _, handler := range handlers {
		b.inflight.Add(1)
		go func(h ports.EventHandler) {
			defer b.inflight.Done()
			hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), handlerTimeout)
			defer cancel()
			if err := h(hctx, event); err != nil {
				b.log.Error().Err(err).Str("topic", topic).Msg("Event handler failed")
			}
		}(handler)
	}

	b.log.Debug().Str("topic", topic).Int("handlers", len(handlers)).Msg("Event published")
	return nil
}

// Subscribe registers a handler for a specific topic
func (b *inMemoryEventBus) Subscribe(topic string, handler ports.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[topic] = append(b.subscribers[topic], handler)
	b.log.Info().Str("topic", topic).Msg("New handler subscribed to topic")
}

func (b *inMemoryEventBus) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
