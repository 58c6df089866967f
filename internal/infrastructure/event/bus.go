package event

import (
	"context"
	"sync"
	"time"

	"github.com/invoicing/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryEventBus implements shared.EventBus with synchronous in-memory
// dispatch. Handler failures are logged and never fail the publish: the
// state change producing the event has already been committed.
type InMemoryEventBus struct {
	mu             sync.RWMutex
	handlers       map[string][]shared.EventHandler // eventType -> handlers
	wildcard       []shared.EventHandler            // handlers for all events
	logger         *zap.Logger
	handlerTimeout time.Duration
}

// BusOption configures an InMemoryEventBus
type BusOption func(*InMemoryEventBus)

// WithHandlerTimeout bounds the time a single handler may take
func WithHandlerTimeout(timeout time.Duration) BusOption {
	return func(b *InMemoryEventBus) {
		b.handlerTimeout = timeout
	}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	b := &InMemoryEventBus{
		handlers:       make(map[string][]shared.EventHandler),
		wildcard:       make([]shared.EventHandler, 0),
		logger:         logger,
		handlerTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish dispatches events to all registered handlers synchronously
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		for _, handler := range b.handlersFor(event.EventType()) {
			if err := b.dispatch(ctx, handler, event); err != nil {
				b.logger.Error("handler failed to process event",
					zap.String("event_type", event.EventType()),
					zap.String("event_id", event.EventID().String()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe registers a handler for specific event types. If no event
// types are provided, the handler's own EventTypes() is consulted; an
// empty result subscribes it to all events.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(eventTypes) == 0 {
		b.wildcard = append(b.wildcard, handler)
	} else {
		for _, eventType := range eventTypes {
			b.handlers[eventType] = append(b.handlers[eventType], handler)
		}
	}
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler from all event types
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.wildcard = removeHandler(b.wildcard, handler)
	for eventType, handlers := range b.handlers {
		b.handlers[eventType] = removeHandler(handlers, handler)
		if len(b.handlers[eventType]) == 0 {
			delete(b.handlers, eventType)
		}
	}
}

func (b *InMemoryEventBus) handlersFor(eventType string) []shared.EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	typeHandlers := b.handlers[eventType]
	result := make([]shared.EventHandler, 0, len(typeHandlers)+len(b.wildcard))
	result = append(result, typeHandlers...)
	result = append(result, b.wildcard...)
	return result
}

// dispatch runs one handler under the configured timeout, converting a
// panic into a logged error.
func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, b.handlerTimeout)
	defer cancel()
	return handler.Handle(ctx, event)
}

func removeHandler(handlers []shared.EventHandler, target shared.EventHandler) []shared.EventHandler {
	result := make([]shared.EventHandler, 0, len(handlers))
	for _, h := range handlers {
		if h != target {
			result = append(result, h)
		}
	}
	return result
}

// Ensure InMemoryEventBus implements EventBus
var _ shared.EventBus = (*InMemoryEventBus)(nil)
