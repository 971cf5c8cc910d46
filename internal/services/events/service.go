package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webflux/internal/interfaces"
	"github.com/ternarybob/webflux/internal/models"
)

// subscribeAllKey routes a handler to every published event
const subscribeAllKey models.EventType = "*"

// Service implements the EventService interface with a typed pub/sub
// pattern. Subscriptions are keyed by event type tag; each returns a
// cancellation handle whose invocation is idempotent.
type Service struct {
	subscribers map[models.EventType]map[uint64]interfaces.EventHandler
	nextID      uint64
	mu          sync.RWMutex
	closed      bool
	failures    atomic.Uint64
	logger      arbor.ILogger
}

// NewService creates a new event service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		subscribers: make(map[models.EventType]map[uint64]interfaces.EventHandler),
		logger:      logger,
	}
}

// subscription is the cancellation handle returned by Subscribe
type subscription struct {
	service   *Service
	eventType models.EventType
	id        uint64
	once      sync.Once
}

// Cancel deregisters the handler. Repeated calls are no-ops.
func (s *subscription) Cancel() {
	s.once.Do(func() {
		s.service.mu.Lock()
		defer s.service.mu.Unlock()

		if handlers, ok := s.service.subscribers[s.eventType]; ok {
			delete(handlers, s.id)
			if len(handlers) == 0 {
				delete(s.service.subscribers, s.eventType)
			}
		}
	})
}

// CompositeSubscription cancels a set of subscriptions together
type CompositeSubscription struct {
	subs []interfaces.Subscription
	once sync.Once
}

// NewCompositeSubscription bundles subscriptions into one handle
func NewCompositeSubscription(subs ...interfaces.Subscription) *CompositeSubscription {
	return &CompositeSubscription{subs: subs}
}

// Add appends another subscription to the composite
func (c *CompositeSubscription) Add(sub interfaces.Subscription) {
	c.subs = append(c.subs, sub)
}

// Cancel cancels every bundled subscription; idempotent
func (c *CompositeSubscription) Cancel() {
	c.once.Do(func() {
		for _, sub := range c.subs {
			sub.Cancel()
		}
	})
}

// Subscribe registers a handler for an event type
func (s *Service) Subscribe(eventType models.EventType, handler interfaces.EventHandler) (interfaces.Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("event service is closed")
	}

	s.nextID++
	id := s.nextID

	if s.subscribers[eventType] == nil {
		s.subscribers[eventType] = make(map[uint64]interfaces.EventHandler)
	}
	s.subscribers[eventType][id] = handler

	s.logger.Debug().
		Str("event_type", string(eventType)).
		Int("subscriber_count", len(s.subscribers[eventType])).
		Msg("Event handler subscribed")

	return &subscription{service: s, eventType: eventType, id: id}, nil
}

// SubscribeAll registers a handler that receives every published event
func (s *Service) SubscribeAll(handler interfaces.EventHandler) (interfaces.Subscription, error) {
	return s.Subscribe(subscribeAllKey, handler)
}

// handlersFor collects the handlers registered for an event's tag plus
// the subscribe-all handlers
func (s *Service) handlersFor(eventType models.EventType) []interfaces.EventHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()

	handlers := make([]interfaces.EventHandler, 0, len(s.subscribers[eventType])+len(s.subscribers[subscribeAllKey]))
	for _, h := range s.subscribers[eventType] {
		handlers = append(handlers, h)
	}
	for _, h := range s.subscribers[subscribeAllKey] {
		handlers = append(handlers, h)
	}
	return handlers
}

// Publish delivers an event to all subscribers concurrently and waits
// for every handler to settle before returning
func (s *Service) Publish(ctx context.Context, event models.Event) error {
	handlers := s.handlersFor(event.Type)
	if len(handlers) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	for _, handler := range handlers {
		wg.Add(1)
		go func(h interfaces.EventHandler) {
			defer wg.Done()
			if err := h(ctx, event); err != nil {
				s.failures.Add(1)
				s.logger.Error().
					Err(err).
					Str("event_type", string(event.Type)).
					Msg("Event handler failed")
			}
		}(handler)
	}
	wg.Wait()

	return nil
}

// PublishSync delivers an event in a fire-and-forget fashion; handler
// failures are counted but never propagate to the caller
func (s *Service) PublishSync(ctx context.Context, event models.Event) {
	handlers := s.handlersFor(event.Type)

	for _, handler := range handlers {
		go func(h interfaces.EventHandler) {
			if err := h(ctx, event); err != nil {
				s.failures.Add(1)
				s.logger.Warn().
					Err(err).
					Str("event_type", string(event.Type)).
					Msg("Event handler failed")
			}
		}(handler)
	}
}

// HandlerFailures returns the number of handler errors observed so far
func (s *Service) HandlerFailures() uint64 {
	return s.failures.Load()
}

// Close shuts down the event service and drops all subscriptions
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.subscribers = make(map[models.EventType]map[uint64]interfaces.EventHandler)
	s.logger.Debug().Msg("Event service closed")

	return nil
}
