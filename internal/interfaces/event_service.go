package interfaces

import (
	"context"

	"github.com/ternarybob/webflux/internal/models"
)

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event models.Event) error

// Subscription is a cancellation handle for an event subscription.
// Cancel deregisters the handler and is idempotent.
type Subscription interface {
	Cancel()
}

// EventService manages the typed pub/sub event bus. Subscriptions are
// keyed by event type tag; async handlers for the same event run
// concurrently and Publish waits for them to settle.
type EventService interface {
	// Subscribe registers a handler for an event type
	Subscribe(eventType models.EventType, handler EventHandler) (Subscription, error)

	// SubscribeAll registers a handler that receives every event
	SubscribeAll(handler EventHandler) (Subscription, error)

	// Publish delivers an event and waits for all async handlers
	Publish(ctx context.Context, event models.Event) error

	// PublishSync delivers an event fire-and-forget; handler failures
	// are counted but never propagate
	PublishSync(ctx context.Context, event models.Event)

	// Close shuts down the event service
	Close() error
}
