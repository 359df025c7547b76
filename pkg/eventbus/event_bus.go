// Package eventbus delivers typed workflow lifecycle events to registered
// listeners.
package eventbus

import (
	"context"

	"github.com/weave-nn/weave/pkg/events"
)

// Event is any lifecycle event carrying its own type tag.
type Event interface {
	GetType() events.EventType
}

// Listener receives events in publication order. A panicking listener is
// recovered and logged; it never aborts the engine or other listeners.
type Listener func(ctx context.Context, event Event)

// EventBus is the engine's publish/subscribe surface. On with
// events.Wildcard subscribes to every event type; Off removes a subscription
// by the id On returned.
type EventBus interface {
	Publish(ctx context.Context, event Event) error
	On(eventType events.EventType, listener Listener) string
	Off(eventType events.EventType, subscriptionID string) bool
	Close() error
}
