package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/weave-nn/weave/pkg/events"
)

// WatermillEventBus routes lifecycle events through a watermill
// publisher/subscriber pair. A single consumer goroutine decodes messages and
// fans them out to listeners, so listeners observe publication order and slow
// or panicking listeners never block step execution.
type WatermillEventBus struct {
	logger     *slog.Logger
	publisher  message.Publisher
	subscriber message.Subscriber

	mu        sync.RWMutex
	listeners map[events.EventType]map[string]Listener
}

// NewWatermillEventBus creates a bus over the given channel and starts its
// consumer goroutine.
func NewWatermillEventBus(ctx context.Context, logger *slog.Logger, pub message.Publisher, sub message.Subscriber) (*WatermillEventBus, error) {
	bus := &WatermillEventBus{
		logger:     logger.With("module", "eventbus"),
		publisher:  pub,
		subscriber: sub,
		listeners:  make(map[events.EventType]map[string]Listener),
	}

	messages, err := sub.Subscribe(ctx, events.Topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", events.Topic, err)
	}

	go bus.consume(ctx, messages)

	return bus, nil
}

// Publish marshals the event and hands it to the underlying publisher.
func (b *WatermillEventBus) Publish(_ context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.GetType(), err)
	}

	msg := message.NewMessage("msg-"+watermill.NewULID(), payload)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return b.publisher.Publish(events.Topic, msg)
}

// On registers a listener for one event type, or for every type via
// events.Wildcard, and returns a subscription id for Off.
func (b *WatermillEventBus) On(eventType events.EventType, listener Listener) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.listeners[eventType]
	if !ok {
		subs = make(map[string]Listener)
		b.listeners[eventType] = subs
	}

	id := uuid.New().String()
	subs[id] = listener

	return id
}

// Off removes a subscription, reporting whether it existed.
func (b *WatermillEventBus) Off(eventType events.EventType, subscriptionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.listeners[eventType]
	if !ok {
		return false
	}

	if _, ok := subs[subscriptionID]; !ok {
		return false
	}

	delete(subs, subscriptionID)

	return true
}

// Close shuts down the underlying publisher and subscriber.
func (b *WatermillEventBus) Close() error {
	if err := b.publisher.Close(); err != nil {
		return err
	}

	return b.subscriber.Close()
}

func (b *WatermillEventBus) consume(ctx context.Context, messages <-chan *message.Message) {
	for msg := range messages {
		eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

		event, err := decode(eventType, msg.Payload)
		if err != nil {
			b.logger.Error("Dropping undecodable event",
				"event_type", eventType, "error", err)
			msg.Ack()

			continue
		}

		b.dispatch(ctx, eventType, event)
		msg.Ack()
	}
}

func (b *WatermillEventBus) dispatch(ctx context.Context, eventType events.EventType, event Event) {
	b.mu.RLock()

	targets := make([]Listener, 0, len(b.listeners[eventType])+len(b.listeners[events.Wildcard]))
	for _, listener := range b.listeners[eventType] {
		targets = append(targets, listener)
	}

	for _, listener := range b.listeners[events.Wildcard] {
		targets = append(targets, listener)
	}

	b.mu.RUnlock()

	for _, listener := range targets {
		b.invoke(ctx, eventType, listener, event)
	}
}

func (b *WatermillEventBus) invoke(ctx context.Context, eventType events.EventType, listener Listener, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event listener panicked",
				"event_type", eventType, "panic", r)
		}
	}()

	listener(ctx, event)
}

func decode(eventType events.EventType, payload []byte) (Event, error) {
	var event Event

	switch eventType {
	case events.WorkflowStartedEvent:
		event = &events.WorkflowStarted{}
	case events.WorkflowCompletedEvent:
		event = &events.WorkflowCompleted{}
	case events.WorkflowFailedEvent:
		event = &events.WorkflowFailed{}
	case events.StepStartedEvent:
		event = &events.StepStarted{}
	case events.StepCompletedEvent:
		event = &events.StepCompleted{}
	case events.StepFailedEvent:
		event = &events.StepFailed{}
	case events.RollbackStartedEvent:
		event = &events.RollbackStarted{}
	case events.RollbackCompletedEvent:
		event = &events.RollbackCompleted{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	if err := json.Unmarshal(payload, event); err != nil {
		return nil, err
	}

	return event, nil
}
