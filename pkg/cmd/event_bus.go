package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/weave-nn/weave/pkg/channels/gochannel"
	"github.com/weave-nn/weave/pkg/channels/kafka"
	"github.com/weave-nn/weave/pkg/eventbus"
)

// NewEventBus creates an event bus instance based on the provider name.
func NewEventBus(ctx context.Context, provider string, logger *slog.Logger) (eventbus.EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.NewChannel(wmLogger, "weave")
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(ctx, logger, pub, sub)
	case "", "gochannel":
		pub, sub := gochannel.NewChannel(wmLogger)

		return eventbus.NewWatermillEventBus(ctx, logger, pub, sub)
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
