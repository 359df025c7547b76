// Package queue provides a Redis-backed execution trigger: each message
// popped from the configured list becomes one workflow execution.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/weave-nn/weave/pkg/protocol"
)

const popTimeout = 2 * time.Second

// message is the wire format of queued execution requests.
type message struct {
	WorkflowID string `json:"workflow_id"`
	Input      any    `json:"input,omitempty"`
}

// Trigger consumes execution requests from a Redis list.
type Trigger struct {
	Queue string
	Addr  string

	client   redis.UniversalClient
	callback protocol.TriggerCallback
	logger   *slog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewTrigger creates a queue trigger from configuration.
func NewTrigger(config map[string]any, logger *slog.Logger) (*Trigger, error) {
	queue, _ := config["queue"].(string)
	addr, _ := config["addr"].(string)

	trigger := &Trigger{
		Queue:  queue,
		Addr:   addr,
		logger: logger.With("module", "queue_trigger", "queue", queue),
		stopCh: make(chan struct{}),
	}

	if err := trigger.Validate(); err != nil {
		return nil, err
	}

	return trigger, nil
}

func (t *Trigger) Validate() error {
	if t.Queue == "" {
		return errors.New("queue trigger requires a 'queue' name")
	}

	if t.Addr == "" {
		return errors.New("queue trigger requires a redis 'addr'")
	}

	return nil
}

func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	t.callback = callback
	t.client = redis.NewClient(&redis.Options{Addr: t.Addr})

	if err := t.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis at %s: %w", t.Addr, err)
	}

	t.wg.Add(1)

	go t.consume(ctx)

	t.logger.Info("Queue trigger started")

	return nil
}

func (t *Trigger) Stop(_ context.Context) error {
	close(t.stopCh)
	t.wg.Wait()

	if t.client != nil {
		if err := t.client.Close(); err != nil {
			return err
		}
	}

	t.logger.Info("Queue trigger stopped")

	return nil
}

func (t *Trigger) consume(ctx context.Context) {
	defer t.wg.Done()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		entry, err := t.client.BLPop(ctx, popTimeout, t.Queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}

			t.logger.Error("Failed to pop from queue", "error", err)

			continue
		}

		// BLPop returns [key, value].
		if len(entry) < 2 {
			continue
		}

		var msg message
		if err := json.Unmarshal([]byte(entry[1]), &msg); err != nil {
			t.logger.Error("Dropping malformed queue message", "error", err)

			continue
		}

		if err := t.callback(ctx, msg.WorkflowID, msg.Input); err != nil {
			t.logger.Error("Queued execution failed",
				"workflow_id", msg.WorkflowID, "error", err)
		}
	}
}

var _ protocol.Trigger = (*Trigger)(nil)
