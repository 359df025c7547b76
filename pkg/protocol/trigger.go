package protocol

import "context"

// TriggerCallback starts an execution of the given workflow. Triggers call it
// whenever their source fires.
type TriggerCallback func(ctx context.Context, workflowID string, input any) error

// Trigger is an external source of execution requests (cron schedule, queue).
type Trigger interface {
	Validate() error
	Start(ctx context.Context, callback TriggerCallback) error
	Stop(ctx context.Context) error
}
