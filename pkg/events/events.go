// Package events defines the closed set of workflow lifecycle events.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic is the event bus topic all lifecycle events flow through.
const Topic = "weave.events"

const EventTypeMetadataKey = "event_type"

// Wildcard subscribes a listener to every event type.
const Wildcard EventType = "*"

const (
	WorkflowStartedEvent   EventType = "workflow.started"
	WorkflowCompletedEvent EventType = "workflow.completed"
	WorkflowFailedEvent    EventType = "workflow.failed"

	StepStartedEvent   EventType = "step.started"
	StepCompletedEvent EventType = "step.completed"
	StepFailedEvent    EventType = "step.failed"

	RollbackStartedEvent   EventType = "rollback.started"
	RollbackCompletedEvent EventType = "rollback.completed"
)

type BaseEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	WorkflowID  string    `json:"workflow_id"`
	ExecutionID string    `json:"execution_id"`
}

// NewBaseEvent stamps a fresh event envelope for the given execution.
func NewBaseEvent(eventType EventType, workflowID, executionID string) BaseEvent {
	return BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now(),
		WorkflowID:  workflowID,
		ExecutionID: executionID,
	}
}

type WorkflowStarted struct {
	BaseEvent

	Input any `json:"input,omitempty"`
}

func (e WorkflowStarted) GetType() EventType {
	return WorkflowStartedEvent
}

type WorkflowCompleted struct {
	BaseEvent

	Output     any   `json:"output,omitempty"`
	DurationMS int64 `json:"duration_ms"`
}

func (e WorkflowCompleted) GetType() EventType {
	return WorkflowCompletedEvent
}

type WorkflowFailed struct {
	BaseEvent

	Error      string `json:"error"`
	RolledBack bool   `json:"rolled_back"`
	DurationMS int64  `json:"duration_ms"`
}

func (e WorkflowFailed) GetType() EventType {
	return WorkflowFailedEvent
}

type StepStarted struct {
	BaseEvent

	StepID   string `json:"step_id"`
	StepName string `json:"step_name,omitempty"`
	Attempt  int    `json:"attempt"`
}

func (e StepStarted) GetType() EventType {
	return StepStartedEvent
}

type StepCompleted struct {
	BaseEvent

	StepID     string `json:"step_id"`
	Result     any    `json:"result,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

func (e StepCompleted) GetType() EventType {
	return StepCompletedEvent
}

type StepFailed struct {
	BaseEvent

	StepID   string `json:"step_id"`
	Error    string `json:"error"`
	Attempts int    `json:"attempts"`
	Optional bool   `json:"optional"`
}

func (e StepFailed) GetType() EventType {
	return StepFailedEvent
}

type RollbackStarted struct {
	BaseEvent

	// Steps lists the completed steps eligible for compensation, in reverse
	// completion order.
	Steps []string `json:"steps"`
}

func (e RollbackStarted) GetType() EventType {
	return RollbackStartedEvent
}

type RollbackCompleted struct {
	BaseEvent

	RolledBackSteps []string `json:"rolled_back_steps"`
	FailedSteps     []string `json:"failed_steps,omitempty"`
}

func (e RollbackCompleted) GetType() EventType {
	return RollbackCompletedEvent
}
