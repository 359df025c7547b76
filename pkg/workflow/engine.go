// Package workflow implements the execution engine: wave-based scheduling of
// dependency graphs, per-step retry and timeout handling, compensating
// rollback, and the execution history.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/weave-nn/weave/pkg/eventbus"
	"github.com/weave-nn/weave/pkg/events"
	"github.com/weave-nn/weave/pkg/models"
	"github.com/weave-nn/weave/pkg/otelhelper"
	"github.com/weave-nn/weave/pkg/persistence"
	"github.com/weave-nn/weave/pkg/registry"
	"github.com/weave-nn/weave/pkg/validation"
)

var errCancelled = errors.New("execution cancelled")

// Engine schedules and executes registered workflow definitions. Multiple
// engines can coexist in one process; each owns its own execution table and
// history.
type Engine struct {
	logger   *slog.Logger
	registry *registry.Registry
	bus      eventbus.EventBus
	tracer   trace.Tracer
	store    persistence.Persistence

	mu         sync.RWMutex
	executions map[string]*run

	history *History
}

// run pairs a mutable execution record with its cancellation flag. The
// record is guarded by mu until it reaches a terminal state.
type run struct {
	mu        sync.Mutex
	execution *models.WorkflowExecution
	cancelled atomic.Bool
}

func (r *run) snapshot() *models.WorkflowExecution {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.execution.Clone()
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithEventBus publishes lifecycle events to the given bus.
func WithEventBus(bus eventbus.EventBus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithTracer opens a span per execution and per step.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

// WithPersistence appends finished executions to the given store in addition
// to the in-memory history.
func WithPersistence(store persistence.Persistence) Option {
	return func(e *Engine) { e.store = store }
}

// NewEngine creates an engine over the given definition registry.
func NewEngine(logger *slog.Logger, reg *registry.Registry, opts ...Option) *Engine {
	engine := &Engine{
		logger:     logger.With("module", "workflow_engine"),
		registry:   reg,
		executions: make(map[string]*run),
		history:    NewHistory(),
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// Execute runs a registered workflow to a terminal state and returns the
// finished execution record. The record is also appended to history.
func (e *Engine) Execute(ctx context.Context, workflowID string, input any) (*models.WorkflowExecution, error) {
	def, ok := e.registry.Get(workflowID)
	if !ok {
		return nil, fmt.Errorf("Workflow not found: %s", workflowID)
	}

	if err := validation.ValidateInput(def.InputSchema, input); err != nil {
		return nil, err
	}

	execution := &models.WorkflowExecution{
		ID:         "exec-" + uuid.New().String()[:8],
		WorkflowID: workflowID,
		Status:     models.ExecutionStatusPending,
		Input:      input,
		StartedAt:  time.Now(),
		Results:    make(map[string]any),
		StepStates: make(map[string]models.StepStatus),
		StepErrors: make(map[string]string),
		Stats:      models.ExecutionStats{TotalSteps: len(def.Steps)},
	}

	r := &run{execution: execution}

	e.mu.Lock()
	e.executions[execution.ID] = r
	e.mu.Unlock()

	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
			attribute.String(otelhelper.WorkflowIDKey, workflowID),
			attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		)
		defer span.End()
	}

	logger := e.logger.With("workflow_id", workflowID, "execution_id", execution.ID)
	logger.Info("Starting workflow execution", "steps", len(def.Steps))

	sc := models.NewStepContext(execution.ID, workflowID, input, def.InitialState, logger)

	r.setStatus(models.ExecutionStatusRunning)
	e.publish(ctx, events.WorkflowStarted{
		BaseEvent: events.NewBaseEvent(events.WorkflowStartedEvent, workflowID, execution.ID),
		Input:     input,
	})

	if def.OnStart != nil {
		def.OnStart(input)
	}

	runErr := e.runWaves(ctx, def, r, sc)

	e.finalize(ctx, logger, def, r, sc, runErr)

	return r.snapshot(), nil
}

// Cancel cooperatively cancels a running execution. In-flight step handlers
// are not interrupted; the engine stops dispatching waves at the next
// scheduling boundary. Returns false when the execution is unknown or
// already terminal.
func (e *Engine) Cancel(executionID string) bool {
	e.mu.RLock()
	r, ok := e.executions[executionID]
	e.mu.RUnlock()

	if !ok {
		return false
	}

	r.mu.Lock()
	terminal := r.execution.Status.Terminal()
	r.mu.Unlock()

	if terminal {
		return false
	}

	r.cancelled.Store(true)

	return true
}

// GetExecution returns a read view of an active or finished execution.
func (e *Engine) GetExecution(executionID string) (*models.WorkflowExecution, bool) {
	e.mu.RLock()
	r, ok := e.executions[executionID]
	e.mu.RUnlock()

	if !ok {
		return nil, false
	}

	return r.snapshot(), true
}

// GetHistory returns finished executions matching the filter.
func (e *Engine) GetHistory(filter HistoryFilter) []*models.WorkflowExecution {
	return e.history.List(filter)
}

// Clear drops all executions and history. Registered definitions survive.
func (e *Engine) Clear() {
	e.mu.Lock()
	e.executions = make(map[string]*run)
	e.mu.Unlock()

	e.history.Clear()
}

func (e *Engine) finalize(ctx context.Context, logger *slog.Logger, def *models.WorkflowDefinition, r *run, sc *models.StepContext, runErr error) {
	r.mu.Lock()

	execution := r.execution
	now := time.Now()
	execution.CompletedAt = &now
	execution.Stats.TotalDurationMS = now.Sub(execution.StartedAt).Milliseconds()

	switch {
	case runErr == nil:
		execution.Status = models.ExecutionStatusCompleted
		if def.TransformOutput != nil {
			execution.Output = def.TransformOutput(sc.Results())
		} else {
			execution.Output = sc.Results()
		}
	case errors.Is(runErr, errCancelled):
		execution.Status = models.ExecutionStatusCancelled
		execution.Error = runErr.Error()
	default:
		execution.Status = models.ExecutionStatusFailed
		execution.Error = runErr.Error()
	}

	record := execution.Clone()
	r.mu.Unlock()

	switch record.Status {
	case models.ExecutionStatusCompleted:
		logger.Info("Workflow execution completed",
			"duration_ms", record.Stats.TotalDurationMS,
			"completed_steps", record.Stats.CompletedSteps)
		e.publish(ctx, events.WorkflowCompleted{
			BaseEvent:  events.NewBaseEvent(events.WorkflowCompletedEvent, record.WorkflowID, record.ID),
			Output:     record.Output,
			DurationMS: record.Stats.TotalDurationMS,
		})

		if def.OnComplete != nil {
			def.OnComplete(record)
		}
	case models.ExecutionStatusCancelled:
		logger.Info("Workflow execution cancelled",
			"duration_ms", record.Stats.TotalDurationMS)
	default:
		logger.Error("Workflow execution failed", "error", record.Error,
			"duration_ms", record.Stats.TotalDurationMS)
		e.publish(ctx, events.WorkflowFailed{
			BaseEvent:  events.NewBaseEvent(events.WorkflowFailedEvent, record.WorkflowID, record.ID),
			Error:      record.Error,
			RolledBack: record.RolledBack,
			DurationMS: record.Stats.TotalDurationMS,
		})

		if def.OnError != nil {
			def.OnError(record, runErr)
		}
	}

	e.history.Append(record)

	if e.store != nil {
		if err := e.store.SaveExecution(ctx, record); err != nil {
			logger.Error("Failed to persist execution", "error", err)
		}
	}
}

func (r *run) setStatus(status models.ExecutionStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.execution.Status = status
}

func (e *Engine) publish(ctx context.Context, event eventbus.Event) {
	if e.bus == nil {
		return
	}

	if err := e.bus.Publish(ctx, event); err != nil {
		e.logger.Error("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
