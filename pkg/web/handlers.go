// Package web provides HTTP handlers and REST API endpoints for workflow management.
package web

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/weave-nn/weave/pkg/models"
	"github.com/weave-nn/weave/pkg/persistence"
	"github.com/weave-nn/weave/pkg/registry"
	"github.com/weave-nn/weave/pkg/workflow"
)

type APIHandlers struct {
	logger   *slog.Logger
	registry *registry.Registry
	engine   *workflow.Engine
	store    persistence.Persistence
}

// NewAPIHandlers builds the handler set. The store may be nil, in which case
// definitions registered over the API are kept in memory only.
func NewAPIHandlers(
	logger *slog.Logger,
	reg *registry.Registry,
	engine *workflow.Engine,
	store persistence.Persistence,
) *APIHandlers {
	return &APIHandlers{
		logger:   logger.With("module", "api"),
		registry: reg,
		engine:   engine,
		store:    store,
	}
}

func (h *APIHandlers) RegisterWorkflow(c fiber.Ctx) error {
	var def models.WorkflowDefinition
	if err := c.Bind().JSON(&def); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.registry.Register(&def); err != nil {
		return badRequest(c, err.Error())
	}

	if h.store != nil {
		if err := h.store.SaveDefinition(c.Context(), &def); err != nil {
			h.logger.Error("Failed to persist workflow definition", "workflow_id", def.ID, "error", err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(&def)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	filter, err := parseWorkflowFilter(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	defs := h.registry.List(filter)

	return c.JSON(ListWorkflowsResponse{
		Workflows: defs,
		Count:     len(defs),
		Offset:    filter.Offset,
		Limit:     filter.Limit,
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")

	def, ok := h.registry.Get(id)
	if !ok {
		return notFound(c, "Workflow not found: "+id)
	}

	return c.JSON(def)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")

	if !h.registry.Unregister(id) {
		return notFound(c, "Workflow not found: "+id)
	}

	if h.store != nil {
		if err := h.store.DeleteDefinition(c.Context(), id); err != nil && !persistence.IsNotFound(err) {
			h.logger.Error("Failed to delete persisted definition", "workflow_id", id, "error", err)
		}
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	// Params returns a zero-copy view of fiber's request buffer; the engine
	// stores this ID in long-lived execution records, so it must be copied.
	id := strings.Clone(c.Params("id"))

	var req ExecuteRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	execution, err := h.engine.Execute(c.Context(), id, req.Input)
	if err != nil {
		if execution == nil {
			if strings.HasPrefix(err.Error(), "Workflow not found") {
				return notFound(c, err.Error())
			}

			return badRequest(c, err.Error())
		}
		// The workflow ran and failed; the execution record carries the error.
	}

	if execution == nil {
		return internalError(c, errors.New("execution produced no record"))
	}

	return c.JSON(execution)
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	id := c.Params("id")

	if !h.engine.Cancel(id) {
		return notFound(c, "Execution not found or already finished: "+id)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")

	execution, ok := h.engine.GetExecution(id)
	if !ok {
		return notFound(c, "Execution not found: "+id)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	filter, err := parseHistoryFilter(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	executions := h.engine.GetHistory(filter)

	return c.JSON(ListExecutionsResponse{
		Executions: executions,
		Count:      len(executions),
		Offset:     filter.Offset,
		Limit:      filter.Limit,
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	if h.store != nil {
		if err := h.store.HealthCheck(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
	}

	return c.JSON(fiber.Map{"status": "healthy"})
}

func parseWorkflowFilter(c fiber.Ctx) (registry.Filter, error) {
	filter := registry.Filter{
		Version:     c.Query("version"),
		NamePattern: c.Query("name"),
	}

	if tags := c.Query("tags"); tags != "" {
		filter.Tags = strings.Split(tags, ",")
	}

	offset, limit, err := parsePagination(c)
	if err != nil {
		return filter, err
	}

	filter.Offset = offset
	filter.Limit = limit

	return filter, nil
}

func parseHistoryFilter(c fiber.Ctx) (workflow.HistoryFilter, error) {
	filter := workflow.HistoryFilter{
		WorkflowID: c.Query("workflow_id"),
		SortOrder:  c.Query("sort_order"),
	}

	if status := c.Query("status"); status != "" {
		filter.Status = models.ExecutionStatus(status)
	}

	offset, limit, err := parsePagination(c)
	if err != nil {
		return filter, err
	}

	filter.Offset = offset
	filter.Limit = limit

	return filter, nil
}

func parsePagination(c fiber.Ctx) (offset, limit int, err error) {
	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil {
			return 0, 0, err
		}
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return 0, 0, err
		}
	}

	return offset, limit, nil
}
