package web

import (
	"github.com/weave-nn/weave/pkg/models"
)

// ExecuteRequest is the body of POST /workflows/:id/execute.
type ExecuteRequest struct {
	Input any `json:"input,omitempty"`
}

// ListWorkflowsResponse wraps a page of definitions.
type ListWorkflowsResponse struct {
	Workflows []*models.WorkflowDefinition `json:"workflows"`
	Count     int                          `json:"count"`
	Offset    int                          `json:"offset"`
	Limit     int                          `json:"limit,omitempty"`
}

// ListExecutionsResponse wraps a page of execution records.
type ListExecutionsResponse struct {
	Executions []*models.WorkflowExecution `json:"executions"`
	Count      int                         `json:"count"`
	Offset     int                         `json:"offset"`
	Limit      int                         `json:"limit,omitempty"`
}
