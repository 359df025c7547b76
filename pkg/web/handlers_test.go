package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weave-nn/weave/pkg/persistence/file"
	"github.com/weave-nn/weave/pkg/registry"
	"github.com/weave-nn/weave/pkg/steps/log"
	"github.com/weave-nn/weave/pkg/web"
	"github.com/weave-nn/weave/pkg/workflow"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	reg := registry.NewRegistry(slog.Default(), registry.DefaultConfig())
	reg.RegisterStepFactory(log.NewFactory())

	store := file.NewPersistence(t.TempDir())
	engine := workflow.NewEngine(slog.Default(), reg, workflow.WithPersistence(store))

	handlers := web.NewAPIHandlers(slog.Default(), reg, engine, store)

	app := fiber.New()

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.RegisterWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/execute", handlers.ExecuteWorkflow)

	e := app.Group("/executions")
	e.Get("/", handlers.GetExecutions)
	e.Get("/:id", handlers.GetExecution)
	e.Post("/:id/cancel", handlers.CancelExecution)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))

	return out
}

func sampleDefinition(id string) map[string]any {
	return map[string]any{
		"id":   id,
		"name": "Sample " + id,
		"steps": []map[string]any{
			{"id": "greet", "uses": "log", "with": map[string]any{"message": "hi"}},
		},
	}
}

func TestRegisterWorkflowEndpoint(t *testing.T) {
	app := setupTestApp(t)

	resp := postJSON(t, app, "/workflows/", sampleDefinition("wf-1"))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "wf-1", body["id"])
}

func TestRegisterWorkflowRejectsInvalidDefinition(t *testing.T) {
	app := setupTestApp(t)

	resp := postJSON(t, app, "/workflows/", map[string]any{"id": "no-steps"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Workflow must have at least one step", body["detail"])
}

func TestRegisterWorkflowRejectsMalformedJSON(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/workflows/", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetWorkflowEndpoint(t *testing.T) {
	app := setupTestApp(t)

	postJSON(t, app, "/workflows/", sampleDefinition("wf-1"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/workflows/wf-1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/workflows/ghost", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListWorkflowsEndpoint(t *testing.T) {
	app := setupTestApp(t)

	postJSON(t, app, "/workflows/", sampleDefinition("wf-1"))
	postJSON(t, app, "/workflows/", sampleDefinition("wf-2"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/workflows/?limit=1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, float64(1), body["count"])
}

func TestDeleteWorkflowEndpoint(t *testing.T) {
	app := setupTestApp(t)

	postJSON(t, app, "/workflows/", sampleDefinition("wf-1"))

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/workflows/wf-1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/workflows/wf-1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExecuteWorkflowEndpoint(t *testing.T) {
	app := setupTestApp(t)

	postJSON(t, app, "/workflows/", sampleDefinition("wf-1"))

	resp := postJSON(t, app, "/workflows/wf-1/execute", map[string]any{
		"input": map[string]any{"k": "v"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, "wf-1", body["workflow_id"])
}

func TestExecuteUnknownWorkflowEndpoint(t *testing.T) {
	app := setupTestApp(t)

	resp := postJSON(t, app, "/workflows/ghost/execute", map[string]any{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExecutionLookupEndpoints(t *testing.T) {
	app := setupTestApp(t)

	postJSON(t, app, "/workflows/", sampleDefinition("wf-1"))

	resp := postJSON(t, app, "/workflows/wf-1/execute", map[string]any{})
	executionID, _ := decodeBody(t, resp)["id"].(string)
	require.NotEmpty(t, executionID)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/executions/"+executionID, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/executions/?workflow_id=wf-1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, float64(1), body["count"])

	// Finished executions cannot be cancelled.
	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/executions/"+executionID+"/cancel", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "healthy", body["status"])
}
