package registry_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weave-nn/weave/pkg/models"
	"github.com/weave-nn/weave/pkg/registry"
)

func noop() models.StepHandler {
	return models.StepFunc(func(_ context.Context, _ any, _ *models.StepContext) (any, error) {
		return nil, nil
	})
}

type staticFactory struct {
	id string
}

func (f *staticFactory) ID() string { return f.id }

func (f *staticFactory) Create(_ map[string]any) (models.StepHandler, error) {
	return noop(), nil
}

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	return registry.NewRegistry(slog.Default(), registry.DefaultConfig())
}

func definition(id string) *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID:    id,
		Name:  id,
		Steps: []*models.WorkflowStep{{ID: "only", Handler: noop()}},
	}
}

func TestRegisterAndGet(t *testing.T) {
	reg := newTestRegistry(t)

	require.NoError(t, reg.Register(definition("wf-1")))

	def, ok := reg.Get("wf-1")
	require.True(t, ok)
	assert.Equal(t, "wf-1", def.ID)

	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestRegisterRejectsInvalidDefinition(t *testing.T) {
	reg := newTestRegistry(t)

	err := reg.Register(&models.WorkflowDefinition{ID: "no-steps"})
	require.Error(t, err)
	assert.Equal(t, "Workflow must have at least one step", err.Error())

	_, ok := reg.Get("no-steps")
	assert.False(t, ok)
}

func TestRegisterOverwritesExistingDefinition(t *testing.T) {
	reg := newTestRegistry(t)

	first := definition("wf")
	first.Description = "first"
	require.NoError(t, reg.Register(first))

	second := definition("wf")
	second.Description = "second"
	require.NoError(t, reg.Register(second))

	def, ok := reg.Get("wf")
	require.True(t, ok)
	assert.Equal(t, "second", def.Description)

	assert.Len(t, reg.List(registry.Filter{}), 1)
}

func TestUnregister(t *testing.T) {
	reg := newTestRegistry(t)

	require.NoError(t, reg.Register(definition("wf")))

	assert.True(t, reg.Unregister("wf"))
	assert.False(t, reg.Unregister("wf"))

	_, ok := reg.Get("wf")
	assert.False(t, ok)
}

func TestListKeepsRegistrationOrder(t *testing.T) {
	reg := newTestRegistry(t)

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, reg.Register(definition(id)))
	}

	defs := reg.List(registry.Filter{})
	require.Len(t, defs, 3)
	assert.Equal(t, "c", defs[0].ID)
	assert.Equal(t, "a", defs[1].ID)
	assert.Equal(t, "b", defs[2].ID)
}

func TestListFiltersByTags(t *testing.T) {
	reg := newTestRegistry(t)

	tagged := definition("tagged")
	tagged.Tags = []string{"etl", "nightly"}
	require.NoError(t, reg.Register(tagged))
	require.NoError(t, reg.Register(definition("untagged")))

	defs := reg.List(registry.Filter{Tags: []string{"etl"}})
	require.Len(t, defs, 1)
	assert.Equal(t, "tagged", defs[0].ID)

	// All filter tags must be present.
	assert.Empty(t, reg.List(registry.Filter{Tags: []string{"etl", "hourly"}}))
}

func TestListFiltersByVersion(t *testing.T) {
	reg := newTestRegistry(t)

	v1 := definition("v1")
	v1.Version = "1.2.3"
	require.NoError(t, reg.Register(v1))

	v10 := definition("v10")
	v10.Version = "10.0.0"
	require.NoError(t, reg.Register(v10))

	exact := reg.List(registry.Filter{Version: "1.2.3"})
	require.Len(t, exact, 1)
	assert.Equal(t, "v1", exact[0].ID)

	caret := reg.List(registry.Filter{Version: "^1"})
	require.Len(t, caret, 1)
	assert.Equal(t, "v1", caret[0].ID)
}

func TestListFiltersByNamePattern(t *testing.T) {
	reg := newTestRegistry(t)

	named := definition("named")
	named.Name = "Nightly ETL Sync"
	require.NoError(t, reg.Register(named))
	require.NoError(t, reg.Register(definition("other")))

	defs := reg.List(registry.Filter{NamePattern: "etl"})
	require.Len(t, defs, 1)
	assert.Equal(t, "named", defs[0].ID)
}

func TestListPagination(t *testing.T) {
	reg := newTestRegistry(t)

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, reg.Register(definition(id)))
	}

	page := reg.List(registry.Filter{Offset: 1, Limit: 2})
	require.Len(t, page, 2)
	assert.Equal(t, "b", page[0].ID)
	assert.Equal(t, "c", page[1].ID)

	assert.Empty(t, reg.List(registry.Filter{Offset: 10}))
}

func TestClearKeepsFactories(t *testing.T) {
	reg := newTestRegistry(t)
	reg.RegisterStepFactory(&staticFactory{id: "static"})

	require.NoError(t, reg.Register(definition("wf")))
	reg.Clear()

	assert.Empty(t, reg.List(registry.Filter{}))

	handler, err := reg.CreateHandler("static", nil)
	require.NoError(t, err)
	assert.NotNil(t, handler)
}

func TestRegisterResolvesFactoryHandlers(t *testing.T) {
	reg := newTestRegistry(t)
	reg.RegisterStepFactory(&staticFactory{id: "static"})

	def := &models.WorkflowDefinition{
		ID:    "factory-backed",
		Steps: []*models.WorkflowStep{{ID: "s", Uses: "static"}},
	}

	require.NoError(t, reg.Register(def))
	assert.NotNil(t, def.Steps[0].Handler)
}

func TestRegisterRejectsStepWithoutHandlerOrUses(t *testing.T) {
	reg := newTestRegistry(t)

	def := &models.WorkflowDefinition{
		ID:    "bare",
		Steps: []*models.WorkflowStep{{ID: "s"}},
	}

	err := reg.Register(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no handler")
}

func TestRegisterRejectsUnknownHandlerType(t *testing.T) {
	reg := newTestRegistry(t)

	def := &models.WorkflowDefinition{
		ID:    "unknown-uses",
		Steps: []*models.WorkflowStep{{ID: "s", Uses: "nope"}},
	}

	err := reg.Register(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unregistered handler type 'nope'")
}

func TestStepDefaultsResolution(t *testing.T) {
	config := registry.DefaultConfig()

	unset := &models.WorkflowStep{ID: "s"}
	assert.Equal(t, config.DefaultRetries, unset.RetryCount(config.DefaultRetries))
	assert.Equal(t, config.DefaultRetryDelay, unset.RetryDelay(config.DefaultRetryDelay))

	zero := 0
	zeroDelay := int64(0)
	explicit := &models.WorkflowStep{ID: "s", Retries: &zero, RetryDelayMS: &zeroDelay}
	assert.Equal(t, 0, explicit.RetryCount(5))
	assert.Equal(t, time.Duration(0), explicit.RetryDelay(time.Minute))
}
