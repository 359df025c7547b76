package transform_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weave-nn/weave/pkg/models"
	"github.com/weave-nn/weave/pkg/steps/transform"
)

func contextWithResults(t *testing.T, results map[string]any) *models.StepContext {
	t.Helper()

	sc := models.NewStepContext("exec-1", "wf", nil, nil, slog.Default())
	for id, result := range results {
		sc.SetResult(id, result)
	}

	return sc
}

func TestTransformResolvesDottedPaths(t *testing.T) {
	step, err := transform.NewStep(map[string]any{
		"mapping": map[string]any{
			"code": "fetch.status_code",
			"name": "fetch.json.user.name",
		},
	})
	require.NoError(t, err)

	sc := contextWithResults(t, map[string]any{
		"fetch": map[string]any{
			"status_code": 200,
			"json": map[string]any{
				"user": map[string]any{"name": "ada"},
			},
		},
	})

	result, err := step.Execute(context.Background(), nil, sc)
	require.NoError(t, err)

	out, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 200, out["code"])
	assert.Equal(t, "ada", out["name"])
}

func TestTransformCopiesLiteralValues(t *testing.T) {
	step, err := transform.NewStep(map[string]any{
		"mapping": map[string]any{"version": 2, "flag": true},
	})
	require.NoError(t, err)

	result, err := step.Execute(context.Background(), nil, contextWithResults(t, nil))
	require.NoError(t, err)

	out, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2, out["version"])
	assert.Equal(t, true, out["flag"])
}

func TestTransformMissingStepResult(t *testing.T) {
	step, err := transform.NewStep(map[string]any{
		"mapping": map[string]any{"x": "ghost.value"},
	})
	require.NoError(t, err)

	_, err = step.Execute(context.Background(), nil, contextWithResults(t, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestTransformMissingKeyInPath(t *testing.T) {
	step, err := transform.NewStep(map[string]any{
		"mapping": map[string]any{"x": "fetch.missing"},
	})
	require.NoError(t, err)

	sc := contextWithResults(t, map[string]any{
		"fetch": map[string]any{"present": 1},
	})

	_, err = step.Execute(context.Background(), nil, sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestTransformRequiresMapping(t *testing.T) {
	_, err := transform.NewStep(map[string]any{})
	require.Error(t, err)
}

func TestTransformFactory(t *testing.T) {
	factory := transform.NewFactory()
	assert.Equal(t, "transform", factory.ID())

	_, err := factory.Create(map[string]any{"mapping": map[string]any{"k": "a.b"}})
	require.NoError(t, err)

	_, err = factory.Create(map[string]any{})
	require.Error(t, err)
}
