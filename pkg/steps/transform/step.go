// Package transform provides a step handler that reshapes previous step
// results into a new document using dotted path references.
package transform

import (
	"context"
	"fmt"
	"strings"

	"github.com/weave-nn/weave/pkg/models"
)

// Step builds its result from a mapping of output keys to "step_id.path"
// references into the results of its dependencies. Literal (non-string)
// mapping values are copied through unchanged.
type Step struct {
	Mapping map[string]any
}

// NewStep creates a transform step from configuration.
func NewStep(config map[string]any) (*Step, error) {
	mapping, ok := config["mapping"].(map[string]any)
	if !ok || len(mapping) == 0 {
		return nil, fmt.Errorf("transform step requires a non-empty 'mapping'")
	}

	return &Step{Mapping: mapping}, nil
}

func (s *Step) Execute(_ context.Context, _ any, sc *models.StepContext) (any, error) {
	out := make(map[string]any, len(s.Mapping))

	for key, ref := range s.Mapping {
		path, ok := ref.(string)
		if !ok {
			out[key] = ref

			continue
		}

		value, err := resolve(sc, path)
		if err != nil {
			return nil, err
		}

		out[key] = value
	}

	return out, nil
}

// TransformInput exposes the full results map to Execute via the usual
// capability so dependents of a transform see a coherent input.
func (s *Step) TransformInput(previous map[string]any) any {
	return previous
}

// resolve walks a "step_id.field.subfield" path through recorded results.
// The result of a skipped step is absent; referencing it is an error the
// caller sees as a step failure.
func resolve(sc *models.StepContext, path string) (any, error) {
	parts := strings.Split(path, ".")

	current, ok := sc.Result(parts[0])
	if !ok {
		return nil, fmt.Errorf("no result recorded for step '%s'", parts[0])
	}

	for _, part := range parts[1:] {
		asMap, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("path '%s': '%s' is not an object", path, part)
		}

		current, ok = asMap[part]
		if !ok {
			return nil, fmt.Errorf("path '%s': key '%s' not found", path, part)
		}
	}

	return current, nil
}

var (
	_ models.StepHandler      = (*Step)(nil)
	_ models.InputTransformer = (*Step)(nil)
)
