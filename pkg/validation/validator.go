// Package validation checks workflow definitions at registration time:
// required fields, unique step ids, resolvable dependencies, and acyclicity.
// Execution-time scheduling relies on these checks and never re-validates.
package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/weave-nn/weave/pkg/models"
)

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate runs all registration-time checks against a definition. The graph
// checks run in a fixed order so callers get deterministic messages.
func Validate(def *models.WorkflowDefinition) error {
	if def == nil {
		return errors.New("Workflow must have an id")
	}

	if def.ID == "" {
		return errors.New("Workflow must have an id")
	}

	if len(def.Steps) == 0 {
		return errors.New("Workflow must have at least one step")
	}

	seen := make(map[string]*models.WorkflowStep, len(def.Steps))
	for _, step := range def.Steps {
		if _, dup := seen[step.ID]; dup {
			return fmt.Errorf("Duplicate step id: %s", step.ID)
		}

		seen[step.ID] = step
	}

	for _, step := range def.Steps {
		for _, dep := range step.DependsOn {
			if _, ok := seen[dep]; !ok {
				return fmt.Errorf("Step %s depends on unknown step %s", step.ID, dep)
			}
		}
	}

	if hasCycle(def.Steps) {
		return errors.New("Circular dependency detected")
	}

	if err := structValidator.Struct(def); err != nil {
		return fmt.Errorf("workflow %s is invalid: %w", def.ID, err)
	}

	return nil
}

type color int

const (
	white color = iota // unvisited
	gray               // on the recursion stack
	black              // fully explored
)

// hasCycle runs a white/gray/black depth-first traversal over the dependency
// graph. Reaching a gray node again means the recursion stack closed a loop.
func hasCycle(steps []*models.WorkflowStep) bool {
	deps := make(map[string][]string, len(steps))
	for _, step := range steps {
		deps[step.ID] = step.DependsOn
	}

	colors := make(map[string]color, len(steps))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = gray

		for _, dep := range deps[id] {
			switch colors[dep] {
			case gray:
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}

		colors[id] = black

		return false
	}

	for _, step := range steps {
		if colors[step.ID] == white && visit(step.ID) {
			return true
		}
	}

	return false
}
