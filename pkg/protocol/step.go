// Package protocol defines the contracts for pluggable step handlers and
// execution triggers.
package protocol

import (
	"github.com/weave-nn/weave/pkg/models"
)

// StepFactory creates step handler instances from step configuration and
// provides metadata about the handler type. Factories are registered with the
// registry and resolved when a definition arrives with Uses/With steps.
type StepFactory interface {
	// Create builds a handler from the step's With configuration.
	Create(config map[string]any) (models.StepHandler, error)

	// ID returns the unique identifier for this handler type.
	ID() string
}
