package delay

import (
	"github.com/weave-nn/weave/pkg/models"
)

// Factory creates delay step handlers.
type Factory struct{}

// NewFactory creates a new delay step factory.
func NewFactory() *Factory {
	return &Factory{}
}

// ID returns the handler type identifier.
func (*Factory) ID() string {
	return "delay"
}

// Create builds a delay step from configuration.
func (f *Factory) Create(config map[string]any) (models.StepHandler, error) {
	return NewStep(config)
}
