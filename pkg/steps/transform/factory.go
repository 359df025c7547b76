package transform

import (
	"github.com/weave-nn/weave/pkg/models"
)

// Factory creates transform step handlers.
type Factory struct{}

// NewFactory creates a new transform step factory.
func NewFactory() *Factory {
	return &Factory{}
}

// ID returns the handler type identifier.
func (*Factory) ID() string {
	return "transform"
}

// Create builds a transform step from configuration.
func (f *Factory) Create(config map[string]any) (models.StepHandler, error) {
	return NewStep(config)
}
