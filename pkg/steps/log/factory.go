package log

import (
	"github.com/weave-nn/weave/pkg/models"
)

// Factory creates log step handlers.
type Factory struct{}

// NewFactory creates a new log step factory.
func NewFactory() *Factory {
	return &Factory{}
}

// ID returns the handler type identifier.
func (*Factory) ID() string {
	return "log"
}

// Create builds a log step from configuration.
func (f *Factory) Create(config map[string]any) (models.StepHandler, error) {
	if config == nil {
		config = map[string]any{}
	}

	return NewStep(config), nil
}
