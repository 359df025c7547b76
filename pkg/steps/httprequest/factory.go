package httprequest

import (
	"github.com/weave-nn/weave/pkg/models"
)

// Factory creates HTTP request step handlers.
type Factory struct{}

// NewFactory creates a new HTTP request step factory.
func NewFactory() *Factory {
	return &Factory{}
}

// ID returns the handler type identifier.
func (*Factory) ID() string {
	return "http_request"
}

// Create builds an HTTP request step from configuration.
func (f *Factory) Create(config map[string]any) (models.StepHandler, error) {
	return NewStep(config)
}
