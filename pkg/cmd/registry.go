package cmd

import (
	"log/slog"

	"github.com/weave-nn/weave/pkg/registry"
	"github.com/weave-nn/weave/pkg/steps/delay"
	"github.com/weave-nn/weave/pkg/steps/httprequest"
	logstep "github.com/weave-nn/weave/pkg/steps/log"
	"github.com/weave-nn/weave/pkg/steps/transform"
)

// NewRegistry builds a workflow registry with all built-in step factories
// registered.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger, registry.DefaultConfig())

	reg.RegisterStepFactory(logstep.NewFactory())
	reg.RegisterStepFactory(httprequest.NewFactory())
	reg.RegisterStepFactory(transform.NewFactory())
	reg.RegisterStepFactory(delay.NewFactory())

	return reg
}
