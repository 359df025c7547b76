// Package registry holds the catalog of registered workflow definitions and
// the factory table for pluggable step handlers.
package registry

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/weave-nn/weave/pkg/models"
	"github.com/weave-nn/weave/pkg/protocol"
	"github.com/weave-nn/weave/pkg/validation"
)

const (
	DefaultRetries    = 0
	DefaultRetryDelay = time.Second
)

// Config carries engine-wide step defaults applied when a step leaves its
// retry fields unset.
type Config struct {
	DefaultRetries    int
	DefaultRetryDelay time.Duration
}

// DefaultConfig returns the stock step defaults: one attempt, one second
// between retries when retries are configured.
func DefaultConfig() Config {
	return Config{
		DefaultRetries:    DefaultRetries,
		DefaultRetryDelay: DefaultRetryDelay,
	}
}

// Filter selects definitions in List. Zero values match everything.
type Filter struct {
	// Tags must all be present on a definition for it to match.
	Tags []string

	// Version matches exactly, or by caret prefix: "^1" matches any 1.x.x.
	Version string

	// NamePattern is a case-insensitive substring match against Name.
	NamePattern string

	Offset int
	Limit  int
}

// Registry is the definition store. Registration validates and overwrites;
// listing is stable in registration order.
type Registry struct {
	logger *slog.Logger
	config Config

	mu          sync.RWMutex
	definitions map[string]*models.WorkflowDefinition
	order       []string

	factories map[string]protocol.StepFactory
}

// NewRegistry creates an empty registry with the given step defaults.
func NewRegistry(logger *slog.Logger, config Config) *Registry {
	return &Registry{
		logger:      logger.With("module", "registry"),
		config:      config,
		definitions: make(map[string]*models.WorkflowDefinition),
		factories:   make(map[string]protocol.StepFactory),
	}
}

// Config returns the engine-wide step defaults.
func (r *Registry) Config() Config {
	return r.config
}

// RegisterStepFactory adds a step handler factory, overwriting any previous
// factory with the same id.
func (r *Registry) RegisterStepFactory(factory protocol.StepFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[factory.ID()] = factory
}

// CreateHandler instantiates a registered handler type from configuration.
func (r *Registry) CreateHandler(handlerType string, config map[string]any) (models.StepHandler, error) {
	r.mu.RLock()
	factory, ok := r.factories[handlerType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("step handler type '%s' not registered", handlerType)
	}

	return factory.Create(config)
}

// Register validates a definition, resolves factory-based handlers, and
// stores it, overwriting any existing definition with the same id. Overwrite
// is full replacement, not a merge.
func (r *Registry) Register(def *models.WorkflowDefinition) error {
	if err := validation.Validate(def); err != nil {
		return err
	}

	if err := r.resolveHandlers(def); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.definitions[def.ID]; !exists {
		r.order = append(r.order, def.ID)
	}

	r.definitions[def.ID] = def

	r.logger.Info("Registered workflow definition",
		"workflow_id", def.ID, "steps", len(def.Steps))

	return nil
}

// Unregister removes a definition, reporting whether it was present.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.definitions[id]; !ok {
		return false
	}

	delete(r.definitions, id)

	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)

			break
		}
	}

	return true
}

// Get returns a definition by id.
func (r *Registry) Get(id string) (*models.WorkflowDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.definitions[id]

	return def, ok
}

// List returns definitions matching the filter, in stable registration
// order, paginated by Offset/Limit.
func (r *Registry) List(filter Filter) []*models.WorkflowDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*models.WorkflowDefinition, 0, len(r.order))

	for _, id := range r.order {
		def := r.definitions[id]
		if r.matches(def, filter) {
			matched = append(matched, def)
		}
	}

	return paginate(matched, filter.Offset, filter.Limit)
}

// Clear drops every registered definition. Factories survive.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.definitions = make(map[string]*models.WorkflowDefinition)
	r.order = nil
}

func (r *Registry) resolveHandlers(def *models.WorkflowDefinition) error {
	for _, step := range def.Steps {
		if step.Handler != nil {
			continue
		}

		if step.Uses == "" {
			return fmt.Errorf("step %s in workflow %s has no handler", step.ID, def.ID)
		}

		factory, ok := r.factory(step.Uses)
		if !ok {
			return fmt.Errorf("step %s in workflow %s uses unregistered handler type '%s'", step.ID, def.ID, step.Uses)
		}

		handler, err := factory.Create(step.With)
		if err != nil {
			return fmt.Errorf("failed to create handler for step %s: %w", step.ID, err)
		}

		step.Handler = handler
	}

	return nil
}

func (r *Registry) factory(id string) (protocol.StepFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[id]

	return factory, ok
}

func (r *Registry) matches(def *models.WorkflowDefinition, filter Filter) bool {
	for _, tag := range filter.Tags {
		if !def.HasTag(tag) {
			return false
		}
	}

	if filter.Version != "" && !versionMatches(def.Version, filter.Version) {
		return false
	}

	if filter.NamePattern != "" &&
		!strings.Contains(strings.ToLower(def.Name), strings.ToLower(filter.NamePattern)) {
		return false
	}

	return true
}

// versionMatches supports exact matches and caret-style prefixes: "^1"
// matches "1", "1.2", and "1.2.3" but not "10.0.0".
func versionMatches(version, want string) bool {
	if prefix, ok := strings.CutPrefix(want, "^"); ok {
		return version == prefix || strings.HasPrefix(version, prefix+".")
	}

	return version == want
}

func paginate(defs []*models.WorkflowDefinition, offset, limit int) []*models.WorkflowDefinition {
	if offset < 0 {
		offset = 0
	}

	if offset >= len(defs) {
		return []*models.WorkflowDefinition{}
	}

	defs = defs[offset:]

	if limit > 0 && limit < len(defs) {
		defs = defs[:limit]
	}

	return defs
}
