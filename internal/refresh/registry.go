package refresh

import (
	"fmt"

	"github.com/systmms/credfresh/internal/logging"
)

// Registry manages available refresh strategies
type Registry struct {
	strategies map[string]func(*logging.Logger) Strategy
	logger     *logging.Logger
}

// NewRegistry creates a new strategy registry
func NewRegistry(logger *logging.Logger) *Registry {
	registry := &Registry{
		strategies: make(map[string]func(*logging.Logger) Strategy),
		logger:     logger,
	}

	registry.registerBuiltinStrategies()

	return registry
}

// registerBuiltinStrategies registers all built-in refresh strategies
func (r *Registry) registerBuiltinStrategies() {
	// Automated refresh through an agent command
	r.strategies["command"] = func(logger *logging.Logger) Strategy {
		return NewCommandStrategy(logger)
	}

	// Human-in-the-loop refresh with a bounded wait
	r.strategies["interactive"] = func(logger *logging.Logger) Strategy {
		return NewInteractiveStrategy(logger)
	}

	r.logger.Debug("Registered %d built-in refresh strategies", len(r.strategies))
}

// Create creates a new instance of the specified strategy
func (r *Registry) Create(name string) (Strategy, error) {
	factory, exists := r.strategies[name]
	if !exists {
		return nil, fmt.Errorf("unknown refresh strategy: %s", name)
	}

	return factory(r.logger), nil
}

// List returns all available strategy names
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	return names
}

// Register allows registration of custom strategies
func (r *Registry) Register(name string, factory func(*logging.Logger) Strategy) error {
	if _, exists := r.strategies[name]; exists {
		return fmt.Errorf("strategy '%s' already registered", name)
	}

	r.strategies[name] = factory
	r.logger.Debug("Registered custom refresh strategy: %s", name)
	return nil
}

// Has checks if a strategy is available
func (r *Registry) Has(name string) bool {
	_, exists := r.strategies[name]
	return exists
}
