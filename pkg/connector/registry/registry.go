// Package registry manages connector registration and instantiation.
// Connector packages register factories from their init functions; the CLI
// and pipeline look connectors up by name.
package registry

import (
	"sort"
	"sync"

	"github.com/helixdata/helix/pkg/config"
	"github.com/helixdata/helix/pkg/connector/core"
	"github.com/helixdata/helix/pkg/errors"
	"github.com/helixdata/helix/pkg/logger"
	"go.uber.org/zap"
)

// SourceFactory creates a configured source connector instance.
type SourceFactory func(config *config.BaseConfig) (core.Source, error)

// DestinationFactory creates a configured destination connector instance.
type DestinationFactory func(config *config.BaseConfig) (core.Destination, error)

// Registry manages connector factories keyed by name.
type Registry struct {
	sources      map[string]SourceFactory
	destinations map[string]DestinationFactory
	mu           sync.RWMutex
	logger       *zap.Logger
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a new connector registry
func NewRegistry() *Registry {
	return &Registry{
		sources:      make(map[string]SourceFactory),
		destinations: make(map[string]DestinationFactory),
		logger:       logger.Get().With(zap.String("component", "connector_registry")),
	}
}

// RegisterSource registers a source connector factory
func (r *Registry) RegisterSource(name string, factory SourceFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[name]; exists {
		return errors.Newf(errors.ErrorTypeConfig, "source connector %s already registered", name)
	}

	r.sources[name] = factory
	r.logger.Info("source connector registered", zap.String("name", name))
	return nil
}

// RegisterDestination registers a destination connector factory
func (r *Registry) RegisterDestination(name string, factory DestinationFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.destinations[name]; exists {
		return errors.Newf(errors.ErrorTypeConfig, "destination connector %s already registered", name)
	}

	r.destinations[name] = factory
	r.logger.Info("destination connector registered", zap.String("name", name))
	return nil
}

// CreateSource instantiates a registered source connector
func (r *Registry) CreateSource(name string, cfg *config.BaseConfig) (core.Source, error) {
	r.mu.RLock()
	factory, ok := r.sources[name]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown source connector: %s", name)
	}
	return factory(cfg)
}

// CreateDestination instantiates a registered destination connector
func (r *Registry) CreateDestination(name string, cfg *config.BaseConfig) (core.Destination, error) {
	r.mu.RLock()
	factory, ok := r.destinations[name]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown destination connector: %s", name)
	}
	return factory(cfg)
}

// ListSources returns the names of registered source connectors
func (r *Registry) ListSources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListDestinations returns the names of registered destination connectors
func (r *Registry) ListDestinations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.destinations))
	for name := range r.destinations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterSource registers a source factory in the global registry
func RegisterSource(name string, factory SourceFactory) {
	if err := globalRegistry.RegisterSource(name, factory); err != nil {
		globalRegistry.logger.Warn("source registration failed", zap.Error(err))
	}
}

// RegisterDestination registers a destination factory in the global registry
func RegisterDestination(name string, factory DestinationFactory) {
	if err := globalRegistry.RegisterDestination(name, factory); err != nil {
		globalRegistry.logger.Warn("destination registration failed", zap.Error(err))
	}
}

// CreateSource instantiates a source from the global registry
func CreateSource(name string, cfg *config.BaseConfig) (core.Source, error) {
	return globalRegistry.CreateSource(name, cfg)
}

// CreateDestination instantiates a destination from the global registry
func CreateDestination(name string, cfg *config.BaseConfig) (core.Destination, error) {
	return globalRegistry.CreateDestination(name, cfg)
}

// ListSources lists sources in the global registry
func ListSources() []string {
	return globalRegistry.ListSources()
}

// ListDestinations lists destinations in the global registry
func ListDestinations() []string {
	return globalRegistry.ListDestinations()
}
