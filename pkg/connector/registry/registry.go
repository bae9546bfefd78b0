// Package registry manages source connector registration and instantiation.
// Connector packages register a factory in their init function; callers
// create connectors by source type name.
package registry

import (
	"sync"

	"go.uber.org/zap"

	"github.com/partsbridge/partsync/pkg/config"
	"github.com/partsbridge/partsync/pkg/connector/core"
	"github.com/partsbridge/partsync/pkg/errors"
	"github.com/partsbridge/partsync/pkg/logger"
)

// SourceFactory is a function that creates source connector instances.
// It takes a validated SourceConfig and returns a configured Source or
// an error.
type SourceFactory func(cfg *config.SourceConfig) (core.Source, error)

// Registry manages connector registration and instantiation
type Registry struct {
	sources map[string]SourceFactory
	mu      sync.RWMutex
	logger  *zap.Logger
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a new connector registry
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]SourceFactory),
		logger:  logger.Get().With(zap.String("component", "connector_registry")),
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

// CreateSource creates a source connector instance. The configuration is
// validated before the factory runs, so an invalid config fails fast here.
func (r *Registry) CreateSource(cfg *config.SourceConfig) (core.Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	factory, exists := r.sources[cfg.Type]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrorTypeConfig, "source connector %s not found", cfg.Type)
	}

	source, err := factory(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create source connector "+cfg.Type)
	}

	return source, nil
}

// ListSources returns a list of registered source connector types
func (r *Registry) ListSources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]string, 0, len(r.sources))
	for name := range r.sources {
		sources = append(sources, name)
	}
	return sources
}

// Package-level helpers operating on the global registry.

// RegisterSource registers a source factory in the global registry
func RegisterSource(name string, factory SourceFactory) error {
	return globalRegistry.RegisterSource(name, factory)
}

// CreateSource creates a source from the global registry
func CreateSource(cfg *config.SourceConfig) (core.Source, error) {
	return globalRegistry.CreateSource(cfg)
}

// ListSources lists source types registered in the global registry
func ListSources() []string {
	return globalRegistry.ListSources()
}
