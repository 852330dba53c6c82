package provider

import (
	"fmt"
	"sync"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
	"github.com/narwhalmedia/catalog/pkg/config"
)

// Factory builds an adapter for one configured source.
type Factory func(src config.SourceConfig) (Adapter, error)

// Registry maps source types to adapter factories and caches the adapter
// built for each source id.
type Registry struct {
	mu        sync.Mutex
	factories map[domain.SourceType]Factory
	adapters  map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[domain.SourceType]Factory),
		adapters:  make(map[string]Adapter),
	}
}

// Register installs the factory for a source type.
func (r *Registry) Register(sourceType domain.SourceType, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[sourceType] = factory
}

// Adapter returns the adapter for src, building it on first use.
func (r *Registry) Adapter(src config.SourceConfig) (Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.adapters[src.ID]; ok {
		return a, nil
	}
	factory, ok := r.factories[domain.SourceType(src.Type)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSourceType, src.Type)
	}
	a, err := factory(src)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s adapter for source %s: %w", src.Type, src.ID, err)
	}
	r.adapters[src.ID] = a
	return a, nil
}
