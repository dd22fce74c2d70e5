package provider

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/kbukum/diarscribe/logger"
)

// Manager owns the initialized providers of one kind and picks one per call.
type Manager[T Provider, C any] struct {
	mu        sync.RWMutex
	registry  *Registry[T, C]
	selector  Selector[T]
	providers map[string]T
	log       *logger.Logger
}

// NewManager creates a Manager backed by the given registry and selector.
func NewManager[T Provider, C any](registry *Registry[T, C], selector Selector[T]) *Manager[T, C] {
	return &Manager[T, C]{
		registry:  registry,
		selector:  selector,
		providers: make(map[string]T),
		log:       logger.Get("provider"),
	}
}

// Initialize creates the named provider, runs its Init hook if it has one and
// makes it available for selection.
func (m *Manager[T, C]) Initialize(ctx context.Context, name string, cfg C) error {
	instance, err := m.registry.Create(name, cfg)
	if err != nil {
		return fmt.Errorf("initialize provider %q: %w", name, err)
	}
	if init, ok := any(instance).(Initializable); ok {
		if err := init.Init(ctx); err != nil {
			return fmt.Errorf("initialize provider %q: %w", name, err)
		}
	}

	m.mu.Lock()
	m.providers[name] = instance
	m.mu.Unlock()
	m.log.Info("provider initialized", logger.Fields(logger.FieldProvider, name))
	return nil
}

// Get returns the provider chosen by the selector.
func (m *Manager[T, C]) Get(ctx context.Context) (T, error) {
	m.mu.RLock()
	snapshot := maps.Clone(m.providers)
	m.mu.RUnlock()
	return m.selector.Select(ctx, snapshot)
}

// GetByName returns a specific provider by name.
func (m *Manager[T, C]) GetByName(name string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.providers[name]; ok {
		return p, nil
	}
	var zero T
	return zero, fmt.Errorf("provider %q not found", name)
}

// Available returns the sorted names of all initialized providers.
func (m *Manager[T, C]) Available() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.providers))
}
