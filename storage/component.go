package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/diarscribe/component"
)

// Component owns the transcript store for the application lifecycle.
type Component struct {
	cfg Config

	mu      sync.RWMutex
	storage Storage
}

var _ component.Component = (*Component)(nil)

// NewComponent creates a storage component.
func NewComponent(cfg Config) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg}
}

// Storage returns the backend, or nil before Start.
func (c *Component) Storage() Storage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.storage
}

// Name implements component.Component.
func (c *Component) Name() string { return "storage" }

// Start creates the backend.
func (c *Component) Start(ctx context.Context) error {
	s, err := New(ctx, c.cfg)
	if err != nil {
		return fmt.Errorf("storage start: %w", err)
	}
	c.mu.Lock()
	c.storage = s
	c.mu.Unlock()
	return nil
}

// Stop releases the backend.
func (c *Component) Stop(context.Context) error {
	c.mu.Lock()
	c.storage = nil
	c.mu.Unlock()
	return nil
}

// Health probes the backend with an existence check.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	s := c.Storage()
	if s == nil {
		h.Status, h.Message = component.StatusUnhealthy, "storage not initialized"
		return h
	}
	if _, err := s.Exists(ctx, ".health"); err != nil {
		h.Status, h.Message = component.StatusUnhealthy, fmt.Sprintf("health probe failed: %v", err)
	}
	return h
}

// Describe implements component.Describable.
func (c *Component) Describe() component.Description {
	return component.Description{Name: "Transcript Storage", Type: "storage", Details: c.cfg.Details()}
}
