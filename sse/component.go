package sse

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/diarscribe/component"
)

// Component runs the hub for the application lifecycle.
type Component struct {
	hub  *Hub
	path string
	wg   sync.WaitGroup
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a component with a fresh hub. path is only used for
// the startup summary.
func NewComponent(path string) *Component {
	return &Component{hub: NewHub(), path: path}
}

// Hub returns the hub for publishing and serving streams.
func (c *Component) Hub() *Hub { return c.hub }

// Name implements component.Component.
func (c *Component) Name() string { return "sse" }

// Start launches the hub loop.
func (c *Component) Start(context.Context) error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.hub.Run()
	}()
	return nil
}

// Stop ends every stream and waits for the hub loop to return.
func (c *Component) Stop(context.Context) error {
	c.hub.Stop()
	c.wg.Wait()
	return nil
}

// Health reports the number of open streams.
func (c *Component) Health(context.Context) component.Health {
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d clients connected", c.hub.ClientCount()),
	}
}

// Describe implements component.Describable.
func (c *Component) Describe() component.Description {
	return component.Description{Name: "SSE Hub", Type: "sse", Details: "Path: " + c.path}
}
