package observability

import (
	"context"
	"errors"
	"sync"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/diarscribe/component"
	"github.com/kbukum/diarscribe/logger"
)

// Component owns the tracer and meter providers. When the configuration is
// disabled Start does nothing and the global no-op providers stay in place.
type Component struct {
	id  Identity
	cfg Config

	mu sync.Mutex
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

var _ component.Component = (*Component)(nil)

// NewComponent creates the telemetry component.
func NewComponent(id Identity, cfg Config) *Component {
	cfg.ApplyDefaults()
	return &Component{id: id, cfg: cfg}
}

// Name implements component.Component.
func (c *Component) Name() string { return "observability" }

// Start implements component.Component.
func (c *Component) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}
	tp, err := InitTracer(ctx, c.id, c.cfg)
	if err != nil {
		return err
	}
	mp, err := InitMeter(ctx, c.id, c.cfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return err
	}
	c.mu.Lock()
	c.tp, c.mp = tp, mp
	c.mu.Unlock()
	return nil
}

// Stop flushes and shuts down the providers.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	tp, mp := c.tp, c.mp
	c.tp, c.mp = nil, nil
	c.mu.Unlock()

	var errs []error
	if tp != nil {
		errs = append(errs, tp.Shutdown(ctx))
	}
	if mp != nil {
		errs = append(errs, mp.Shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		logger.Get("observability").Warn("telemetry shutdown failed", logger.ErrorFields("shutdown", err))
		return err
	}
	return nil
}

// Health implements component.Component.
func (c *Component) Health(context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if !c.cfg.Enabled {
		h.Message = "disabled"
	}
	return h
}

// Describe implements component.Describable.
func (c *Component) Describe() component.Description {
	details := "disabled"
	if c.cfg.Enabled {
		details = "otlp " + c.cfg.Endpoint
	}
	return component.Description{Name: "Telemetry", Type: "observability", Details: details}
}
