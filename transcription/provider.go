package transcription

import (
	"context"

	"github.com/kbukum/diarscribe/provider"
)

// Provider is implemented by speech-to-text backends.
type Provider interface {
	provider.Provider
	Transcribe(ctx context.Context, req Request) (*Response, error)
}

// Stage is the pipeline stage name used in logs, spans and metrics.
const Stage = "transcribe"

// Registry maps backend names to factories.
type Registry = provider.Registry[Provider, Config]

// Manager holds the initialized backends.
type Manager = provider.Manager[Provider, Config]

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return provider.NewRegistry[Provider, Config]()
}

// NewManager creates a manager that prefers the backends in priority order.
func NewManager(reg *Registry, priority ...string) *Manager {
	return provider.NewManager(reg, &provider.PrioritySelector[Provider]{Priority: priority})
}

// AsRequestResponse adapts p so provider middleware can wrap it.
func AsRequestResponse(p Provider) provider.RequestResponse[Request, *Response] {
	return provider.Func(p, p.Transcribe)
}
