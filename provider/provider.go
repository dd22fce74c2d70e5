package provider

import "context"

// Provider is the base interface every backend implements.
type Provider interface {
	// Name returns the provider's unique name.
	Name() string
	// IsAvailable checks if the provider is ready to handle requests.
	IsAvailable(ctx context.Context) bool
}

// Initializable is implemented by providers that need setup before the first
// request, such as resolving a binary on PATH. Manager.Initialize calls it.
type Initializable interface {
	Init(ctx context.Context) error
}

// RequestResponse is a provider that maps one input to one output.
// Middleware and resilience wrap providers through this shape.
type RequestResponse[I, O any] interface {
	Provider
	Execute(ctx context.Context, input I) (O, error)
}

// Factory creates a provider instance from its typed configuration.
type Factory[T Provider, C any] func(cfg C) (T, error)

// Func adapts a plain function into a RequestResponse provider that shares
// the name and availability of p.
func Func[I, O any](p Provider, fn func(ctx context.Context, input I) (O, error)) RequestResponse[I, O] {
	return &funcRR[I, O]{Provider: p, fn: fn}
}

type funcRR[I, O any] struct {
	Provider
	fn func(ctx context.Context, input I) (O, error)
}

func (f *funcRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	return f.fn(ctx, input)
}
