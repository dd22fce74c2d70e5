package provider

import (
	"context"
	"errors"

	apperrors "github.com/kbukum/diarscribe/errors"
	"github.com/kbukum/diarscribe/httpclient"
	"github.com/kbukum/diarscribe/resilience"
)

// WithResilience wraps a provider with the configured retry and circuit breaker.
// The state is built once so every call shares one breaker.
func WithResilience[I, O any](cfg ResilienceConfig) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		if cfg.IsEmpty() {
			return inner
		}
		return &resilientRR[I, O]{inner: inner, state: BuildResilience(inner.Name(), cfg)}
	}
}

type resilientRR[I, O any] struct {
	inner RequestResponse[I, O]
	state *ResilienceState
}

func (r *resilientRR[I, O]) Name() string { return r.inner.Name() }

// IsAvailable reports false while the circuit is open.
func (r *resilientRR[I, O]) IsAvailable(ctx context.Context) bool {
	return r.state.CircuitState() != resilience.StateOpen && r.inner.IsAvailable(ctx)
}

func (r *resilientRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	return ExecuteWithResilience(ctx, r.state, func() (O, error) {
		return r.inner.Execute(ctx, input)
	})
}

// ExecuteWithResilience runs fn as CircuitBreaker → Retry → fn.
// A nil state calls fn directly. Resilience sentinel errors are converted to
// AppErrors; errors returned by fn pass through unchanged.
func ExecuteWithResilience[T any](ctx context.Context, s *ResilienceState, fn func() (T, error)) (T, error) {
	if s == nil {
		return fn()
	}

	call := fn
	if s.retryCfg != nil {
		retryCfg := *s.retryCfg
		call = func() (T, error) {
			return resilience.Retry(ctx, retryCfg, fn)
		}
	}

	if s.cb == nil {
		return call()
	}

	var result T
	var callErr error
	cbErr := s.cb.Execute(func() error {
		result, callErr = call()
		return callErr
	})
	if cbErr != nil && callErr == nil {
		return result, wrapResilienceError(cbErr)
	}
	return result, callErr
}

// Retryable is the default retry predicate for backend calls. A sidecar HTTP
// error anywhere in the chain decides on its own classification. Otherwise
// AppErrors retry only when flagged retryable, context errors never retry and
// anything else does.
func Retryable(err error) bool {
	if errors.As(err, new(*httpclient.Error)) {
		return httpclient.IsRetryable(err)
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.Retryable
	}
	return resilience.DefaultRetryIf(err)
}

func wrapResilienceError(err error) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return apperrors.ServiceUnavailable("speech backend").WithCause(err)
	case errors.Is(err, context.Canceled):
		return apperrors.Timeout("request canceled").WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Timeout("deadline exceeded").WithCause(err)
	default:
		return err
	}
}
