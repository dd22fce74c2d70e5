package provider

import (
	"github.com/kbukum/diarscribe/resilience"
)

// ResilienceConfig bundles optional resilience policies for a backend.
// Nil fields are skipped.
type ResilienceConfig struct {
	// CircuitBreaker stops calling a backend after repeated failures.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
	// Retry repeats failed calls with exponential backoff.
	Retry *resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// IsEmpty returns true if no resilience policies are configured.
func (c ResilienceConfig) IsEmpty() bool {
	return c.CircuitBreaker == nil && c.Retry == nil
}

// ResilienceState holds the primitives built from a ResilienceConfig.
// It is shared by every call to the same backend so the breaker sees all failures.
type ResilienceState struct {
	cb       *resilience.CircuitBreaker
	retryCfg *resilience.RetryConfig
}

// BuildResilience creates resilience primitives for the named backend.
// It returns nil for an empty config.
func BuildResilience(name string, cfg ResilienceConfig) *ResilienceState {
	if cfg.IsEmpty() {
		return nil
	}
	s := &ResilienceState{}
	if cfg.Retry != nil {
		retryCfg := *cfg.Retry
		if retryCfg.RetryIf == nil {
			retryCfg.RetryIf = Retryable
		}
		s.retryCfg = &retryCfg
	}
	if cfg.CircuitBreaker != nil {
		cbCfg := *cfg.CircuitBreaker
		if cbCfg.Name == "" {
			cbCfg.Name = name
		}
		s.cb = resilience.NewCircuitBreaker(cbCfg)
	}
	return s
}

// CircuitState reports the breaker state, or closed when no breaker is configured.
func (s *ResilienceState) CircuitState() resilience.State {
	if s == nil || s.cb == nil {
		return resilience.StateClosed
	}
	return s.cb.State()
}
