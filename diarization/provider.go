package diarization

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/diarscribe/provider"
)

// Provider is implemented by speaker diarization backends.
type Provider interface {
	provider.Provider
	Diarize(ctx context.Context, req Request) (*Response, error)
}

// Stage is the pipeline stage name used in logs, spans and metrics.
const Stage = "diarize"

// MaxSpeakers is the upper bound accepted for the speaker count hints.
const MaxSpeakers = 20

// Config configures the diarization backend.
type Config struct {
	// Enabled turns diarization off entirely when false.
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Provider string `yaml:"provider" mapstructure:"provider"`
	URL      string `yaml:"url" mapstructure:"url"`
	// Token is the server-side fallback token used when the user leaves the
	// form field empty.
	Token   string        `yaml:"token" mapstructure:"token"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	Resilience provider.ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = "pyannote"
	}
	if c.URL == "" {
		c.URL = "http://localhost:8388"
	}
	if c.Timeout <= 0 {
		c.Timeout = time.Hour
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Enabled && c.URL == "" {
		return fmt.Errorf("diarization.url is required when enabled")
	}
	return nil
}

// ValidateSpeakers checks the optional speaker count hints.
func ValidateSpeakers(minSpeakers, maxSpeakers int) error {
	if minSpeakers < 0 || minSpeakers > MaxSpeakers {
		return fmt.Errorf("min_speakers must be within [0, %d]", MaxSpeakers)
	}
	if maxSpeakers < 0 || maxSpeakers > MaxSpeakers {
		return fmt.Errorf("max_speakers must be within [0, %d]", MaxSpeakers)
	}
	if minSpeakers > 0 && maxSpeakers > 0 && minSpeakers > maxSpeakers {
		return fmt.Errorf("min_speakers (%d) exceeds max_speakers (%d)", minSpeakers, maxSpeakers)
	}
	return nil
}

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
	return provider.Func(p, p.Diarize)
}
