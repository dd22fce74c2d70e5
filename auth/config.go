package auth

import (
	"fmt"

	"github.com/kbukum/diarscribe/auth/jwt"
)

// Config holds API authentication configuration. When disabled the API is
// open, which matches a single-user deployment on a trusted host.
type Config struct {
	Enabled bool       `yaml:"enabled" mapstructure:"enabled"`
	JWT     jwt.Config `yaml:"jwt" mapstructure:"jwt"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	c.JWT.ApplyDefaults()
}

// Validate checks the configuration. The JWT secret is only required when
// authentication is enabled.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := c.JWT.Validate(); err != nil {
		return fmt.Errorf("auth.jwt: %w", err)
	}
	return nil
}

// Describe returns a one-liner for the startup summary.
func (c *Config) Describe() string {
	if !c.Enabled {
		return "disabled"
	}
	return fmt.Sprintf("JWT(%s) TTL=%s", c.JWT.Method, c.JWT.AccessTokenTTL)
}
