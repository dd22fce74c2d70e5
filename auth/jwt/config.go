package jwt

import (
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// SigningMethod is a supported HMAC algorithm.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS384 SigningMethod = "HS384"
	HS512 SigningMethod = "HS512"
)

// minSecretLen rejects secrets too short to resist brute force.
const minSecretLen = 32

// Config configures the token service.
type Config struct {
	// Secret is the HMAC signing key.
	Secret string `yaml:"secret" mapstructure:"secret"`
	// Method is the signing algorithm (default: HS256).
	Method SigningMethod `yaml:"method" mapstructure:"method"`
	// Issuer is the "iss" claim, checked on parse when set.
	Issuer string `yaml:"issuer" mapstructure:"issuer"`
	// Audience is the "aud" claim, checked on parse when set.
	Audience []string `yaml:"audience" mapstructure:"audience"`
	// AccessTokenTTL is the lifetime of issued tokens (default: 24h).
	AccessTokenTTL time.Duration `yaml:"access_token_ttl" mapstructure:"access_token_ttl"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.Issuer == "" {
		c.Issuer = "diarscribe"
	}
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = 24 * time.Hour
	}
}

// Validate checks the secret and algorithm.
func (c *Config) Validate() error {
	switch c.Method {
	case HS256, HS384, HS512:
	default:
		return errors.New("unsupported signing method: " + string(c.Method))
	}
	if len(c.Secret) < minSecretLen {
		return errors.New("secret must be at least 32 bytes")
	}
	if c.AccessTokenTTL < 0 {
		return errors.New("access_token_ttl must be non-negative")
	}
	return nil
}

func (c *Config) signingMethod() gojwt.SigningMethod {
	switch c.Method {
	case HS384:
		return gojwt.SigningMethodHS384
	case HS512:
		return gojwt.SigningMethodHS512
	default:
		return gojwt.SigningMethodHS256
	}
}

func (c *Config) key() []byte {
	return []byte(c.Secret)
}
