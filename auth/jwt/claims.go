package jwt

import (
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Claims are the claims carried by API tokens.
type Claims struct {
	gojwt.RegisteredClaims
	// Scope is informational; every valid token may use the whole API.
	Scope string `json:"scope,omitempty"`
}

// NewClaims returns empty claims for parsing.
func NewClaims() *Claims { return &Claims{} }

// SetDefaults fills the time and issuer claims that are still unset.
func (c *Claims) SetDefaults(now time.Time, ttl time.Duration, issuer string, audience []string) {
	if c.IssuedAt == nil {
		c.IssuedAt = gojwt.NewNumericDate(now)
	}
	if c.ExpiresAt == nil && ttl > 0 {
		c.ExpiresAt = gojwt.NewNumericDate(now.Add(ttl))
	}
	if c.Issuer == "" {
		c.Issuer = issuer
	}
	if len(c.Audience) == 0 && len(audience) > 0 {
		c.Audience = audience
	}
}
