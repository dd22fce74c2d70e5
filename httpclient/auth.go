package httpclient

import "net/http"

// AuthType identifies the authentication method.
type AuthType int

const (
	// AuthNone sends no credentials.
	AuthNone AuthType = iota
	// AuthBearer sends "Authorization: Bearer <token>".
	AuthBearer
)

// AuthConfig configures request authentication.
type AuthConfig struct {
	Type  AuthType
	Token string
}

// BearerAuth returns a bearer token config, or nil when token is empty.
func BearerAuth(token string) *AuthConfig {
	if token == "" {
		return nil
	}
	return &AuthConfig{Type: AuthBearer, Token: token}
}

func (a *AuthConfig) apply(req *http.Request) {
	if a == nil {
		return
	}
	if a.Type == AuthBearer {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}
}
