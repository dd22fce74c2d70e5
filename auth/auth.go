package auth

// TokenValidator validates a bearer token and returns the parsed claims.
// The HTTP middleware depends on this interface rather than on the JWT
// implementation. The claims are stored in the request context via
// authctx.Set and read back with authctx.Get[T].
type TokenValidator interface {
	ValidateToken(token string) (any, error)
}

// TokenValidatorFunc adapts an ordinary function to TokenValidator.
type TokenValidatorFunc func(token string) (any, error)

// ValidateToken implements TokenValidator.
func (f TokenValidatorFunc) ValidateToken(token string) (any, error) {
	return f(token)
}

// NewValidator wraps fn, typically jwt.Service[T].ValidatorFunc().
func NewValidator(fn func(string) (any, error)) TokenValidator {
	return TokenValidatorFunc(fn)
}
