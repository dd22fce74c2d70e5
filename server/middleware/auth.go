package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/diarscribe/auth"
	"github.com/kbukum/diarscribe/auth/authctx"
	apperrors "github.com/kbukum/diarscribe/errors"
)

// ClaimsKey is the Gin context key holding validated claims.
const ClaimsKey = "auth_claims"

// AccessTokenParam is the query parameter accepted in place of the
// Authorization header. EventSource cannot set request headers.
const AccessTokenParam = "access_token"

// Auth returns a Gin middleware that requires a valid Bearer token. The
// claims are stored both in the Gin context and in the request context.
func Auth(validator auth.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query(AccessTokenParam)
		if header := c.GetHeader("Authorization"); header != "" {
			scheme, value, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || value == "" {
				abortWithError(c, apperrors.Unauthorized("Invalid authorization header format."))
				return
			}
			token = value
		}
		if token == "" {
			abortWithError(c, apperrors.Unauthorized("Authorization header required."))
			return
		}
		claims, err := validator.ValidateToken(token)
		if err != nil {
			abortWithError(c, apperrors.Unauthorized("Invalid token."))
			return
		}
		c.Set(ClaimsKey, claims)
		c.Request = c.Request.WithContext(authctx.Set(c.Request.Context(), claims))
		c.Next()
	}
}
