package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gogotex/gogotex/backend/crud-service/internal/apperrors"
)

// Context keys set by AuthMiddleware.
const (
	ClaimsKey = "claims"
	TokenKey  = "token"
)

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	VerifyToken(raw string) (map[string]interface{}, error)
}

// RevocationChecker reports whether a token id was revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, id string) (bool, error)
}

// AuthMiddleware returns a Gin middleware that verifies Bearer tokens using
// the provided verifier. A missing or malformed header and a revoked token
// are Unauthorized; a token that fails verification is Forbidden.
// revoked may be nil.
func AuthMiddleware(ver Verifier, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			abort(c, apperrors.Unauthorized("Authorization header missing"))
			return
		}
		token, ok := strings.CutPrefix(auth, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			abort(c, apperrors.Unauthorized("Invalid authorization header"))
			return
		}

		claims, err := ver.VerifyToken(token)
		if err != nil {
			abort(c, err)
			return
		}

		if revoked != nil {
			gone, err := revoked.IsRevoked(c.Request.Context(), TokenID(claims, token))
			if err != nil {
				abort(c, apperrors.Internal(err))
				return
			}
			if gone {
				abort(c, apperrors.Unauthorized("Token has been revoked"))
				return
			}
		}

		c.Set(ClaimsKey, claims)
		c.Set(TokenKey, token)
		c.Next()
	}
}

// TokenID identifies a token for revocation: its jti claim, or the raw
// token when it has none.
func TokenID(claims map[string]interface{}, raw string) string {
	if jti, ok := claims["jti"].(string); ok && jti != "" {
		return jti
	}
	return raw
}

// Claims returns the verified claims stored by AuthMiddleware.
func Claims(c *gin.Context) (map[string]interface{}, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	cm, ok := v.(map[string]interface{})
	return cm, ok
}

// abort writes err in the shared {name, message} shape.
func abort(c *gin.Context, err error) {
	rec := apperrors.Translate(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(rec.StatusCode, rec)
}
