package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apierrors "github.com/cypher-asi/aura-swarm-sub000/internal/apierrors"
)

const (
	claimsContextKey = "auth_claims"
)

// Middleware validates the request's bearer token with v and stores the
// resulting claims in the Gin context for downstream handlers. WebSocket
// upgrade requests fall back to a "token" query parameter, since browsers
// cannot set custom headers on the upgrade request.
func Middleware(v Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		isWebSocket := strings.EqualFold(c.GetHeader("Upgrade"), "websocket") &&
			strings.Contains(strings.ToLower(c.GetHeader("Connection")), "upgrade")

		token := ""
		if isWebSocket {
			token = c.Query("token")
		}
		if token == "" {
			header := c.GetHeader("Authorization")
			parts := strings.SplitN(header, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				token = parts[1]
			}
		}

		if token == "" {
			if isWebSocket {
				c.AbortWithStatus(http.StatusUnauthorized)
				return
			}
			apierrors.AbortWithError(c, apierrors.Unauthorized("authorization header required"))
			return
		}

		claims, err := v.Validate(c.Request.Context(), token)
		if err != nil {
			if isWebSocket {
				c.AbortWithStatus(http.StatusUnauthorized)
				return
			}
			apierrors.AbortWithError(c, apierrors.Unauthorized(err.Error()))
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

// ClaimsFromContext retrieves the claims Middleware stored on c.
func ClaimsFromContext(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsContextKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}

// RequireMFA rejects requests whose claims report MFA has not been
// completed. Must run after Middleware.
func RequireMFA() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok || !claims.MfaVerified {
			apierrors.AbortWithError(c, apierrors.MfaRequired())
			return
		}
		c.Next()
	}
}

// InternalServiceAuth restricts a route to callers presenting a valid
// internal service token (the reconciler's HMAC channel), distinct from the
// user-facing JWKS bearer token.
func InternalServiceAuth(m *ServiceTokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("X-Service-Token")
		if token == "" {
			apierrors.AbortWithError(c, apierrors.Unauthorized("service token required"))
			return
		}
		if err := m.Verify(token); err != nil {
			apierrors.AbortWithError(c, apierrors.Unauthorized("invalid service token"))
			return
		}
		c.Next()
	}
}
