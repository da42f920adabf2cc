package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"authgate/api/internal/security"
	"authgate/api/internal/session"
)

const identityKey = "identity"

// Identify attaches the verified session claims to the context when the
// request carries a valid session cookie. It never rejects a request; an
// absent or invalid token simply leaves the request anonymous.
func Identify(tokens *security.TokenService, transport *session.Transport) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := transport.Read(c); ok {
			if claims, err := tokens.Verify(token); err == nil {
				c.Set(identityKey, claims)
			}
		}
		c.Next()
	}
}

func IdentityFrom(c *gin.Context) (security.Claims, bool) {
	val, exists := c.Get(identityKey)
	if !exists {
		return security.Claims{}, false
	}
	claims, ok := val.(security.Claims)
	return claims, ok
}

func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := IdentityFrom(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "Authentication required.",
			})
			return
		}
		c.Next()
	}
}
