package middleware

import (
	"net/http"
	"strings"

	"kavyalok/auth"
	"kavyalok/logger"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// Authenticate verifies the bearer token and stores the identity in the
// context for CurrentIdentity.
func Authenticate(verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip middleware for OPTIONS requests (CORS preflight)
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must be: Bearer <token>"})
			return
		}

		id, err := verifier.Verify(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			logger.Log.WithError(err).WithField("path", c.Request.URL.Path).Debug("Token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

// CurrentIdentity returns the identity Authenticate stored, or nil on public
// routes.
func CurrentIdentity(c *gin.Context) *auth.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*auth.Identity)
	return id
}
