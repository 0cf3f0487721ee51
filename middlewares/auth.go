package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"zenny/services"
)

const authUserKey = "authUser"

// Auth resolves the bearer token to a caller identity and stores it on the
// request context. Requests without a valid token never reach the handlers.
func Auth(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No authorization header"})
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		user, err := auth.ResolveToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(authUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the identity stored by the Auth middleware.
func CurrentUser(c *gin.Context) (services.AuthUser, bool) {
	value, exists := c.Get(authUserKey)
	if !exists {
		return services.AuthUser{}, false
	}
	user, ok := value.(services.AuthUser)
	return user, ok
}

// SetCurrentUser injects an identity directly, for handler tests.
func SetCurrentUser(c *gin.Context, user services.AuthUser) {
	c.Set(authUserKey, user)
}
