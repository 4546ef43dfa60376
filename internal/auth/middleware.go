package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextAdminID is the gin context key holding the authenticated admin id.
const ContextAdminID = "adminID"

// AdminAuth enforces bearer JWT tokens signed with HS256. Missing, malformed
// and expired tokens all produce the same 401.
func AdminAuth(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		c.Set(ContextAdminID, claims.AdminID)
		c.Next()
	}
}

// AdminID returns the authenticated admin id attached by AdminAuth.
func AdminID(c *gin.Context) (int, bool) {
	v, ok := c.Get(ContextAdminID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int)
	return id, ok
}
