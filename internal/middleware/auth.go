package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/carom/internal/auth"
)

const claimsKey = "player_claims"

// PlayerAuth requires a player token in the Authorization header and, when
// the route has a :token parameter, that the token belongs to that match.
func PlayerAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bearer token required"})
			return
		}

		claims, err := auth.ParsePlayerToken(secret, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if token := c.Param("token"); token != "" && token != claims.MatchToken {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token is for another match"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// Claims returns the claims stored by PlayerAuth.
func Claims(c *gin.Context) (*auth.PlayerClaims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.PlayerClaims)
	return claims, ok
}
