package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mine-game-backend/internal/services"
)

// TokenCookie carries the guest token for browsers that cannot set headers,
// such as the websocket handshake.
const TokenCookie = "mine_token"

// PlayerIDKey is the gin context key holding the authenticated player id.
const PlayerIDKey = "player_id"

func AuthMiddleware(jwtService *services.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		var tokenString string

		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
				c.Abort()
				return
			}
			tokenString = parts[1]
		} else if tokenString = c.Query("token"); tokenString == "" {
			tokenString, _ = c.Cookie(TokenCookie)
		}

		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(PlayerIDKey, claims.PlayerID)

		c.Next()
	}
}
