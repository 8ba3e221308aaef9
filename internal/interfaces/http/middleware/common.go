package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/erp/bridge/internal/infrastructure/auth"
	"github.com/gin-gonic/gin"
)

// Secure adds security headers to responses
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("Referrer-Policy", "no-referrer")
		c.Writer.Header().Set("Cache-Control", "no-store")
		c.Next()
	}
}

// ServiceToken rejects requests without "Authorization: Bearer <jwt>" signed
// by tokens. A TokenService without secret disables the check. The subject of
// an accepted token is stored under "token_subject".
func ServiceToken(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens == nil || !tokens.Enabled() {
			c.Next()
			return
		}
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			unauthorized(c, "missing API token")
			return
		}
		claims, err := tokens.Validate(raw)
		if err != nil {
			message := "invalid API token"
			if errors.Is(err, auth.ErrExpiredToken) {
				message = "API token has expired"
			}
			unauthorized(c, message)
			return
		}
		c.Set("token_subject", claims.Subject)
		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", `Bearer realm="bridge"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "ERR_UNAUTHORIZED",
			"message": message,
		},
	})
}
