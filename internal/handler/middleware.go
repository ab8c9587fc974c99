package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Identity headers for participant requests.
const (
	HeaderEventMode = "X-Event-Mode"
	HeaderNickname  = "X-Nickname"
	HeaderTeamCode  = "X-Team-Code"
)

// Gin context keys set by RequireEventHeaders.
const (
	ctxNickname = "nickname"
	ctxTeamCode = "team_code"
)

// RequireEventHeaders authenticates participant requests: X-Event-Mode must
// be "true" and both X-Nickname and X-Team-Code must be present.
func RequireEventHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.EqualFold(c.GetHeader(HeaderEventMode), "true") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "event_mode_required"})
			return
		}
		nickname := strings.TrimSpace(c.GetHeader(HeaderNickname))
		teamCode := strings.TrimSpace(c.GetHeader(HeaderTeamCode))
		if nickname == "" || teamCode == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity_headers_required"})
			return
		}
		c.Set(ctxNickname, nickname)
		c.Set(ctxTeamCode, teamCode)
		c.Next()
	}
}

// RequireAdminToken authenticates operator requests with a static bearer
// token. With no token configured the operator surface is disabled.
func RequireAdminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "admin_disabled"})
			return
		}
		auth := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(auth, prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bearer_token_required"})
			return
		}
		presented := strings.TrimSpace(auth[len(prefix):])
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}
		c.Next()
	}
}

func nicknameFrom(c *gin.Context) string { return c.GetString(ctxNickname) }
func teamCodeFrom(c *gin.Context) string { return c.GetString(ctxTeamCode) }
