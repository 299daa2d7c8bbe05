package middleware

import (
	"context"
	"net/http"
	"strings"

	"earn_webapp/internal/domain"
	"earn_webapp/internal/service"

	"github.com/gin-gonic/gin"
)

// SessionCookie carries the token for browser clients
const SessionCookie = "session"

const userKey = "user"

// TokenParser resolves a session token into a user id
type TokenParser interface {
	Parse(token string) (string, error)
}

// UserLoader loads the user behind a session
type UserLoader interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// Auth rejects requests without a valid session
func Auth(tokens TokenParser, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, tokens, users) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid session is present
func OptionalAuth(tokens TokenParser, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, tokens, users)
		c.Next()
	}
}

// RequireAdmin must run after Auth or OptionalAuth
func RequireAdmin(policy service.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if !policy.IsAdmin(u) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user attached by Auth
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*domain.User)
	return u, ok && u != nil
}

func authenticate(c *gin.Context, tokens TokenParser, users UserLoader) bool {
	token := bearerToken(c)
	if token == "" {
		return false
	}
	userID, err := tokens.Parse(token)
	if err != nil {
		return false
	}
	u, err := users.GetUser(c.Request.Context(), userID)
	if err != nil {
		return false
	}
	c.Set(userKey, u)
	return true
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	// browsers cannot set headers on websocket upgrades
	if c.IsWebsocket() {
		return c.Query("token")
	}
	return ""
}
