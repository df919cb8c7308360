package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobsphere/internal/models"
	"jobsphere/internal/services"
)

const (
	SessionCookieName = "session_token"

	userContextKey = "user"
)

// SessionAuth resolves the session cookie and stores the user in the gin
// context. Requests without a live session are rejected with 401.
func SessionAuth(sessions services.SessionService, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		token, _ := c.Cookie(SessionCookieName)
		user, err := sessions.ResolveSession(c.Request.Context(), token)
		if err != nil {
			log.ErrorContext(c.Request.Context(), "session lookup failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Not authenticated"})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// CurrentUser returns the user SessionAuth attached to the request.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}
