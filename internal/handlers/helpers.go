package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"jobsphere/internal/middleware"
	"jobsphere/internal/services"
)

// CookieConfig controls the session cookie.
type CookieConfig struct {
	TTL    time.Duration
	Secure bool
}

// bindLenient decodes a JSON body into T. Empty or malformed bodies decode
// as the zero value so that validation reports the missing fields. A
// well-formed body with a mistyped field is answered with 400 and ok is
// false; the caller must stop.
func bindLenient[T any](c *gin.Context, log *slog.Logger) (req T, ok bool) {
	err := c.ShouldBindJSON(&req)
	if err == nil {
		return req, true
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		log.DebugContext(c.Request.Context(), "body rejected", "path", c.Request.URL.Path, "field", typeErr.Field, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid value for " + typeErr.Field})
		var zero T
		return zero, false
	}

	log.DebugContext(c.Request.Context(), "body ignored", "path", c.Request.URL.Path, "error", err)
	var zero T
	return zero, true
}

func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation, services.KindInvalidCode, services.KindExpired:
		return http.StatusBadRequest
	case services.KindAuth:
		return http.StatusUnauthorized
	case services.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// respondError writes a service error as {success:false,message}. Internal
// causes are logged and replaced by a generic message.
func respondError(c *gin.Context, log *slog.Logger, err error) {
	kind := services.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		log.ErrorContext(c.Request.Context(), "request failed",
			"path", c.Request.URL.Path,
			"request_id", middleware.GetRequestID(c),
			"error", err,
		)
		c.JSON(status, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	msg := err.Error()
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		msg = svcErr.Message
	}
	c.JSON(status, gin.H{"success": false, "message": msg})
}

func setSessionCookie(c *gin.Context, cfg CookieConfig, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(cfg.TTL).UTC(),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(c *gin.Context, cfg CookieConfig) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
