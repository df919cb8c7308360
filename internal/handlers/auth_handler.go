package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobsphere/internal/middleware"
	"jobsphere/internal/models"
	"jobsphere/internal/services"
)

type AuthHandler struct {
	users           services.UserService
	sessions        services.SessionService
	resets          services.PasswordResetService
	cookies         CookieConfig
	exposeResetCode bool
	log             *slog.Logger
}

func NewAuthHandler(
	users services.UserService,
	sessions services.SessionService,
	resets services.PasswordResetService,
	cookies CookieConfig,
	exposeResetCode bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		users:           users,
		sessions:        sessions,
		resets:          resets,
		cookies:         cookies,
		exposeResetCode: exposeResetCode,
		log:             logger.With("component", "auth-handler"),
	}
}

// @Summary      Sign up
// @Description  Creates an account and starts a session
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.SignupRequest  true  "New account"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Router       /api/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	req, ok := bindLenient[models.SignupRequest](c, h.log)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	user, err := h.users.CreateUser(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	token, err := h.sessions.CreateSession(ctx, user.ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	setSessionCookie(c, h.cookies, token)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Account created"})
}

// @Summary      Log in
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.LoginRequest  true  "Credentials"
// @Success      200   {object}  map[string]interface{}
// @Failure      401   {object}  map[string]interface{}
// @Router       /api/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	req, ok := bindLenient[models.LoginRequest](c, h.log)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	user, err := h.users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	token, err := h.sessions.CreateSession(ctx, user.ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	setSessionCookie(c, h.cookies, token)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Login successful"})
}

// @Summary      Log out
// @Description  Ends the current session. Succeeds without a session too.
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(middleware.SessionCookieName); err == nil && token != "" {
		if err := h.sessions.DestroySession(c.Request.Context(), token); err != nil {
			respondError(c, h.log, err)
			return
		}
	}
	clearSessionCookie(c, h.cookies)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// @Summary      Current session
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/check-session [get]
func (h *AuthHandler) CheckSession(c *gin.Context) {
	token, _ := c.Cookie(middleware.SessionCookieName)
	user, err := h.sessions.ResolveSession(c.Request.Context(), token)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": user.View()})
}

// @Summary      Request a password reset code
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.ForgotPasswordRequest  true  "Account email"
// @Success      200   {object}  map[string]interface{}
// @Failure      404   {object}  map[string]interface{}
// @Router       /api/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	req, ok := bindLenient[models.ForgotPasswordRequest](c, h.log)
	if !ok {
		return
	}

	code, err := h.resets.RequestReset(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	resp := gin.H{"success": true, "message": "Reset code sent"}
	if h.exposeResetCode {
		resp["dev_code"] = code
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      Reset password with a code
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.ResetPasswordRequest  true  "Code and new password"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Router       /api/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	req, ok := bindLenient[models.ResetPasswordRequest](c, h.log)
	if !ok {
		return
	}

	if err := h.resets.CompleteReset(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password reset successful"})
}
