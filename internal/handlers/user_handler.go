package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobsphere/internal/middleware"
	"jobsphere/internal/models"
	"jobsphere/internal/services"
)

type UserHandler struct {
	users services.UserService
	log   *slog.Logger
}

func NewUserHandler(users services.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, log: logger.With("component", "user-handler")}
}

// @Summary      Update profile
// @Description  Partial update; only the fields present in the body change
// @Tags         Profile
// @Accept       json
// @Produce      json
// @Param        body  body      models.ProfileUpdate  true  "Fields to change"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Failure      401   {object}  map[string]interface{}
// @Router       /api/profile/update [post]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	req, ok := bindLenient[models.ProfileUpdate](c, h.log)
	if !ok {
		return
	}

	if err := h.users.UpdateProfile(c.Request.Context(), user.ID, req); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Profile updated"})
}

// @Summary      Update settings
// @Tags         Profile
// @Accept       json
// @Produce      json
// @Param        body  body      models.SettingsUpdate  true  "Settings to change"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Failure      401   {object}  map[string]interface{}
// @Router       /api/settings/update [post]
func (h *UserHandler) UpdateSettings(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	req, ok := bindLenient[models.SettingsUpdate](c, h.log)
	if !ok {
		return
	}

	if err := h.users.UpdateSettings(c.Request.Context(), user.ID, req); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Settings updated"})
}
