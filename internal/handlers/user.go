package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-tracker-api/internal/dto"
	apierrors "github.com/yukikurage/project-tracker-api/internal/errors"
	"github.com/yukikurage/project-tracker-api/internal/filters"
	"github.com/yukikurage/project-tracker-api/internal/models"
	"github.com/yukikurage/project-tracker-api/internal/services"
	"github.com/yukikurage/project-tracker-api/internal/utils"
	"go.uber.org/zap"
)

type UserHandler struct {
	users  *services.UserService
	today  func() time.Time
	logger *zap.Logger
}

// NewUserHandler creates a UserHandler. today is the day overdue is
// evaluated against when rendering tasks.
func NewUserHandler(users *services.UserService, today func() time.Time, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, today: today, logger: logger}
}

// ListUsers is staff only
func (h *UserHandler) ListUsers(c *gin.Context) {
	user, err := actor(c)
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	page, err := h.users.List(c.Request.Context(), user, includeDeleted(c), utils.ParsePageParams(c.Request.URL.Query()))
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, utils.MapPage(page, dto.ToUserDTO))
}

// GetUser returns the user with the projects they take part in
func (h *UserHandler) GetUser(c *gin.Context) {
	user, id, ok := h.target(c)
	if !ok {
		return
	}

	found, projects, err := h.users.Get(c.Request.Context(), user, id, includeDeleted(c))
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDetailDTO(*found, projects))
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	user, id, ok := h.target(c)
	if !ok {
		return
	}
	var req struct {
		FullName *string `json:"full_name"`
		IsActive *bool   `json:"is_active"`
		IsStaff  *bool   `json:"is_staff"`
	}
	if err := bindJSON(c, &req); err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	updated, err := h.users.Update(c.Request.Context(), user, id, services.UpdateUserInput{
		FullName: req.FullName,
		IsActive: req.IsActive,
		IsStaff:  req.IsStaff,
	})
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*updated))
}

// ChangePassword requires the old password unless the caller is staff
func (h *UserHandler) ChangePassword(c *gin.Context) {
	user, id, ok := h.target(c)
	if !ok {
		return
	}
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := bindJSON(c, &req); err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	if err := h.users.ChangePassword(c.Request.Context(), user, id, services.ChangePasswordInput{
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	}); err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password updated",
	})
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	user, id, ok := h.target(c)
	if !ok {
		return
	}

	if err := h.users.Delete(c.Request.Context(), user, id); err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *UserHandler) RestoreUser(c *gin.Context) {
	user, id, ok := h.target(c)
	if !ok {
		return
	}

	restored, err := h.users.Restore(c.Request.Context(), user, id)
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*restored))
}

// ListTasks returns tasks assigned to the user
func (h *UserHandler) ListTasks(c *gin.Context) {
	user, id, ok := h.target(c)
	if !ok {
		return
	}

	query := c.Request.URL.Query()
	page, err := h.users.Tasks(c.Request.Context(), user, id, filters.ParseTaskFilter(query), utils.ParsePageParams(query))
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	today := h.today()
	c.JSON(http.StatusOK, utils.MapPage(page, func(t models.Task) dto.TaskDTO {
		return dto.ToTaskDTO(t, today)
	}))
}

// Summary returns task counts per status plus the overdue count
func (h *UserHandler) Summary(c *gin.Context) {
	user, id, ok := h.target(c)
	if !ok {
		return
	}

	summary, err := h.users.Summary(c.Request.Context(), user, id)
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserSummaryDTO(summary.UserID, summary.Counts, summary.Overdue, summary.Total))
}

func (h *UserHandler) target(c *gin.Context) (*models.User, uint64, bool) {
	user, err := actor(c)
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return nil, 0, false
	}
	id, err := pathID(c, "id", "user")
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return nil, 0, false
	}
	return user, id, true
}
