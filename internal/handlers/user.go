package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskdesk-api/internal/dto"
	apierrors "github.com/yukikurage/taskdesk-api/internal/errors"
	"github.com/yukikurage/taskdesk-api/internal/middleware"
	"github.com/yukikurage/taskdesk-api/internal/services"
	"github.com/yukikurage/taskdesk-api/internal/utils"
)

// UserHandler serves the user directory.
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ListUsers searches users by name or email. Task counts are joined unless
// taskCount is set to something other than "1".
func (h *UserHandler) ListUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	items, total, err := h.userService.ListUsers(c.Request.Context(), services.ListUsersInput{
		Query:             c.Query("query"),
		Page:              params.Page,
		PageSize:          params.Limit,
		IncludeTaskCounts: c.DefaultQuery("taskCount", "1") == "1",
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UserListResponse{
		Success:    true,
		Users:      dto.ToUserListDTOs(items),
		TotalPages: utils.TotalPages(total, params.Limit),
	})
}

// GetUser returns one user.
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    dto.ToUserDTO(*user),
	})
}

// CreateUser creates a user on behalf of the admin.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, &req)
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), req.ToInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"user":    dto.ToUserDTO(*user),
	})
}

// UpdateUser partially updates a profile. Users may update only themselves.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, &req)
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), identity, c.Param("id"), req.ToInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User updated successfully",
		"user":    dto.ToUserDTO(*user),
	})
}

// DeleteUser removes a user.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.userService.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User deleted",
	})
}
