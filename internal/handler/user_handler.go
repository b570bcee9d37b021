package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/service"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type userService interface {
	ListManageable(ctx context.Context, actor models.UserProfile, filter models.ProfileFilter) ([]models.UserProfile, *models.Pagination, error)
	Delete(ctx context.Context, actor models.UserProfile, targetUserID string, meta models.RequestMeta) error
	RoleOptions(ctx context.Context, actor models.UserProfile, targetUserID string) (*service.RoleOptions, error)
	ChangeRole(ctx context.Context, actor models.UserProfile, targetUserID string, req service.ChangeRoleRequest, meta models.RequestMeta) (*models.UserProfile, error)
	CreateStaff(ctx context.Context, actor models.UserProfile, req service.CreateStaffRequest, meta models.RequestMeta) (*models.UserProfile, error)
}

// UserHandler handles user management endpoints.
type UserHandler struct {
	service userService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// List godoc
// @Summary List manageable users
// @Description Profiles the caller may manage, filtered by role and search term
// @Tags Users
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param role query string false "Role filter"
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	actor, ok := currentProfile(c)
	if !ok {
		return
	}
	var filter models.ProfileFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.Search = c.Query("search")
	if raw := c.Query("role"); raw != "" {
		role, err := models.ParseRole(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrUnknownRole, err.Error()))
			return
		}
		filter.Role = &role
	}

	profiles, pagination, err := h.service.ListManageable(c.Request.Context(), *actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profiles, pagination)
}

// Create godoc
// @Summary Create staff account
// @Description Creates a user together with its profile and role
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body service.CreateStaffRequest true "Staff payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	actor, ok := currentProfile(c)
	if !ok {
		return
	}
	var req service.CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid staff payload"))
		return
	}
	profile, err := h.service.CreateStaff(c.Request.Context(), *actor, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, profile)
}

// Roles godoc
// @Summary Roles available for a user
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users/{id}/roles [get]
func (h *UserHandler) Roles(c *gin.Context) {
	actor, ok := currentProfile(c)
	if !ok {
		return
	}
	options, err := h.service.RoleOptions(c.Request.Context(), *actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

// ChangeRole godoc
// @Summary Change a user's role
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body service.ChangeRoleRequest true "Role payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users/{id}/role [put]
func (h *UserHandler) ChangeRole(c *gin.Context) {
	actor, ok := currentProfile(c)
	if !ok {
		return
	}
	var req service.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid role payload"))
		return
	}
	profile, err := h.service.ChangeRole(c.Request.Context(), *actor, c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// Delete godoc
// @Summary Delete user
// @Tags Users
// @Param id path string true "User ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	actor, ok := currentProfile(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), *actor, c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
