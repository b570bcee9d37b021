package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/dto"
	"github.com/noah-isme/school-admin-api/internal/middleware"
	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type dashboardService interface {
	Main(ctx context.Context, profile models.UserProfile) (*dto.MainDashboard, bool, error)
	Teacher(ctx context.Context, profile models.UserProfile) (*dto.TeacherDashboard, error)
	Director(ctx context.Context, profile models.UserProfile) (*dto.DirectorDashboard, error)
	HeadOfClass(ctx context.Context, profile models.UserProfile) (*dto.HeadOfClassDashboard, error)
	Security(ctx context.Context, profile models.UserProfile) (*dto.SecurityDashboard, bool, error)
	Bursar(ctx context.Context, profile models.UserProfile) (*dto.BursarDashboard, bool, error)
	HR(ctx context.Context, profile models.UserProfile) (*dto.HRDashboard, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Main godoc
// @Summary Main dashboard
// @Description Headline counters plus the route of the caller's role dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Main(c *gin.Context) {
	serveCached(c, h.service.Main)
}

// Teacher godoc
// @Summary Teacher dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /dashboard/teacher [get]
func (h *DashboardHandler) Teacher(c *gin.Context) {
	serveLive(c, h.service.Teacher)
}

// Director godoc
// @Summary Director dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /dashboard/director [get]
func (h *DashboardHandler) Director(c *gin.Context) {
	serveLive(c, h.service.Director)
}

// HeadOfClass godoc
// @Summary Head of class dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /dashboard/head-of-class [get]
func (h *DashboardHandler) HeadOfClass(c *gin.Context) {
	serveLive(c, h.service.HeadOfClass)
}

// Security godoc
// @Summary Security dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /dashboard/security [get]
func (h *DashboardHandler) Security(c *gin.Context) {
	serveCached(c, h.service.Security)
}

// Bursar godoc
// @Summary Bursar dashboard
// @Description Fee collection statistics for fee managers
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /dashboard/bursar [get]
func (h *DashboardHandler) Bursar(c *gin.Context) {
	serveCached(c, h.service.Bursar)
}

// HR godoc
// @Summary HR dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /dashboard/hr [get]
func (h *DashboardHandler) HR(c *gin.Context) {
	serveCached(c, h.service.HR)
}

func serveCached[T any](c *gin.Context, load func(context.Context, models.UserProfile) (*T, bool, error)) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}
	payload, cacheHit, err := load(c.Request.Context(), *profile)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, payload, nil, middleware.ExtractMeta(c))
}

func serveLive[T any](c *gin.Context, load func(context.Context, models.UserProfile) (*T, error)) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}
	payload, err := load(c.Request.Context(), *profile)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payload, nil)
}
