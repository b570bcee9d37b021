package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/middleware"
	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/service"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

const metaRecipientResolved = "recipient_resolved"

type submissionService interface {
	Submit(ctx context.Context, actor models.UserProfile, req service.CreateSubmissionRequest, doc *service.DocumentUpload) (*service.SubmissionResult, error)
	Mine(ctx context.Context, actor models.UserProfile, page, size int) ([]models.WorkSubmission, *models.Pagination, error)
	Inbox(ctx context.Context, actor models.UserProfile, status models.SubmissionStatus, page, size int) ([]models.WorkSubmission, *models.Pagination, error)
	Get(ctx context.Context, actor models.UserProfile, id string) (*models.WorkSubmission, error)
	Review(ctx context.Context, actor models.UserProfile, id string, req service.ReviewSubmissionRequest) (*models.WorkSubmission, error)
}

// SubmissionHandler exposes teacher work submissions and their review.
type SubmissionHandler struct {
	service submissionService
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(svc submissionService) *SubmissionHandler {
	return &SubmissionHandler{service: svc}
}

// Create godoc
// @Summary Submit work
// @Description Routes the submission to the submitter's head of class or a director. meta.recipient_resolved is false when nobody could be found.
// @Tags Submissions
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param work_type formData string true "lesson_plan, assignment, exam, report, curriculum or other"
// @Param description formData string true "Description"
// @Param subject formData string false "Subject"
// @Param grade_level formData string false "Grade level"
// @Param document formData file false "Document"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /submissions [post]
func (h *SubmissionHandler) Create(c *gin.Context) {
	actor, ok := currentProfile(c)
	if !ok {
		return
	}
	var req service.CreateSubmissionRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err, "invalid submission payload"))
		return
	}

	var doc *service.DocumentUpload
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if header, err := c.FormFile("document"); err == nil {
			file, err := header.Open()
			if err != nil {
				response.Error(c, appErrors.Internal(err, "failed to read upload"))
				return
			}
			defer file.Close()
			doc = &service.DocumentUpload{Filename: header.Filename, Content: file}
		}
	}

	result, err := h.service.Submit(c.Request.Context(), *actor, req, doc)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, metaRecipientResolved, result.RecipientResolved)
	response.Created(c, result.Submission, middleware.ExtractMeta(c))
}

// Mine godoc
// @Summary My submissions
// @Tags Submissions
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /submissions/mine [get]
func (h *SubmissionHandler) Mine(c *gin.Context) {
	actor, ok := currentProfile(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	items, pagination, err := h.service.Mine(c.Request.Context(), *actor, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Inbox godoc
// @Summary Submissions to review
// @Tags Submissions
// @Produce json
// @Param status query string false "pending (default), approved, rejected or revision"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /submissions/review [get]
func (h *SubmissionHandler) Inbox(c *gin.Context) {
	actor, ok := currentProfile(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	status := models.SubmissionStatus(strings.TrimSpace(c.Query("status")))
	items, pagination, err := h.service.Inbox(c.Request.Context(), *actor, status, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Submission detail
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	actor, ok := currentProfile(c)
	if !ok {
		return
	}
	submission, err := h.service.Get(c.Request.Context(), *actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Review godoc
// @Summary Review submission
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body service.ReviewSubmissionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /submissions/{id}/review [post]
func (h *SubmissionHandler) Review(c *gin.Context) {
	actor, ok := currentProfile(c)
	if !ok {
		return
	}
	var req service.ReviewSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid review payload"))
		return
	}
	submission, err := h.service.Review(c.Request.Context(), *actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}
