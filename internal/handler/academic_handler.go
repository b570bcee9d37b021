package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/service"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type academicService interface {
	Subjects(ctx context.Context, activeOnly bool) ([]models.Subject, error)
	CreateSubject(ctx context.Context, req service.SubjectRequest) (*models.Subject, error)
	ClassSubjects(ctx context.Context, gradeID, yearID string) ([]models.ClassSubject, error)
	AssignClassSubject(ctx context.Context, req service.ClassSubjectRequest) (*models.ClassSubject, error)
	Exams(ctx context.Context, yearID string) ([]models.Exam, error)
	CreateExam(ctx context.Context, req service.ExamRequest) (*models.Exam, error)
	RecordMark(ctx context.Context, enteredBy string, req service.MarkRequest) (*models.Mark, error)
	Marks(ctx context.Context, studentID, yearID string, term models.FeeTerm) ([]models.Mark, error)
	GenerateReportCard(ctx context.Context, generatedBy string, req service.ReportCardRequest) (*service.ReportCardView, error)
	ReportCard(ctx context.Context, studentID, yearID string, term models.FeeTerm) (*service.ReportCardView, error)
	ReportCardPDF(ctx context.Context, studentID, yearID string, term models.FeeTerm) ([]byte, string, error)
}

// AcademicHandler exposes subjects, exams, marks and report cards.
type AcademicHandler struct {
	service academicService
}

// NewAcademicHandler constructs the handler.
func NewAcademicHandler(svc academicService) *AcademicHandler {
	return &AcademicHandler{service: svc}
}

// Subjects godoc
// @Summary List subjects
// @Tags Academics
// @Produce json
// @Param active query bool false "Only active subjects"
// @Success 200 {object} response.Envelope
// @Router /academics/subjects [get]
func (h *AcademicHandler) Subjects(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active", "false"))
	subjects, err := h.service.Subjects(c.Request.Context(), activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// CreateSubject godoc
// @Summary Create subject
// @Tags Academics
// @Accept json
// @Produce json
// @Param payload body service.SubjectRequest true "Subject"
// @Success 201 {object} response.Envelope
// @Router /academics/subjects [post]
func (h *AcademicHandler) CreateSubject(c *gin.Context) {
	var req service.SubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid subject payload"))
		return
	}
	subject, err := h.service.CreateSubject(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// ClassSubjects godoc
// @Summary Subjects taught in a grade
// @Tags Academics
// @Produce json
// @Param grade_id query string true "Grade"
// @Param academic_year_id query string false "Academic year"
// @Success 200 {object} response.Envelope
// @Router /academics/class-subjects [get]
func (h *AcademicHandler) ClassSubjects(c *gin.Context) {
	gradeID := c.Query("grade_id")
	if gradeID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "grade_id is required"))
		return
	}
	items, err := h.service.ClassSubjects(c.Request.Context(), gradeID, c.Query("academic_year_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// AssignClassSubject godoc
// @Summary Assign subject to grade
// @Tags Academics
// @Accept json
// @Produce json
// @Param payload body service.ClassSubjectRequest true "Assignment"
// @Success 201 {object} response.Envelope
// @Router /academics/class-subjects [post]
func (h *AcademicHandler) AssignClassSubject(c *gin.Context) {
	var req service.ClassSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid class subject payload"))
		return
	}
	item, err := h.service.AssignClassSubject(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Exams godoc
// @Summary List exams
// @Tags Academics
// @Produce json
// @Param academic_year_id query string false "Academic year"
// @Success 200 {object} response.Envelope
// @Router /academics/exams [get]
func (h *AcademicHandler) Exams(c *gin.Context) {
	exams, err := h.service.Exams(c.Request.Context(), c.Query("academic_year_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exams, nil)
}

// CreateExam godoc
// @Summary Create exam
// @Tags Academics
// @Accept json
// @Produce json
// @Param payload body service.ExamRequest true "Exam"
// @Success 201 {object} response.Envelope
// @Router /academics/exams [post]
func (h *AcademicHandler) CreateExam(c *gin.Context) {
	var req service.ExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid exam payload"))
		return
	}
	exam, err := h.service.CreateExam(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exam)
}

// RecordMark godoc
// @Summary Record mark
// @Description Letter grade is derived from the percentage on save
// @Tags Academics
// @Accept json
// @Produce json
// @Param payload body service.MarkRequest true "Mark"
// @Success 200 {object} response.Envelope
// @Router /academics/marks [post]
func (h *AcademicHandler) RecordMark(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.MarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid mark payload"))
		return
	}
	mark, err := h.service.RecordMark(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mark, nil)
}

// Marks godoc
// @Summary Marks of a student for a term
// @Tags Academics
// @Produce json
// @Param id path string true "Student ID"
// @Param academic_year_id query string true "Academic year"
// @Param term query string true "Term (1, 2 or 3)"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/marks [get]
func (h *AcademicHandler) Marks(c *gin.Context) {
	yearID, term, ok := termQuery(c)
	if !ok {
		return
	}
	marks, err := h.service.Marks(c.Request.Context(), c.Param("id"), yearID, term)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, marks, nil)
}

// GenerateReportCard godoc
// @Summary Generate report card
// @Description Totals the student's marks and ranks them within the grade
// @Tags Academics
// @Accept json
// @Produce json
// @Param payload body service.ReportCardRequest true "Report card"
// @Success 200 {object} response.Envelope
// @Router /academics/report-cards [post]
func (h *AcademicHandler) GenerateReportCard(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.ReportCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid report card payload"))
		return
	}
	view, err := h.service.GenerateReportCard(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// ReportCard godoc
// @Summary Student report card
// @Tags Academics
// @Produce json
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Param academic_year_id query string true "Academic year"
// @Param term query string true "Term (1, 2 or 3)"
// @Param format query string false "json (default) or pdf"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/report-card [get]
func (h *AcademicHandler) ReportCard(c *gin.Context) {
	yearID, term, ok := termQuery(c)
	if !ok {
		return
	}
	if c.Query("format") == "pdf" {
		content, filename, err := h.service.ReportCardPDF(c.Request.Context(), c.Param("id"), yearID, term)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
		c.Data(http.StatusOK, "application/pdf", content)
		return
	}
	view, err := h.service.ReportCard(c.Request.Context(), c.Param("id"), yearID, term)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

func termQuery(c *gin.Context) (string, models.FeeTerm, bool) {
	yearID := c.Query("academic_year_id")
	term := models.FeeTerm(c.Query("term"))
	if yearID == "" || !term.Valid() || term == models.FeeTermAnnual {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "academic_year_id and term are required"))
		return "", "", false
	}
	return yearID, term, true
}
