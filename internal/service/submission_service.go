package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

// RedirectReviewSubmissions is the client route of the reviewer queue.
const RedirectReviewSubmissions = "/submissions/review"

type submissionRepository interface {
	Create(ctx context.Context, submission *models.WorkSubmission) error
	FindByID(ctx context.Context, id string) (*models.WorkSubmission, error)
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.WorkSubmission, int, error)
	Review(ctx context.Context, id string, status models.SubmissionStatus, reviewerID, feedback string, at time.Time) error
}

type documentStore interface {
	Store(category, filename string, r io.Reader) (string, error)
	Remove(name string)
}

// CreateSubmissionRequest is the payload of a new work submission.
type CreateSubmissionRequest struct {
	Title       string          `json:"title" form:"title" validate:"required,max=200"`
	WorkType    models.WorkType `json:"work_type" form:"work_type" validate:"required"`
	Description string          `json:"description" form:"description" validate:"required"`
	Subject     string          `json:"subject" form:"subject" validate:"max=100"`
	GradeLevel  string          `json:"grade_level" form:"grade_level" validate:"max=50"`
}

// DocumentUpload is an optional file attached to a submission.
type DocumentUpload struct {
	Filename string
	Content  io.Reader
}

// ReviewSubmissionRequest records a reviewer decision.
type ReviewSubmissionRequest struct {
	Action   models.SubmissionStatus `json:"action" validate:"required"`
	Feedback string                  `json:"feedback"`
}

// SubmissionResult reports the stored submission and whether a reviewer was
// found for it.
type SubmissionResult struct {
	Submission        *models.WorkSubmission `json:"submission"`
	RecipientResolved bool                   `json:"recipient_resolved"`
	RecipientRole     models.Role            `json:"recipient_role,omitempty"`
}

// SubmissionService routes and reviews work submissions.
type SubmissionService struct {
	repo       submissionRepository
	recipients recipientLookup
	documents  documentStore
	validator  *validator.Validate
	logger     *zap.Logger
	metrics    *MetricsService
	now        func() time.Time
}

// SetMetrics attaches the collector counting routed submissions.
func (s *SubmissionService) SetMetrics(metrics *MetricsService) {
	s.metrics = metrics
}

// NewSubmissionService constructs the service.
func NewSubmissionService(repo submissionRepository, recipients recipientLookup, documents documentStore, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{repo: repo, recipients: recipients, documents: documents, validator: validate, logger: logger, now: time.Now}
}

// Submit stores a submission from a teacher or head of class, addressed to the
// resolved reviewer. An unresolved reviewer is stored as null.
func (s *SubmissionService) Submit(ctx context.Context, actor models.UserProfile, req CreateSubmissionRequest, doc *DocumentUpload) (*SubmissionResult, error) {
	if !actor.Role.CanSubmitWork() {
		return nil, response.WithRedirect(appErrors.Clone(appErrors.ErrPermissionDenied, "Only teachers and heads of class can submit work."), RedirectDashboard)
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid submission payload")
	}
	if !req.WorkType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown work type")
	}

	recipient, err := ResolveRecipient(ctx, s.recipients, actor)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to resolve submission recipient")
	}

	submission := &models.WorkSubmission{
		TeacherID:   actor.UserID,
		Title:       req.Title,
		WorkType:    req.WorkType,
		Description: req.Description,
		Subject:     req.Subject,
		GradeLevel:  req.GradeLevel,
		Status:      models.SubmissionPending,
		SubmittedAt: s.now().UTC(),
	}
	result := &SubmissionResult{Submission: submission}
	if recipient != nil {
		submission.SubmittedTo = &recipient.UserID
		receiver := recipient.FullName
		submission.ReceiverName = &receiver
		result.RecipientResolved = true
		result.RecipientRole = recipient.Role
	} else {
		s.logger.Warn("no active reviewer for work submission",
			zap.String("teacher_id", actor.UserID),
			zap.String("role", string(actor.Role)),
			zap.Bool("recipient_resolved", false))
	}

	if doc != nil && doc.Content != nil && s.documents != nil {
		stored, err := s.documents.Store(UploadSubmissions, doc.Filename, doc.Content)
		if err != nil {
			return nil, err
		}
		submission.Document = &stored
	}

	if err := s.repo.Create(ctx, submission); err != nil {
		if submission.Document != nil {
			s.documents.Remove(*submission.Document)
		}
		return nil, appErrors.Internal(err, "failed to create submission")
	}
	s.metrics.RecordSubmission(result.RecipientResolved)
	return result, nil
}

// Mine lists the actor's own submissions.
func (s *SubmissionService) Mine(ctx context.Context, actor models.UserProfile, page, size int) ([]models.WorkSubmission, *models.Pagination, error) {
	return s.list(ctx, models.SubmissionFilter{TeacherID: actor.UserID, Page: page, PageSize: size})
}

// Inbox lists submissions addressed to a reviewer in one status, pending by
// default.
func (s *SubmissionService) Inbox(ctx context.Context, actor models.UserProfile, status models.SubmissionStatus, page, size int) ([]models.WorkSubmission, *models.Pagination, error) {
	if !actor.Role.CanReviewWork() {
		return nil, nil, response.WithRedirect(appErrors.Clone(appErrors.ErrPermissionDenied, "Only directors and heads of class can review submissions."), RedirectDashboard)
	}
	if status == "" {
		status = models.SubmissionPending
	}
	if !status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown submission status")
	}
	return s.list(ctx, models.SubmissionFilter{SubmittedTo: actor.UserID, Status: status, Page: page, PageSize: size})
}

// Get returns a submission visible to the actor: its author or its reviewer.
func (s *SubmissionService) Get(ctx context.Context, actor models.UserProfile, id string) (*models.WorkSubmission, error) {
	submission, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if submission.TeacherID != actor.UserID && !addressedTo(submission, actor.UserID) && !actor.IsSuperuser {
		return nil, response.WithRedirect(appErrors.Clone(appErrors.ErrPermissionDenied, "You can only view your own submissions."), RedirectDashboard)
	}
	return submission, nil
}

// Review records a reviewer's decision on a submission addressed to them.
func (s *SubmissionService) Review(ctx context.Context, actor models.UserProfile, id string, req ReviewSubmissionRequest) (*models.WorkSubmission, error) {
	if !actor.Role.CanReviewWork() {
		return nil, response.WithRedirect(appErrors.Clone(appErrors.ErrPermissionDenied, "Only directors and heads of class can review submissions."), RedirectDashboard)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid review payload")
	}
	if !req.Action.IsReviewOutcome() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "action must be approved, rejected or revision")
	}
	submission, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !addressedTo(submission, actor.UserID) {
		return nil, response.WithRedirect(appErrors.Clone(appErrors.ErrPermissionDenied, "You can only review submissions submitted to you."), RedirectReviewSubmissions)
	}

	at := s.now().UTC()
	if err := s.repo.Review(ctx, id, req.Action, actor.UserID, req.Feedback, at); err != nil {
		return nil, appErrors.Internal(err, "failed to review submission")
	}
	submission.Status = req.Action
	submission.Feedback = req.Feedback
	submission.ReviewedBy = &actor.UserID
	submission.ReviewedAt = &at
	s.logger.Info("work submission reviewed", zap.String("submission_id", id), zap.String("reviewer", actor.UserID), zap.String("status", string(req.Action)))
	return submission, nil
}

func (s *SubmissionService) list(ctx context.Context, filter models.SubmissionFilter) ([]models.WorkSubmission, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list submissions")
	}
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *SubmissionService) load(ctx context.Context, id string) (*models.WorkSubmission, error) {
	submission, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Internal(err, "failed to load submission")
	}
	return submission, nil
}

func addressedTo(submission *models.WorkSubmission, userID string) bool {
	return submission.SubmittedTo != nil && *submission.SubmittedTo == userID
}
