package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

type performanceRepository interface {
	List(ctx context.Context, employeeID string) ([]models.PerformanceReview, error)
	Create(ctx context.Context, review *models.PerformanceReview) error
}

// PerformanceReviewRequest records a review. Ratings run from 1 to 5.
type PerformanceReviewRequest struct {
	EmployeeID        string    `json:"employee_id" validate:"required"`
	ReviewPeriodStart time.Time `json:"review_period_start" validate:"required"`
	ReviewPeriodEnd   time.Time `json:"review_period_end" validate:"required"`
	OverallRating     int       `json:"overall_rating" validate:"min=1,max=5"`
	GoalsAchievement  int       `json:"goals_achievement" validate:"min=1,max=5"`
	Communication     int       `json:"communication" validate:"min=1,max=5"`
	Teamwork          int       `json:"teamwork" validate:"min=1,max=5"`
	TechnicalSkills   int       `json:"technical_skills" validate:"min=1,max=5"`
	Comments          string    `json:"comments" validate:"required"`
	Recommendations   string    `json:"recommendations"`
}

// PerformanceService records staff performance reviews.
type PerformanceService struct {
	repo      performanceRepository
	employees employeeLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPerformanceService constructs the service.
func NewPerformanceService(repo performanceRepository, employees employeeLookup, validate *validator.Validate, logger *zap.Logger) *PerformanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PerformanceService{repo: repo, employees: employees, validator: validate, logger: logger}
}

// List returns reviews, optionally for one employee.
func (s *PerformanceService) List(ctx context.Context, employeeID string) ([]models.PerformanceReview, error) {
	reviews, err := s.repo.List(ctx, employeeID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list performance reviews")
	}
	if reviews == nil {
		reviews = []models.PerformanceReview{}
	}
	return reviews, nil
}

// Create records a review written by reviewerUserID.
func (s *PerformanceService) Create(ctx context.Context, reviewerUserID string, req PerformanceReviewRequest) (*models.PerformanceReview, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid performance review payload")
	}
	if req.ReviewPeriodEnd.Before(req.ReviewPeriodStart) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "review period end cannot be before its start")
	}
	employee, err := loadEmployee(ctx, s.employees, "", req.EmployeeID)
	if err != nil {
		return nil, err
	}
	if employee.UserID == reviewerUserID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "you cannot review yourself")
	}
	review := &models.PerformanceReview{
		EmployeeID:        employee.ID,
		ReviewerID:        reviewerUserID,
		ReviewPeriodStart: truncateDay(req.ReviewPeriodStart),
		ReviewPeriodEnd:   truncateDay(req.ReviewPeriodEnd),
		OverallRating:     req.OverallRating,
		GoalsAchievement:  req.GoalsAchievement,
		Communication:     req.Communication,
		Teamwork:          req.Teamwork,
		TechnicalSkills:   req.TechnicalSkills,
		Comments:          req.Comments,
		Recommendations:   req.Recommendations,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, appErrors.Internal(err, "failed to create performance review")
	}
	review.EmployeeName = employee.FullName
	return review, nil
}
