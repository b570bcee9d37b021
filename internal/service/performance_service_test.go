package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

type fakePerformanceRepo struct {
	reviews []models.PerformanceReview
}

func (f *fakePerformanceRepo) List(ctx context.Context, employeeID string) ([]models.PerformanceReview, error) {
	return f.reviews, nil
}

func (f *fakePerformanceRepo) Create(ctx context.Context, review *models.PerformanceReview) error {
	review.ID = "rev-1"
	f.reviews = append(f.reviews, *review)
	return nil
}

func TestPerformanceCreate(t *testing.T) {
	repo := &fakePerformanceRepo{}
	svc := NewPerformanceService(repo, newFakeEmployeeRepo(models.Employee{ID: "e1", UserID: "u1", FullName: "Tom"}), nil, nil)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	req := PerformanceReviewRequest{
		EmployeeID: "e1", ReviewPeriodStart: start, ReviewPeriodEnd: start.AddDate(0, 6, 0),
		OverallRating: 4, GoalsAchievement: 5, Communication: 3, Teamwork: 4, TechnicalSkills: 5, Comments: "solid term",
	}

	review, err := svc.Create(context.Background(), "hr1", req)
	require.NoError(t, err)
	assert.Equal(t, "hr1", review.ReviewerID)
	assert.Equal(t, "4.20", review.AverageRating().StringFixed(2))

	_, err = svc.Create(context.Background(), "u1", req)
	assert.True(t, errors.Is(err, appErrors.ErrValidation), "self review")

	req.Teamwork = 6
	_, err = svc.Create(context.Background(), "hr1", req)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	list, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
