package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-admin-api/internal/models"
)

// PerformanceRepository persists performance reviews.
type PerformanceRepository struct {
	db *sqlx.DB
}

// NewPerformanceRepository constructs the repository.
func NewPerformanceRepository(db *sqlx.DB) *PerformanceRepository {
	return &PerformanceRepository{db: db}
}

// List returns reviews, newest period first, optionally for one employee.
func (r *PerformanceRepository) List(ctx context.Context, employeeID string) ([]models.PerformanceReview, error) {
	query := `SELECT pr.id, pr.employee_id, pr.reviewer_id, pr.review_period_start, pr.review_period_end, pr.overall_rating, pr.goals_achievement,
pr.communication, pr.teamwork, pr.technical_skills, pr.comments, pr.recommendations, pr.created_at,
TRIM(u.first_name || ' ' || u.last_name) AS employee_name
FROM performance_reviews pr JOIN employees e ON e.id = pr.employee_id JOIN users u ON u.id = e.user_id`
	var args []interface{}
	if employeeID != "" {
		query += ` WHERE pr.employee_id = $1`
		args = append(args, employeeID)
	}
	query += ` ORDER BY pr.review_period_end DESC`
	var reviews []models.PerformanceReview
	if err := r.db.SelectContext(ctx, &reviews, query, args...); err != nil {
		return nil, fmt.Errorf("list performance reviews: %w", err)
	}
	return reviews, nil
}

// Create inserts a review.
func (r *PerformanceRepository) Create(ctx context.Context, review *models.PerformanceReview) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO performance_reviews (id, employee_id, reviewer_id, review_period_start, review_period_end, overall_rating, goals_achievement, communication, teamwork, technical_skills, comments, recommendations, created_at)
VALUES (:id, :employee_id, :reviewer_id, :review_period_start, :review_period_end, :overall_rating, :goals_achievement, :communication, :teamwork, :technical_skills, :comments, :recommendations, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, review); err != nil {
		return fmt.Errorf("create performance review: %w", err)
	}
	return nil
}
