package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-admin-api/internal/models"
)

const submissionSelect = `SELECT w.id, w.teacher_id, w.submitted_to, w.title, w.work_type, w.description, w.document, w.subject, w.grade_level, w.status,
w.submitted_at, w.reviewed_by, w.reviewed_at, w.feedback,
TRIM(t.first_name || ' ' || t.last_name) AS teacher_name, NULLIF(TRIM(r.first_name || ' ' || r.last_name), '') AS receiver_name
FROM work_submissions w
JOIN users t ON t.id = w.teacher_id
LEFT JOIN users r ON r.id = w.submitted_to`

// SubmissionRepository persists work submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts a submission.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.WorkSubmission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now().UTC()
	}
	if submission.Status == "" {
		submission.Status = models.SubmissionPending
	}
	const query = `INSERT INTO work_submissions (id, teacher_id, submitted_to, title, work_type, description, document, subject, grade_level, status, submitted_at, feedback)
VALUES (:id, :teacher_id, :submitted_to, :title, :work_type, :description, :document, :subject, :grade_level, :status, :submitted_at, :feedback)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("create work submission: %w", err)
	}
	return nil
}

// FindByID loads one submission with names joined.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.WorkSubmission, error) {
	var submission models.WorkSubmission
	if err := r.db.GetContext(ctx, &submission, submissionSelect+" WHERE w.id = $1", id); err != nil {
		return nil, err
	}
	return &submission, nil
}

// List returns submissions matching the filter, newest first.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.WorkSubmission, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("w.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.SubmittedTo != "" {
		conditions = append(conditions, fmt.Sprintf("w.submitted_to = $%d", len(args)+1))
		args = append(args, filter.SubmittedTo)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("w.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("%s%s ORDER BY w.submitted_at DESC LIMIT %d OFFSET %d", submissionSelect, where, size, (page-1)*size)
	var submissions []models.WorkSubmission
	if err := r.db.SelectContext(ctx, &submissions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list work submissions: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM work_submissions w"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count work submissions: %w", err)
	}
	return submissions, total, nil
}

// Count counts submissions by submitter or recipient, optionally in a status.
// Exactly one of teacherID and submittedTo is expected.
func (r *SubmissionRepository) Count(ctx context.Context, teacherID, submittedTo string, status models.SubmissionStatus) (int, error) {
	query := `SELECT COUNT(*) FROM work_submissions WHERE `
	var args []interface{}
	if teacherID != "" {
		query += `teacher_id = $1`
		args = append(args, teacherID)
	} else {
		query += `submitted_to = $1`
		args = append(args, submittedTo)
	}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count work submissions: %w", err)
	}
	return total, nil
}

// Review stores a review outcome.
func (r *SubmissionRepository) Review(ctx context.Context, id string, status models.SubmissionStatus, reviewerID, feedback string, at time.Time) error {
	const query = `UPDATE work_submissions SET status = $2, reviewed_by = $3, reviewed_at = $4, feedback = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, reviewerID, at, feedback); err != nil {
		return fmt.Errorf("review work submission: %w", err)
	}
	return nil
}
