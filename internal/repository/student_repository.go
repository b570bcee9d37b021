package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-admin-api/internal/models"
)

const studentColumns = `s.id, s.admission_number, s.first_name, s.middle_name, s.last_name, s.date_of_birth, s.gender, s.grade_id, g.name AS grade_name,
s.admission_date, s.status, s.scholarship_status, s.scholarship_percentage, s.scholarship_remarks, s.email, s.phone, s.address,
s.guardian_name, s.guardian_relationship, s.guardian_phone, s.guardian_email, s.guardian_address,
s.blood_group, s.allergies, s.medical_conditions, s.emergency_contact_name, s.emergency_contact_phone,
s.birth_certificate, s.previous_report_card, s.transfer_certificate, s.other_documents, s.photo, s.created_at, s.updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students s LEFT JOIN grades g ON g.id = s.grade_id"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Search != "" {
		pos := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.admission_number) LIKE $%d OR LOWER(s.first_name) LIKE $%d OR LOWER(s.last_name) LIKE $%d OR LOWER(s.guardian_name) LIKE $%d)", pos, pos, pos, pos))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.GradeID != "" {
		conditions = append(conditions, fmt.Sprintf("s.grade_id = $%d", len(args)+1))
		args = append(args, filter.GradeID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Scholarship != "" {
		conditions = append(conditions, fmt.Sprintf("s.scholarship_status = $%d", len(args)+1))
		args = append(args, filter.Scholarship)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"admission_number": "s.admission_number",
		"first_name":       "s.first_name",
		"last_name":        "s.last_name",
		"admission_date":   "s.admission_date",
		"created_at":       "s.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "s.admission_number"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, base, column, order, size, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID returns a student with the grade name joined.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students s LEFT JOIN grades g ON g.id = s.grade_id WHERE s.id = $1"
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByAdmissionNumber checks the unique admission number.
func (r *StudentRepository) ExistsByAdmissionNumber(ctx context.Context, number string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE admission_number = $1"
	args := []interface{}{number}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check admission number: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	const query = `INSERT INTO students (id, admission_number, first_name, middle_name, last_name, date_of_birth, gender, grade_id, admission_date, status,
scholarship_status, scholarship_percentage, scholarship_remarks, email, phone, address,
guardian_name, guardian_relationship, guardian_phone, guardian_email, guardian_address,
blood_group, allergies, medical_conditions, emergency_contact_name, emergency_contact_phone, created_at, updated_at)
VALUES (:id, :admission_number, :first_name, :middle_name, :last_name, :date_of_birth, :gender, :grade_id, :admission_date, :status,
:scholarship_status, :scholarship_percentage, :scholarship_remarks, :email, :phone, :address,
:guardian_name, :guardian_relationship, :guardian_phone, :guardian_email, :guardian_address,
:blood_group, :allergies, :medical_conditions, :emergency_contact_name, :emergency_contact_phone, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies identity, contact, guardian and medical fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET admission_number = :admission_number, first_name = :first_name, middle_name = :middle_name, last_name = :last_name,
date_of_birth = :date_of_birth, gender = :gender, grade_id = :grade_id, admission_date = :admission_date, status = :status,
email = :email, phone = :phone, address = :address, guardian_name = :guardian_name, guardian_relationship = :guardian_relationship,
guardian_phone = :guardian_phone, guardian_email = :guardian_email, guardian_address = :guardian_address,
blood_group = :blood_group, allergies = :allergies, medical_conditions = :medical_conditions,
emergency_contact_name = :emergency_contact_name, emergency_contact_phone = :emergency_contact_phone, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// UpdateScholarship writes the scholarship fields only.
func (r *StudentRepository) UpdateScholarship(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET scholarship_status = :scholarship_status, scholarship_percentage = :scholarship_percentage, scholarship_remarks = :scholarship_remarks, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update scholarship: %w", err)
	}
	return nil
}

// UpdateDocument stores the relative path of an uploaded student document.
func (r *StudentRepository) UpdateDocument(ctx context.Context, id string, doc models.StudentDocument, path string) error {
	if !doc.Valid() {
		return fmt.Errorf("unknown student document %q", doc)
	}
	// column name comes from the closed StudentDocument set above
	query := fmt.Sprintf("UPDATE students SET %s = $2, updated_at = $3 WHERE id = $1", doc)
	if _, err := r.db.ExecContext(ctx, query, id, path, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student document: %w", err)
	}
	return nil
}

// CountActive returns the number of active students.
func (r *StudentRepository) CountActive(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM students WHERE status = 'active'`); err != nil {
		return 0, fmt.Errorf("count active students: %w", err)
	}
	return total, nil
}

// ScholarshipStats counts active students per scholarship status.
func (r *StudentRepository) ScholarshipStats(ctx context.Context) (*models.ScholarshipStats, error) {
	const query = `SELECT COUNT(*) AS total,
COUNT(*) FILTER (WHERE scholarship_status = 'full') AS full,
COUNT(*) FILTER (WHERE scholarship_status = 'partial') AS partial,
COUNT(*) FILTER (WHERE scholarship_status = 'none') AS none
FROM students WHERE status = 'active'`
	var stats models.ScholarshipStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("scholarship stats: %w", err)
	}
	return &stats, nil
}
