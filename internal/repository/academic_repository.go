package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-admin-api/internal/models"
)

// AcademicRepository persists subjects, exams, marks and report cards.
type AcademicRepository struct {
	db *sqlx.DB
}

// NewAcademicRepository constructs the repository.
func NewAcademicRepository(db *sqlx.DB) *AcademicRepository {
	return &AcademicRepository{db: db}
}

// ListSubjects returns subjects, optionally only active ones.
func (r *AcademicRepository) ListSubjects(ctx context.Context, activeOnly bool) ([]models.Subject, error) {
	query := `SELECT id, name, code, description, is_active, created_at FROM subjects`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// SubjectCodeExists checks the unique subject code.
func (r *AcademicRepository) SubjectCodeExists(ctx context.Context, code string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM subjects WHERE code = $1 LIMIT 1`, code); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check subject code: %w", err)
	}
	return true, nil
}

// CreateSubject inserts a subject.
func (r *AcademicRepository) CreateSubject(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO subjects (id, name, code, description, is_active, created_at) VALUES (:id, :name, :code, :description, :is_active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// ListClassSubjects returns the subject allocations of a grade for a year.
func (r *AcademicRepository) ListClassSubjects(ctx context.Context, gradeID, academicYearID string) ([]models.ClassSubject, error) {
	const query = `SELECT cs.id, cs.grade_id, cs.subject_id, cs.teacher_id, cs.academic_year_id, s.name AS subject_name,
NULLIF(TRIM(u.first_name || ' ' || u.last_name), '') AS teacher_name
FROM class_subjects cs JOIN subjects s ON s.id = cs.subject_id LEFT JOIN users u ON u.id = cs.teacher_id
WHERE cs.grade_id = $1 AND cs.academic_year_id = $2 ORDER BY s.name ASC`
	var items []models.ClassSubject
	if err := r.db.SelectContext(ctx, &items, query, gradeID, academicYearID); err != nil {
		return nil, fmt.Errorf("list class subjects: %w", err)
	}
	return items, nil
}

// AssignClassSubject allocates a subject (and optional teacher) to a grade,
// replacing the teacher when the allocation already exists.
func (r *AcademicRepository) AssignClassSubject(ctx context.Context, item *models.ClassSubject) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	const query = `INSERT INTO class_subjects (id, grade_id, subject_id, teacher_id, academic_year_id) VALUES (:id, :grade_id, :subject_id, :teacher_id, :academic_year_id)
ON CONFLICT (grade_id, subject_id, academic_year_id) DO UPDATE SET teacher_id = EXCLUDED.teacher_id`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("assign class subject: %w", err)
	}
	return nil
}

// ListExams returns exams of an academic year.
func (r *AcademicRepository) ListExams(ctx context.Context, academicYearID string) ([]models.Exam, error) {
	query := `SELECT id, name, exam_type, academic_year_id, term, start_date, end_date, max_marks, pass_marks, description FROM exams`
	var args []interface{}
	if academicYearID != "" {
		query += ` WHERE academic_year_id = $1`
		args = append(args, academicYearID)
	}
	query += ` ORDER BY start_date DESC`
	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, query, args...); err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return exams, nil
}

// FindExam loads an exam.
func (r *AcademicRepository) FindExam(ctx context.Context, id string) (*models.Exam, error) {
	var exam models.Exam
	const query = `SELECT id, name, exam_type, academic_year_id, term, start_date, end_date, max_marks, pass_marks, description FROM exams WHERE id = $1`
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// CreateExam inserts an exam.
func (r *AcademicRepository) CreateExam(ctx context.Context, exam *models.Exam) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	const query = `INSERT INTO exams (id, name, exam_type, academic_year_id, term, start_date, end_date, max_marks, pass_marks, description)
VALUES (:id, :name, :exam_type, :academic_year_id, :term, :start_date, :end_date, :max_marks, :pass_marks, :description)`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("create exam: %w", err)
	}
	return nil
}

// UpsertMark stores a mark keyed by (student, subject, exam).
func (r *AcademicRepository) UpsertMark(ctx context.Context, mark *models.Mark) error {
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if mark.EnteredAt.IsZero() {
		mark.EnteredAt = now
	}
	mark.UpdatedAt = now
	const query = `INSERT INTO marks (id, student_id, subject_id, exam_id, marks_obtained, grade, remarks, entered_by, entered_at, updated_at)
VALUES (:id, :student_id, :subject_id, :exam_id, :marks_obtained, :grade, :remarks, :entered_by, :entered_at, :updated_at)
ON CONFLICT (student_id, subject_id, exam_id) DO UPDATE SET marks_obtained = EXCLUDED.marks_obtained, grade = EXCLUDED.grade,
remarks = EXCLUDED.remarks, entered_by = EXCLUDED.entered_by, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, mark); err != nil {
		return fmt.Errorf("upsert mark: %w", err)
	}
	return nil
}

// ListMarks returns a student's marks for a (year, term) with subject names
// and exam maxima.
func (r *AcademicRepository) ListMarks(ctx context.Context, studentID, academicYearID string, term models.FeeTerm) ([]models.Mark, error) {
	const query = `SELECT m.id, m.student_id, m.subject_id, m.exam_id, m.marks_obtained, m.grade, m.remarks, m.entered_by, m.entered_at, m.updated_at,
s.name AS subject_name, e.max_marks
FROM marks m JOIN exams e ON e.id = m.exam_id JOIN subjects s ON s.id = m.subject_id
WHERE m.student_id = $1 AND e.academic_year_id = $2 AND e.term = $3
ORDER BY e.start_date ASC, s.name ASC`
	var marks []models.Mark
	if err := r.db.SelectContext(ctx, &marks, query, studentID, academicYearID, term); err != nil {
		return nil, fmt.Errorf("list marks: %w", err)
	}
	return marks, nil
}

// TermTotals aggregates marks per student of a grade for a (year, term).
func (r *AcademicRepository) TermTotals(ctx context.Context, gradeID, academicYearID string, term models.FeeTerm) ([]models.TermMarkTotal, error) {
	const query = `SELECT m.student_id, SUM(m.marks_obtained) AS total, ROUND(AVG(m.marks_obtained), 2) AS average
FROM marks m JOIN exams e ON e.id = m.exam_id JOIN students st ON st.id = m.student_id
WHERE st.grade_id = $1 AND e.academic_year_id = $2 AND e.term = $3
GROUP BY m.student_id ORDER BY total DESC`
	var totals []models.TermMarkTotal
	if err := r.db.SelectContext(ctx, &totals, query, gradeID, academicYearID, term); err != nil {
		return nil, fmt.Errorf("term mark totals: %w", err)
	}
	return totals, nil
}

// UpsertReportCard stores a report card keyed by (student, year, term).
func (r *AcademicRepository) UpsertReportCard(ctx context.Context, card *models.ReportCard) error {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	if card.GeneratedAt.IsZero() {
		card.GeneratedAt = time.Now().UTC()
	}
	const query = `INSERT INTO report_cards (id, student_id, academic_year_id, term, total_marks, average_marks, overall_grade, class_rank, teacher_comment, headteacher_comment, generated_by, generated_at)
VALUES (:id, :student_id, :academic_year_id, :term, :total_marks, :average_marks, :overall_grade, :class_rank, :teacher_comment, :headteacher_comment, :generated_by, :generated_at)
ON CONFLICT (student_id, academic_year_id, term) DO UPDATE SET total_marks = EXCLUDED.total_marks, average_marks = EXCLUDED.average_marks,
overall_grade = EXCLUDED.overall_grade, class_rank = EXCLUDED.class_rank, teacher_comment = EXCLUDED.teacher_comment,
headteacher_comment = EXCLUDED.headteacher_comment, generated_by = EXCLUDED.generated_by, generated_at = EXCLUDED.generated_at
RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, card)
	if err != nil {
		return fmt.Errorf("upsert report card: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&card.ID); err != nil {
			return fmt.Errorf("scan report card id: %w", err)
		}
	}
	return rows.Err()
}

// FindReportCard loads a report card.
func (r *AcademicRepository) FindReportCard(ctx context.Context, studentID, academicYearID string, term models.FeeTerm) (*models.ReportCard, error) {
	const query = `SELECT id, student_id, academic_year_id, term, total_marks, average_marks, overall_grade, class_rank, teacher_comment, headteacher_comment, generated_by, generated_at
FROM report_cards WHERE student_id = $1 AND academic_year_id = $2 AND term = $3`
	var card models.ReportCard
	if err := r.db.GetContext(ctx, &card, query, studentID, academicYearID, term); err != nil {
		return nil, err
	}
	return &card, nil
}
