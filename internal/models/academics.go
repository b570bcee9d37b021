package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subject is a taught subject.
type Subject struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Code        string    `db:"code" json:"code"`
	Description string    `db:"description" json:"description"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ClassSubject allocates a subject and teacher to a grade for a year.
type ClassSubject struct {
	ID             string  `db:"id" json:"id"`
	GradeID        string  `db:"grade_id" json:"grade_id"`
	SubjectID      string  `db:"subject_id" json:"subject_id"`
	TeacherID      *string `db:"teacher_id" json:"teacher_id,omitempty"`
	AcademicYearID string  `db:"academic_year_id" json:"academic_year_id"`
	SubjectName    string  `db:"subject_name" json:"subject_name,omitempty"`
	TeacherName    *string `db:"teacher_name" json:"teacher_name,omitempty"`
}

// ExamType classifies an assessment.
type ExamType string

const (
	ExamCAT     ExamType = "cat"
	ExamMidterm ExamType = "midterm"
	ExamFinal   ExamType = "final"
	ExamMock    ExamType = "mock"
)

// Exam is an assessment sat within an academic year term.
type Exam struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	ExamType       ExamType  `db:"exam_type" json:"exam_type"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	Term           FeeTerm   `db:"term" json:"term"`
	StartDate      time.Time `db:"start_date" json:"start_date"`
	EndDate        time.Time `db:"end_date" json:"end_date"`
	MaxMarks       int       `db:"max_marks" json:"max_marks"`
	PassMarks      int       `db:"pass_marks" json:"pass_marks"`
	Description    string    `db:"description" json:"description"`
}

// Mark is a student's score in one subject of one exam.
type Mark struct {
	ID            string          `db:"id" json:"id"`
	StudentID     string          `db:"student_id" json:"student_id"`
	SubjectID     string          `db:"subject_id" json:"subject_id"`
	ExamID        string          `db:"exam_id" json:"exam_id"`
	MarksObtained decimal.Decimal `db:"marks_obtained" json:"marks_obtained"`
	Grade         string          `db:"grade" json:"grade"`
	Remarks       string          `db:"remarks" json:"remarks"`
	EnteredBy     *string         `db:"entered_by" json:"entered_by,omitempty"`
	EnteredAt     time.Time       `db:"entered_at" json:"entered_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
	SubjectName   string          `db:"subject_name" json:"subject_name,omitempty"`
	MaxMarks      int             `db:"max_marks" json:"max_marks,omitempty"`
}

var (
	gradeA = decimal.NewFromInt(80)
	gradeB = decimal.NewFromInt(70)
	gradeC = decimal.NewFromInt(60)
	gradeD = decimal.NewFromInt(50)
	gradeE = decimal.NewFromInt(40)
)

// LetterGrade maps a percentage onto the A-F scale.
func LetterGrade(percentage decimal.Decimal) string {
	switch {
	case percentage.GreaterThanOrEqual(gradeA):
		return "A"
	case percentage.GreaterThanOrEqual(gradeB):
		return "B"
	case percentage.GreaterThanOrEqual(gradeC):
		return "C"
	case percentage.GreaterThanOrEqual(gradeD):
		return "D"
	case percentage.GreaterThanOrEqual(gradeE):
		return "E"
	default:
		return "F"
	}
}

// Percentage converts obtained marks to a percentage of maxMarks.
func Percentage(obtained decimal.Decimal, maxMarks int) decimal.Decimal {
	if maxMarks <= 0 {
		return decimal.Zero
	}
	return obtained.Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(maxMarks))).Round(2)
}

// ReportCard summarises a student's marks for a term.
type ReportCard struct {
	ID                 string          `db:"id" json:"id"`
	StudentID          string          `db:"student_id" json:"student_id"`
	AcademicYearID     string          `db:"academic_year_id" json:"academic_year_id"`
	Term               FeeTerm         `db:"term" json:"term"`
	TotalMarks         decimal.Decimal `db:"total_marks" json:"total_marks"`
	AverageMarks       decimal.Decimal `db:"average_marks" json:"average_marks"`
	OverallGrade       string          `db:"overall_grade" json:"overall_grade"`
	ClassRank          *int            `db:"class_rank" json:"class_rank,omitempty"`
	TeacherComment     string          `db:"teacher_comment" json:"teacher_comment"`
	HeadteacherComment string          `db:"headteacher_comment" json:"headteacher_comment"`
	GeneratedBy        *string         `db:"generated_by" json:"generated_by,omitempty"`
	GeneratedAt        time.Time       `db:"generated_at" json:"generated_at"`
}

// TermMarkTotal is a per-student aggregate used to rank a grade.
type TermMarkTotal struct {
	StudentID string          `db:"student_id" json:"student_id"`
	Total     decimal.Decimal `db:"total" json:"total"`
	Average   decimal.Decimal `db:"average" json:"average"`
}
