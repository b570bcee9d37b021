package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/export"
)

type academicRepository interface {
	ListSubjects(ctx context.Context, activeOnly bool) ([]models.Subject, error)
	SubjectCodeExists(ctx context.Context, code string) (bool, error)
	CreateSubject(ctx context.Context, subject *models.Subject) error
	ListClassSubjects(ctx context.Context, gradeID, academicYearID string) ([]models.ClassSubject, error)
	AssignClassSubject(ctx context.Context, item *models.ClassSubject) error
	ListExams(ctx context.Context, academicYearID string) ([]models.Exam, error)
	FindExam(ctx context.Context, id string) (*models.Exam, error)
	CreateExam(ctx context.Context, exam *models.Exam) error
	UpsertMark(ctx context.Context, mark *models.Mark) error
	ListMarks(ctx context.Context, studentID, academicYearID string, term models.FeeTerm) ([]models.Mark, error)
	TermTotals(ctx context.Context, gradeID, academicYearID string, term models.FeeTerm) ([]models.TermMarkTotal, error)
	UpsertReportCard(ctx context.Context, card *models.ReportCard) error
	FindReportCard(ctx context.Context, studentID, academicYearID string, term models.FeeTerm) (*models.ReportCard, error)
}

type studentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// SubjectRequest creates a subject.
type SubjectRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Code        string `json:"code" validate:"required,max=10"`
	Description string `json:"description"`
}

// ClassSubjectRequest allocates a subject to a grade for a year.
type ClassSubjectRequest struct {
	GradeID        string  `json:"grade_id" validate:"required"`
	SubjectID      string  `json:"subject_id" validate:"required"`
	TeacherID      *string `json:"teacher_id"`
	AcademicYearID string  `json:"academic_year_id" validate:"required"`
}

// ExamRequest creates an exam.
type ExamRequest struct {
	Name           string          `json:"name" validate:"required,max=100"`
	ExamType       models.ExamType `json:"exam_type" validate:"required,oneof=cat midterm final mock"`
	AcademicYearID string          `json:"academic_year_id" validate:"required"`
	Term           models.FeeTerm  `json:"term" validate:"required,oneof=1 2 3"`
	StartDate      time.Time       `json:"start_date" validate:"required"`
	EndDate        time.Time       `json:"end_date" validate:"required"`
	MaxMarks       int             `json:"max_marks" validate:"required,min=1"`
	PassMarks      int             `json:"pass_marks" validate:"min=0"`
	Description    string          `json:"description"`
}

// MarkRequest records one student's score for a subject in an exam.
type MarkRequest struct {
	StudentID     string          `json:"student_id" validate:"required"`
	SubjectID     string          `json:"subject_id" validate:"required"`
	ExamID        string          `json:"exam_id" validate:"required"`
	MarksObtained decimal.Decimal `json:"marks_obtained"`
	Remarks       string          `json:"remarks"`
}

// ReportCardRequest generates a report card for (student, year, term).
type ReportCardRequest struct {
	StudentID          string         `json:"student_id" validate:"required"`
	AcademicYearID     string         `json:"academic_year_id" validate:"required"`
	Term               models.FeeTerm `json:"term" validate:"required,oneof=1 2 3"`
	TeacherComment     string         `json:"teacher_comment"`
	HeadteacherComment string         `json:"headteacher_comment"`
}

// ReportCardView is a report card together with the marks it summarises.
type ReportCardView struct {
	Card    *models.ReportCard `json:"report_card"`
	Student *models.Student    `json:"student"`
	Marks   []models.Mark      `json:"marks"`
}

// AcademicService manages subjects, exams, marks and report cards.
type AcademicService struct {
	repo      academicRepository
	students  studentFinder
	pdf       documentRenderer
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAcademicService constructs the academic service.
func NewAcademicService(repo academicRepository, students studentFinder, pdf documentRenderer, validate *validator.Validate, logger *zap.Logger) *AcademicService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &AcademicService{repo: repo, students: students, pdf: pdf, validator: validate, logger: logger, now: time.Now}
}

// Subjects lists subjects.
func (s *AcademicService) Subjects(ctx context.Context, activeOnly bool) ([]models.Subject, error) {
	subjects, err := s.repo.ListSubjects(ctx, activeOnly)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list subjects")
	}
	return subjects, nil
}

// CreateSubject adds a subject with a unique code.
func (s *AcademicService) CreateSubject(ctx context.Context, req SubjectRequest) (*models.Subject, error) {
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid subject payload")
	}
	exists, err := s.repo.SubjectCodeExists(ctx, req.Code)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to validate subject code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject code already used")
	}
	subject := &models.Subject{Name: strings.TrimSpace(req.Name), Code: req.Code, Description: req.Description, IsActive: true}
	if err := s.repo.CreateSubject(ctx, subject); err != nil {
		return nil, appErrors.Internal(err, "failed to create subject")
	}
	return subject, nil
}

// ClassSubjects lists the allocations of a grade for a year.
func (s *AcademicService) ClassSubjects(ctx context.Context, gradeID, yearID string) ([]models.ClassSubject, error) {
	items, err := s.repo.ListClassSubjects(ctx, gradeID, yearID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list class subjects")
	}
	return items, nil
}

// AssignClassSubject allocates a subject and teacher to a grade.
func (s *AcademicService) AssignClassSubject(ctx context.Context, req ClassSubjectRequest) (*models.ClassSubject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid class subject payload")
	}
	item := &models.ClassSubject{GradeID: req.GradeID, SubjectID: req.SubjectID, TeacherID: req.TeacherID, AcademicYearID: req.AcademicYearID}
	if err := s.repo.AssignClassSubject(ctx, item); err != nil {
		return nil, appErrors.Internal(err, "failed to assign class subject")
	}
	return item, nil
}

// Exams lists exams of a year.
func (s *AcademicService) Exams(ctx context.Context, yearID string) ([]models.Exam, error) {
	exams, err := s.repo.ListExams(ctx, yearID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list exams")
	}
	return exams, nil
}

// CreateExam adds an exam.
func (s *AcademicService) CreateExam(ctx context.Context, req ExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid exam payload")
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exam end date cannot be before start date")
	}
	if req.PassMarks > req.MaxMarks {
		return nil, appErrors.Clone(appErrors.ErrValidation, "pass marks cannot exceed max marks")
	}
	exam := &models.Exam{
		Name:           strings.TrimSpace(req.Name),
		ExamType:       req.ExamType,
		AcademicYearID: req.AcademicYearID,
		Term:           req.Term,
		StartDate:      truncateDay(req.StartDate),
		EndDate:        truncateDay(req.EndDate),
		MaxMarks:       req.MaxMarks,
		PassMarks:      req.PassMarks,
		Description:    req.Description,
	}
	if err := s.repo.CreateExam(ctx, exam); err != nil {
		return nil, appErrors.Internal(err, "failed to create exam")
	}
	return exam, nil
}

// RecordMark stores a mark and derives its letter grade from the exam's
// maximum.
func (s *AcademicService) RecordMark(ctx context.Context, enteredBy string, req MarkRequest) (*models.Mark, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid mark payload")
	}
	exam, err := s.repo.FindExam(ctx, req.ExamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "exam not found")
		}
		return nil, appErrors.Internal(err, "failed to load exam")
	}
	obtained := req.MarksObtained.Round(2)
	if obtained.IsNegative() || obtained.GreaterThan(decimal.NewFromInt(int64(exam.MaxMarks))) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("marks must be between 0 and %d", exam.MaxMarks))
	}
	mark := &models.Mark{
		StudentID:     req.StudentID,
		SubjectID:     req.SubjectID,
		ExamID:        exam.ID,
		MarksObtained: obtained,
		Grade:         models.LetterGrade(models.Percentage(obtained, exam.MaxMarks)),
		Remarks:       req.Remarks,
		EnteredBy:     &enteredBy,
		MaxMarks:      exam.MaxMarks,
	}
	if err := s.repo.UpsertMark(ctx, mark); err != nil {
		return nil, appErrors.Internal(err, "failed to save mark")
	}
	return mark, nil
}

// Marks lists a student's marks for a year and term.
func (s *AcademicService) Marks(ctx context.Context, studentID, yearID string, term models.FeeTerm) ([]models.Mark, error) {
	marks, err := s.repo.ListMarks(ctx, studentID, yearID, term)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list marks")
	}
	if marks == nil {
		marks = []models.Mark{}
	}
	return marks, nil
}

// GenerateReportCard totals a student's term marks, grades the mean
// percentage and ranks the student within their grade. Regenerating replaces
// the earlier card.
func (s *AcademicService) GenerateReportCard(ctx context.Context, generatedBy string, req ReportCardRequest) (*ReportCardView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid report card payload")
	}
	student, err := s.loadStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	marks, err := s.Marks(ctx, student.ID, req.AcademicYearID, req.Term)
	if err != nil {
		return nil, err
	}
	if len(marks) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no marks recorded for this term")
	}

	card := SummariseMarks(marks)
	card.StudentID = student.ID
	card.AcademicYearID = req.AcademicYearID
	card.Term = req.Term
	card.TeacherComment = req.TeacherComment
	card.HeadteacherComment = req.HeadteacherComment
	card.GeneratedBy = &generatedBy
	card.GeneratedAt = s.now().UTC()

	if student.GradeID != nil {
		totals, err := s.repo.TermTotals(ctx, *student.GradeID, req.AcademicYearID, req.Term)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to rank grade")
		}
		card.ClassRank = RankOf(totals, student.ID)
	}

	if err := s.repo.UpsertReportCard(ctx, &card); err != nil {
		return nil, appErrors.Internal(err, "failed to save report card")
	}
	s.logger.Info("report card generated", zap.String("student_id", student.ID), zap.String("academic_year_id", req.AcademicYearID), zap.String("term", string(req.Term)))
	return &ReportCardView{Card: &card, Student: student, Marks: marks}, nil
}

// ReportCard loads a stored report card with its marks.
func (s *AcademicService) ReportCard(ctx context.Context, studentID, yearID string, term models.FeeTerm) (*ReportCardView, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	card, err := s.repo.FindReportCard(ctx, studentID, yearID, term)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report card not generated")
		}
		return nil, appErrors.Internal(err, "failed to load report card")
	}
	marks, err := s.Marks(ctx, studentID, yearID, term)
	if err != nil {
		return nil, err
	}
	return &ReportCardView{Card: card, Student: student, Marks: marks}, nil
}

// ReportCardPDF renders a stored report card.
func (s *AcademicService) ReportCardPDF(ctx context.Context, studentID, yearID string, term models.FeeTerm) ([]byte, string, error) {
	view, err := s.ReportCard(ctx, studentID, yearID, term)
	if err != nil {
		return nil, "", err
	}
	table := export.Dataset{Headers: []string{"Subject", "Marks", "Out Of", "Grade", "Remarks"}}
	for _, m := range view.Marks {
		table.Rows = append(table.Rows, map[string]string{
			"Subject": m.SubjectName,
			"Marks":   m.MarksObtained.StringFixed(2),
			"Out Of":  fmt.Sprintf("%d", m.MaxMarks),
			"Grade":   m.Grade,
			"Remarks": m.Remarks,
		})
	}
	table.Footer = map[string]string{"Subject": "Total", "Marks": view.Card.TotalMarks.StringFixed(2), "Grade": view.Card.OverallGrade}

	rank := "-"
	if view.Card.ClassRank != nil {
		rank = fmt.Sprintf("%d", *view.Card.ClassRank)
	}
	grade := "-"
	if view.Student.GradeName != nil {
		grade = *view.Student.GradeName
	}
	doc := export.Document{
		Title:    "Report Card",
		Subtitle: term.Label(),
		Fields: []export.Field{
			{Label: "Student", Value: view.Student.FullName()},
			{Label: "Admission No.", Value: view.Student.AdmissionNumber},
			{Label: "Grade", Value: grade},
			{Label: "Average", Value: view.Card.AverageMarks.StringFixed(2) + "%"},
			{Label: "Overall Grade", Value: view.Card.OverallGrade},
			{Label: "Class Rank", Value: rank},
		},
		Table: &table,
	}
	if view.Card.TeacherComment != "" {
		doc.Notes = append(doc.Notes, "Class teacher: "+view.Card.TeacherComment)
	}
	if view.Card.HeadteacherComment != "" {
		doc.Notes = append(doc.Notes, "Head teacher: "+view.Card.HeadteacherComment)
	}
	content, err := s.pdf.RenderDocument(doc)
	if err != nil {
		return nil, "", appErrors.Internal(err, "failed to render report card")
	}
	return content, fmt.Sprintf("report-card-%s-term-%s.pdf", view.Student.AdmissionNumber, term), nil
}

func (s *AcademicService) loadStudent(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	return student, nil
}

// SummariseMarks computes the total, mean percentage and overall grade of a
// set of marks.
func SummariseMarks(marks []models.Mark) models.ReportCard {
	total := decimal.Zero
	pctSum := decimal.Zero
	for _, m := range marks {
		total = total.Add(m.MarksObtained)
		pctSum = pctSum.Add(models.Percentage(m.MarksObtained, m.MaxMarks))
	}
	card := models.ReportCard{TotalMarks: total.Round(2), AverageMarks: decimal.Zero, OverallGrade: models.LetterGrade(decimal.Zero)}
	if len(marks) > 0 {
		card.AverageMarks = pctSum.Div(decimal.NewFromInt(int64(len(marks)))).Round(2)
		card.OverallGrade = models.LetterGrade(card.AverageMarks)
	}
	return card
}

// RankOf returns the 1-based competition rank of studentID within totals,
// which must be ordered by total descending. Equal totals share a rank.
func RankOf(totals []models.TermMarkTotal, studentID string) *int {
	rank := 0
	for i, t := range totals {
		if i == 0 || !t.Total.Equal(totals[i-1].Total) {
			rank = i + 1
		}
		if t.StudentID == studentID {
			r := rank
			return &r
		}
	}
	return nil
}
