package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/export"
)

type fakeAcademicRepo struct {
	subjects map[string]models.Subject
	exams    map[string]*models.Exam
	marks    map[string][]models.Mark
	totals   []models.TermMarkTotal
	cards    map[string]*models.ReportCard
	upserted []models.Mark
}

func newFakeAcademicRepo() *fakeAcademicRepo {
	return &fakeAcademicRepo{
		subjects: map[string]models.Subject{"MATH": {ID: "math", Code: "MATH", Name: "Mathematics"}},
		exams:    map[string]*models.Exam{"ex1": {ID: "ex1", MaxMarks: 50, Term: models.FeeTerm1, AcademicYearID: "y1"}},
		marks:    map[string][]models.Mark{},
		cards:    map[string]*models.ReportCard{},
	}
}

func (f *fakeAcademicRepo) ListSubjects(ctx context.Context, activeOnly bool) ([]models.Subject, error) {
	var out []models.Subject
	for _, s := range f.subjects {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeAcademicRepo) SubjectCodeExists(ctx context.Context, code string) (bool, error) {
	_, ok := f.subjects[code]
	return ok, nil
}

func (f *fakeAcademicRepo) CreateSubject(ctx context.Context, subject *models.Subject) error {
	subject.ID = subject.Code
	f.subjects[subject.Code] = *subject
	return nil
}

func (f *fakeAcademicRepo) ListClassSubjects(ctx context.Context, gradeID, academicYearID string) ([]models.ClassSubject, error) {
	return nil, nil
}

func (f *fakeAcademicRepo) AssignClassSubject(ctx context.Context, item *models.ClassSubject) error {
	return nil
}

func (f *fakeAcademicRepo) ListExams(ctx context.Context, academicYearID string) ([]models.Exam, error) {
	return nil, nil
}

func (f *fakeAcademicRepo) FindExam(ctx context.Context, id string) (*models.Exam, error) {
	exam, ok := f.exams[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return exam, nil
}

func (f *fakeAcademicRepo) CreateExam(ctx context.Context, exam *models.Exam) error {
	exam.ID = "ex-new"
	f.exams[exam.ID] = exam
	return nil
}

func (f *fakeAcademicRepo) UpsertMark(ctx context.Context, mark *models.Mark) error {
	f.upserted = append(f.upserted, *mark)
	return nil
}

func (f *fakeAcademicRepo) ListMarks(ctx context.Context, studentID, academicYearID string, term models.FeeTerm) ([]models.Mark, error) {
	return f.marks[studentID], nil
}

func (f *fakeAcademicRepo) TermTotals(ctx context.Context, gradeID, academicYearID string, term models.FeeTerm) ([]models.TermMarkTotal, error) {
	return f.totals, nil
}

func (f *fakeAcademicRepo) UpsertReportCard(ctx context.Context, card *models.ReportCard) error {
	card.ID = "card-" + card.StudentID
	cp := *card
	f.cards[card.StudentID] = &cp
	return nil
}

func (f *fakeAcademicRepo) FindReportCard(ctx context.Context, studentID, academicYearID string, term models.FeeTerm) (*models.ReportCard, error) {
	card, ok := f.cards[studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return card, nil
}

func mark(subject string, obtained, max int64) models.Mark {
	return models.Mark{SubjectName: subject, MarksObtained: decimal.NewFromInt(obtained), MaxMarks: int(max)}
}

func total(student string, v int64) models.TermMarkTotal {
	return models.TermMarkTotal{StudentID: student, Total: decimal.NewFromInt(v)}
}

func newTestAcademicService() (*AcademicService, *fakeAcademicRepo, *capturingRenderer) {
	repo := newFakeAcademicRepo()
	grade := "g1"
	gradeName := "Grade 1"
	students := newMockStudentRepo(models.Student{ID: "s1", AdmissionNumber: "ADM-1", FirstName: "Amina", LastName: "O", GradeID: &grade, GradeName: &gradeName})
	pdf := &capturingRenderer{}
	svc := NewAcademicService(repo, students, pdf, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC) }
	return svc, repo, pdf
}

func TestRecordMarkDerivesLetterGrade(t *testing.T) {
	svc, repo, _ := newTestAcademicService()

	m, err := svc.RecordMark(context.Background(), "teacher-1", MarkRequest{StudentID: "s1", SubjectID: "math", ExamID: "ex1", MarksObtained: decimal.NewFromInt(36)})
	require.NoError(t, err)
	assert.Equal(t, "B", m.Grade, "36/50 is 72%")
	assert.Len(t, repo.upserted, 1)

	_, err = svc.RecordMark(context.Background(), "teacher-1", MarkRequest{StudentID: "s1", SubjectID: "math", ExamID: "ex1", MarksObtained: decimal.NewFromInt(51)})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.RecordMark(context.Background(), "teacher-1", MarkRequest{StudentID: "s1", SubjectID: "math", ExamID: "nope", MarksObtained: decimal.NewFromInt(1)})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestSummariseMarks(t *testing.T) {
	card := SummariseMarks([]models.Mark{mark("Math", 45, 50), mark("English", 60, 100), mark("Science", 35, 50)})
	assert.Equal(t, "140", card.TotalMarks.String())
	assert.Equal(t, "73.33", card.AverageMarks.StringFixed(2))
	assert.Equal(t, "B", card.OverallGrade)
}

func TestRankOfSharesTies(t *testing.T) {
	totals := []models.TermMarkTotal{total("a", 300), total("b", 280), total("c", 280), total("d", 250)}
	assert.Equal(t, 1, *RankOf(totals, "a"))
	assert.Equal(t, 2, *RankOf(totals, "b"))
	assert.Equal(t, 2, *RankOf(totals, "c"))
	assert.Equal(t, 4, *RankOf(totals, "d"))
	assert.Nil(t, RankOf(totals, "z"))
}

func TestGenerateReportCard(t *testing.T) {
	svc, repo, _ := newTestAcademicService()
	repo.marks["s1"] = []models.Mark{mark("Math", 40, 50), mark("English", 70, 100)}
	repo.totals = []models.TermMarkTotal{total("s9", 150), total("s1", 110)}

	view, err := svc.GenerateReportCard(context.Background(), "head-1", ReportCardRequest{StudentID: "s1", AcademicYearID: "y1", Term: models.FeeTerm1, TeacherComment: "Good"})
	require.NoError(t, err)
	assert.Equal(t, "75.00", view.Card.AverageMarks.StringFixed(2))
	assert.Equal(t, "B", view.Card.OverallGrade)
	require.NotNil(t, view.Card.ClassRank)
	assert.Equal(t, 2, *view.Card.ClassRank)
	assert.Equal(t, "card-s1", repo.cards["s1"].ID)

	repo.marks["s1"] = nil
	_, err = svc.GenerateReportCard(context.Background(), "head-1", ReportCardRequest{StudentID: "s1", AcademicYearID: "y1", Term: models.FeeTerm2})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestReportCardPDF(t *testing.T) {
	svc, repo, pdf := newTestAcademicService()
	rank := 3
	repo.cards["s1"] = &models.ReportCard{StudentID: "s1", TotalMarks: decimal.NewFromInt(110), AverageMarks: decimal.NewFromInt(75), OverallGrade: "B", ClassRank: &rank, TeacherComment: "Good"}
	repo.marks["s1"] = []models.Mark{mark("Math", 40, 50)}

	_, name, err := svc.ReportCardPDF(context.Background(), "s1", "y1", models.FeeTerm1)
	require.NoError(t, err)
	assert.Equal(t, "report-card-ADM-1-term-1.pdf", name)
	require.NotNil(t, pdf.doc.Table)
	assert.Len(t, pdf.doc.Table.Rows, 1)
	assert.Contains(t, pdf.doc.Fields, export.Field{Label: "Class Rank", Value: "3"})
	assert.Equal(t, []string{"Class teacher: Good"}, pdf.doc.Notes)

	_, _, err = svc.ReportCardPDF(context.Background(), "s1", "y1", models.FeeTerm2)
	require.NoError(t, err, "fake repo ignores term")
}

func TestCreateExamValidation(t *testing.T) {
	svc, _, _ := newTestAcademicService()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.CreateExam(context.Background(), ExamRequest{Name: "Mid", ExamType: models.ExamMidterm, AcademicYearID: "y1", Term: models.FeeTerm1, StartDate: start, EndDate: start, MaxMarks: 50, PassMarks: 60})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.CreateExam(context.Background(), ExamRequest{Name: "Mid", ExamType: models.ExamMidterm, AcademicYearID: "y1", Term: models.FeeTermAnnual, StartDate: start, EndDate: start, MaxMarks: 50})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	exam, err := svc.CreateExam(context.Background(), ExamRequest{Name: "Mid", ExamType: models.ExamMidterm, AcademicYearID: "y1", Term: models.FeeTerm1, StartDate: start, EndDate: start.AddDate(0, 0, 3), MaxMarks: 50, PassMarks: 25})
	require.NoError(t, err)
	assert.Equal(t, "ex-new", exam.ID)
}

func TestCreateSubjectUniqueCode(t *testing.T) {
	svc, _, _ := newTestAcademicService()
	_, err := svc.CreateSubject(context.Background(), SubjectRequest{Name: "Maths", Code: " math "})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}
