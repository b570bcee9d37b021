package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type fakeSubmissionRepo struct {
	items map[string]*models.WorkSubmission
	seq   int
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{items: map[string]*models.WorkSubmission{}}
}

func (f *fakeSubmissionRepo) Create(ctx context.Context, submission *models.WorkSubmission) error {
	f.seq++
	submission.ID = "sub-" + string(rune('0'+f.seq))
	cp := *submission
	f.items[submission.ID] = &cp
	return nil
}

func (f *fakeSubmissionRepo) FindByID(ctx context.Context, id string) (*models.WorkSubmission, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *item
	return &cp, nil
}

func (f *fakeSubmissionRepo) List(ctx context.Context, filter models.SubmissionFilter) ([]models.WorkSubmission, int, error) {
	var out []models.WorkSubmission
	for _, item := range f.items {
		if filter.TeacherID != "" && item.TeacherID != filter.TeacherID {
			continue
		}
		if filter.SubmittedTo != "" && (item.SubmittedTo == nil || *item.SubmittedTo != filter.SubmittedTo) {
			continue
		}
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		out = append(out, *item)
	}
	return out, len(out), nil
}

func (f *fakeSubmissionRepo) Review(ctx context.Context, id string, status models.SubmissionStatus, reviewerID, feedback string, at time.Time) error {
	item, ok := f.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	item.Status = status
	item.ReviewedBy = &reviewerID
	item.ReviewedAt = &at
	item.Feedback = feedback
	return nil
}

func strPtr(v string) *string { return &v }

type submissionFixture struct {
	svc      *SubmissionService
	repo     *fakeSubmissionRepo
	profiles *fakeProfileRepo
	blobs    *memoryBlobStore
}

func newSubmissionFixture() submissionFixture {
	profiles := newFakeProfileRepo()
	profiles.add(models.UserProfile{UserID: "director", Role: models.RoleDirector, IsActiveEmployee: true, FullName: "Dana Director"})
	profiles.add(models.UserProfile{UserID: "head-2b", Role: models.RoleHeadOfClass, ClassName: strPtr("Grade 2B"), IsActiveEmployee: true})
	profiles.add(models.UserProfile{UserID: "head-1a", Role: models.RoleHeadOfClass, ClassName: strPtr("Grade 1A"), IsActiveEmployee: true, FullName: "Hana Head"})
	blobs := &memoryBlobStore{}
	uploads := NewUploadService(blobs, UploadConfig{MaxFileSize: 1024}, nil)
	repo := newFakeSubmissionRepo()
	svc := NewSubmissionService(repo, profiles, uploads, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC) }
	return submissionFixture{svc: svc, repo: repo, profiles: profiles, blobs: blobs}
}

func lessonPlan() CreateSubmissionRequest {
	return CreateSubmissionRequest{Title: "Week 3 plan", WorkType: models.WorkLessonPlan, Description: "Fractions"}
}

func TestResolveRecipientRouting(t *testing.T) {
	f := newSubmissionFixture()
	ctx := context.Background()

	teacher := models.UserProfile{UserID: "t1", Role: models.RoleTeacher, ClassName: strPtr("Grade 1A")}
	got, err := ResolveRecipient(ctx, f.profiles, teacher)
	require.NoError(t, err)
	assert.Equal(t, "head-1a", got.UserID)

	teacher.ClassName = nil
	got, err = ResolveRecipient(ctx, f.profiles, teacher)
	require.NoError(t, err)
	assert.Equal(t, "director", got.UserID)

	teacher.ClassName = strPtr("Grade 9Z")
	got, err = ResolveRecipient(ctx, f.profiles, teacher)
	require.NoError(t, err)
	assert.Equal(t, "director", got.UserID)

	head := models.UserProfile{UserID: "head-1a", Role: models.RoleHeadOfClass, ClassName: strPtr("Grade 1A")}
	got, err = ResolveRecipient(ctx, f.profiles, head)
	require.NoError(t, err)
	assert.Equal(t, "director", got.UserID)
}

func TestResolveRecipientIgnoresInactive(t *testing.T) {
	profiles := newFakeProfileRepo()
	profiles.add(models.UserProfile{UserID: "gone", Role: models.RoleDirector, IsActiveEmployee: false})

	got, err := ResolveRecipient(context.Background(), profiles, models.UserProfile{UserID: "t1", Role: models.RoleTeacher})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSubmitRoutesToHeadOfClass(t *testing.T) {
	f := newSubmissionFixture()
	teacher := models.UserProfile{UserID: "t1", Role: models.RoleTeacher, ClassName: strPtr("Grade 1A")}

	res, err := f.svc.Submit(context.Background(), teacher, lessonPlan(), &DocumentUpload{Filename: "plan.pdf", Content: strings.NewReader("pdf")})
	require.NoError(t, err)
	assert.True(t, res.RecipientResolved)
	assert.Equal(t, models.RoleHeadOfClass, res.RecipientRole)
	require.NotNil(t, res.Submission.SubmittedTo)
	assert.Equal(t, "head-1a", *res.Submission.SubmittedTo)
	assert.Equal(t, models.SubmissionPending, res.Submission.Status)
	require.NotNil(t, res.Submission.Document)
	assert.True(t, strings.HasPrefix(*res.Submission.Document, "submissions/2024/05/"))
	assert.Len(t, f.blobs.files, 1)
}

func TestSubmitWithoutRecipientStoresNull(t *testing.T) {
	profiles := newFakeProfileRepo()
	repo := newFakeSubmissionRepo()
	svc := NewSubmissionService(repo, profiles, nil, nil, nil)

	res, err := svc.Submit(context.Background(), models.UserProfile{UserID: "t1", Role: models.RoleTeacher}, lessonPlan(), nil)
	require.NoError(t, err)
	assert.False(t, res.RecipientResolved)
	assert.Nil(t, res.Submission.SubmittedTo)
	assert.Len(t, repo.items, 1)
}

func TestSubmitRejectsOtherRoles(t *testing.T) {
	f := newSubmissionFixture()

	_, err := f.svc.Submit(context.Background(), models.UserProfile{UserID: "b1", Role: models.RoleBursar}, lessonPlan(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPermissionDenied))
	assert.Equal(t, RedirectDashboard, response.RedirectOf(err))
	assert.Empty(t, f.repo.items)
}

func TestSubmitValidatesPayload(t *testing.T) {
	f := newSubmissionFixture()
	teacher := models.UserProfile{UserID: "t1", Role: models.RoleTeacher}

	req := lessonPlan()
	req.WorkType = "poem"
	_, err := f.svc.Submit(context.Background(), teacher, req, nil)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	req = lessonPlan()
	req.Title = "   "
	_, err = f.svc.Submit(context.Background(), teacher, req, nil)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestReviewOnlyByAddressee(t *testing.T) {
	f := newSubmissionFixture()
	ctx := context.Background()
	teacher := models.UserProfile{UserID: "t1", Role: models.RoleTeacher, ClassName: strPtr("Grade 1A")}
	res, err := f.svc.Submit(ctx, teacher, lessonPlan(), nil)
	require.NoError(t, err)
	id := res.Submission.ID

	director := models.UserProfile{UserID: "director", Role: models.RoleDirector}
	_, err = f.svc.Review(ctx, director, id, ReviewSubmissionRequest{Action: models.SubmissionApproved})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPermissionDenied))
	assert.Equal(t, RedirectReviewSubmissions, response.RedirectOf(err))

	head := models.UserProfile{UserID: "head-1a", Role: models.RoleHeadOfClass}
	_, err = f.svc.Review(ctx, head, id, ReviewSubmissionRequest{Action: models.SubmissionPending})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	reviewed, err := f.svc.Review(ctx, head, id, ReviewSubmissionRequest{Action: models.SubmissionRevision, Feedback: "add objectives"})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionRevision, reviewed.Status)
	assert.Equal(t, "head-1a", *reviewed.ReviewedBy)
	assert.Equal(t, "add objectives", f.repo.items[id].Feedback)
	assert.NotNil(t, f.repo.items[id].ReviewedAt)
}

func TestInboxDefaultsToPending(t *testing.T) {
	f := newSubmissionFixture()
	ctx := context.Background()
	teacher := models.UserProfile{UserID: "t1", Role: models.RoleTeacher}
	first, err := f.svc.Submit(ctx, teacher, lessonPlan(), nil)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, teacher, lessonPlan(), nil)
	require.NoError(t, err)

	director := models.UserProfile{UserID: "director", Role: models.RoleDirector}
	_, err = f.svc.Review(ctx, director, first.Submission.ID, ReviewSubmissionRequest{Action: models.SubmissionApproved})
	require.NoError(t, err)

	items, page, err := f.svc.Inbox(ctx, director, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, page.TotalCount)

	_, _, err = f.svc.Inbox(ctx, teacher, "", 1, 20)
	assert.True(t, errors.Is(err, appErrors.ErrPermissionDenied))

	mine, _, err := f.svc.Mine(ctx, teacher, 1, 20)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestGetSubmissionVisibility(t *testing.T) {
	f := newSubmissionFixture()
	ctx := context.Background()
	teacher := models.UserProfile{UserID: "t1", Role: models.RoleTeacher}
	res, err := f.svc.Submit(ctx, teacher, lessonPlan(), nil)
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, models.UserProfile{UserID: "t2", Role: models.RoleTeacher}, res.Submission.ID)
	assert.True(t, errors.Is(err, appErrors.ErrPermissionDenied))

	_, err = f.svc.Get(ctx, teacher, "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
