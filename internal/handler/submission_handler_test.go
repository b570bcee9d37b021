package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/service"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type submissionServiceStub struct {
	result     *service.SubmissionResult
	err        error
	lastReq    service.CreateSubmissionRequest
	docName    string
	docBody    string
	lastStatus models.SubmissionStatus
	lastReview service.ReviewSubmissionRequest
}

func (s *submissionServiceStub) Submit(ctx context.Context, actor models.UserProfile, req service.CreateSubmissionRequest, doc *service.DocumentUpload) (*service.SubmissionResult, error) {
	s.lastReq = req
	if doc != nil {
		s.docName = doc.Filename
		raw, _ := io.ReadAll(doc.Content)
		s.docBody = string(raw)
	}
	return s.result, s.err
}

func (s *submissionServiceStub) Mine(ctx context.Context, actor models.UserProfile, page, size int) ([]models.WorkSubmission, *models.Pagination, error) {
	return []models.WorkSubmission{}, &models.Pagination{Page: page, PageSize: size}, nil
}

func (s *submissionServiceStub) Inbox(ctx context.Context, actor models.UserProfile, status models.SubmissionStatus, page, size int) ([]models.WorkSubmission, *models.Pagination, error) {
	s.lastStatus = status
	if s.err != nil {
		return nil, nil, s.err
	}
	return []models.WorkSubmission{}, &models.Pagination{Page: page, PageSize: size}, nil
}

func (s *submissionServiceStub) Get(ctx context.Context, actor models.UserProfile, id string) (*models.WorkSubmission, error) {
	return &models.WorkSubmission{ID: id}, nil
}

func (s *submissionServiceStub) Review(ctx context.Context, actor models.UserProfile, id string, req service.ReviewSubmissionRequest) (*models.WorkSubmission, error) {
	s.lastReview = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.WorkSubmission{ID: id, Status: req.Action}, nil
}

var teacherProfile = models.UserProfile{UserID: "t1", Role: models.RoleTeacher}

func TestSubmissionHandlerCreateSurfacesUnresolvedRecipient(t *testing.T) {
	stub := &submissionServiceStub{result: &service.SubmissionResult{
		Submission:        &models.WorkSubmission{ID: "s1", Title: "Plan"},
		RecipientResolved: false,
	}}
	handler := NewSubmissionHandler(stub)

	payload := mustJSON(t, service.CreateSubmissionRequest{Title: "Plan", WorkType: models.WorkLessonPlan, Description: "week 1"})
	c, w := newGinContext(http.MethodPost, "/submissions", payload)
	withProfile(c, teacherProfile)

	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, false, env.Meta["recipient_resolved"])
	assert.Equal(t, "s1", env.Data["id"])
	assert.Equal(t, "Plan", stub.lastReq.Title)
}

func TestSubmissionHandlerCreateMultipartWithDocument(t *testing.T) {
	stub := &submissionServiceStub{result: &service.SubmissionResult{
		Submission:        &models.WorkSubmission{ID: "s2"},
		RecipientResolved: true,
	}}
	handler := NewSubmissionHandler(stub)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("title", "Exam draft"))
	require.NoError(t, writer.WriteField("work_type", "exam"))
	require.NoError(t, writer.WriteField("description", "term 1"))
	part, err := writer.CreateFormFile("document", "draft.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("pdf-bytes"))
	require.NoError(t, writer.Close())

	c, w := newGinContext(http.MethodPost, "/submissions", nil)
	c.Request, _ = http.NewRequest(http.MethodPost, "/submissions", body)
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())
	withProfile(c, teacherProfile)

	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.WorkExam, stub.lastReq.WorkType)
	assert.Equal(t, "draft.pdf", stub.docName)
	assert.Equal(t, "pdf-bytes", stub.docBody)
	assert.Equal(t, true, decodeEnvelope(t, w).Meta["recipient_resolved"])
}

func TestSubmissionHandlerInboxPassesStatus(t *testing.T) {
	stub := &submissionServiceStub{}
	handler := NewSubmissionHandler(stub)

	c, w := newGinContext(http.MethodGet, "/submissions/review?status=approved", nil)
	withProfile(c, models.UserProfile{UserID: "d1", Role: models.RoleDirector})

	handler.Inbox(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.SubmissionApproved, stub.lastStatus)
}

func TestSubmissionHandlerReviewDeniedRedirects(t *testing.T) {
	denied := response.WithRedirect(appErrors.Clone(appErrors.ErrPermissionDenied, "You can only review submissions submitted to you."), "/submissions/review")
	handler := NewSubmissionHandler(&submissionServiceStub{err: denied})

	c, w := newGinContext(http.MethodPost, "/submissions/s1/review", mustJSON(t, service.ReviewSubmissionRequest{Action: models.SubmissionApproved}))
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	withProfile(c, models.UserProfile{UserID: "d1", Role: models.RoleDirector})

	handler.Review(c)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "/submissions/review", decodeEnvelope(t, w).Meta["redirect"])
}
