package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/service"
)

type academicServiceStub struct {
	academicService
	term models.FeeTerm
}

func (s *academicServiceStub) ReportCard(ctx context.Context, studentID, yearID string, term models.FeeTerm) (*service.ReportCardView, error) {
	s.term = term
	return &service.ReportCardView{Card: &models.ReportCard{StudentID: studentID}}, nil
}

func (s *academicServiceStub) ReportCardPDF(ctx context.Context, studentID, yearID string, term models.FeeTerm) ([]byte, string, error) {
	return []byte("%PDF-1.3"), "report-card-ADM001-term-1.pdf", nil
}

func TestAcademicHandlerReportCardRequiresTerm(t *testing.T) {
	handler := NewAcademicHandler(&academicServiceStub{})
	c, w := newGinContext(http.MethodGet, "/students/s1/report-card?academic_year_id=y1&term=annual", nil)
	c.Params = gin.Params{{Key: "id", Value: "s1"}}

	handler.ReportCard(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAcademicHandlerReportCardJSON(t *testing.T) {
	stub := &academicServiceStub{}
	handler := NewAcademicHandler(stub)
	c, w := newGinContext(http.MethodGet, "/students/s1/report-card?academic_year_id=y1&term=2", nil)
	c.Params = gin.Params{{Key: "id", Value: "s1"}}

	handler.ReportCard(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.FeeTerm2, stub.term)
}

func TestAcademicHandlerReportCardPDF(t *testing.T) {
	handler := NewAcademicHandler(&academicServiceStub{})
	c, w := newGinContext(http.MethodGet, "/students/s1/report-card?academic_year_id=y1&term=1&format=pdf", nil)
	c.Params = gin.Params{{Key: "id", Value: "s1"}}

	handler.ReportCard(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "report-card-ADM001-term-1.pdf")
}
