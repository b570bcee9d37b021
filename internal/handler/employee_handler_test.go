package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/service"
)

type employeeServiceStub struct {
	employeeService
	results  []models.EmployeeSearchResult
	lastTerm string
	filter   models.EmployeeFilter
}

func (s *employeeServiceStub) Search(ctx context.Context, term string) ([]models.EmployeeSearchResult, error) {
	s.lastTerm = term
	return s.results, nil
}

func (s *employeeServiceStub) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, *models.Pagination, error) {
	s.filter = filter
	return []models.Employee{}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (s *employeeServiceStub) Create(ctx context.Context, req service.EmployeeRequest) (*models.Employee, error) {
	return &models.Employee{ID: "e1", EmployeeID: req.EmployeeID}, nil
}

func TestEmployeeHandlerSearchReturnsBareResults(t *testing.T) {
	stub := &employeeServiceStub{results: []models.EmployeeSearchResult{
		{ID: "e1", Name: "Jane Wanjiru", EmployeeID: "EMP0001", Department: "Science", Position: "Teacher"},
	}}
	handler := NewEmployeeHandler(stub)

	c, w := newGinContext(http.MethodGet, "/employees/search?q=jan", nil)
	handler.Search(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string][]models.EmployeeSearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body["results"], 1)
	assert.Equal(t, "EMP0001", body["results"][0].EmployeeID)
	assert.Equal(t, "jan", stub.lastTerm)
	assert.NotContains(t, w.Body.String(), `"data"`)
}

func TestEmployeeHandlerSearchEmptyIsArray(t *testing.T) {
	handler := NewEmployeeHandler(&employeeServiceStub{})
	c, w := newGinContext(http.MethodGet, "/employees/search?q=zz", nil)
	handler.Search(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"results":[]}`, w.Body.String())
}

func TestEmployeeHandlerListFilters(t *testing.T) {
	stub := &employeeServiceStub{}
	handler := NewEmployeeHandler(stub)
	c, w := newGinContext(http.MethodGet, "/employees?department_id=d1&status=active&page=2&page_size=5", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "d1", stub.filter.DepartmentID)
	assert.Equal(t, "active", stub.filter.Status)
	assert.Equal(t, 2, stub.filter.Page)
	assert.Equal(t, 5, stub.filter.PageSize)
}
