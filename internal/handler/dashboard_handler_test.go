package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/dto"
	"github.com/noah-isme/school-admin-api/internal/middleware"
	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type fakeDashboardSrv struct {
	main      *dto.MainDashboard
	mainHit   bool
	bursarErr error
	teacher   *dto.TeacherDashboard
	seen      models.UserProfile
}

func (f *fakeDashboardSrv) Main(_ context.Context, p models.UserProfile) (*dto.MainDashboard, bool, error) {
	f.seen = p
	return f.main, f.mainHit, nil
}

func (f *fakeDashboardSrv) Teacher(_ context.Context, p models.UserProfile) (*dto.TeacherDashboard, error) {
	f.seen = p
	return f.teacher, nil
}

func (f *fakeDashboardSrv) Director(context.Context, models.UserProfile) (*dto.DirectorDashboard, error) {
	return &dto.DirectorDashboard{}, nil
}

func (f *fakeDashboardSrv) HeadOfClass(context.Context, models.UserProfile) (*dto.HeadOfClassDashboard, error) {
	return &dto.HeadOfClassDashboard{}, nil
}

func (f *fakeDashboardSrv) Security(context.Context, models.UserProfile) (*dto.SecurityDashboard, bool, error) {
	return &dto.SecurityDashboard{}, false, nil
}

func (f *fakeDashboardSrv) Bursar(context.Context, models.UserProfile) (*dto.BursarDashboard, bool, error) {
	if f.bursarErr != nil {
		return nil, false, f.bursarErr
	}
	return &dto.BursarDashboard{}, false, nil
}

func (f *fakeDashboardSrv) HR(context.Context, models.UserProfile) (*dto.HRDashboard, bool, error) {
	return &dto.HRDashboard{}, true, nil
}

func TestDashboardHandlerMainReportsCacheHit(t *testing.T) {
	srv := &fakeDashboardSrv{main: &dto.MainDashboard{Route: "/dashboard/teacher", TotalEmployees: 4}, mainHit: true}
	handler := NewDashboardHandler(srv)

	c, w := newGinContext(http.MethodGet, "/dashboard", nil)
	withProfile(c, models.UserProfile{UserID: "u1", Role: models.RoleTeacher})

	handler.Main(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Equal(t, "/dashboard/teacher", env.Data["route"])
	assert.Equal(t, float64(4), env.Data["total_employees"])
	assert.Equal(t, "u1", srv.seen.UserID)
}

func TestDashboardHandlerRequiresProfile(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{})
	c, w := newGinContext(http.MethodGet, "/dashboard/teacher", nil)

	handler.Teacher(c)

	require.Equal(t, http.StatusForbidden, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, appErrors.ErrProfileNotFound.Code, env.Error["code"])
}

func TestDashboardHandlerDeniedCarriesRedirect(t *testing.T) {
	denied := response.WithRedirect(appErrors.Clone(appErrors.ErrPermissionDenied, "Access denied."), "/dashboard")
	handler := NewDashboardHandler(&fakeDashboardSrv{bursarErr: denied})

	c, w := newGinContext(http.MethodGet, "/dashboard/bursar", nil)
	withProfile(c, models.UserProfile{UserID: "u2", Role: models.RoleTeacher})

	handler.Bursar(c)

	require.Equal(t, http.StatusForbidden, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "/dashboard", env.Meta["redirect"])
	assert.Equal(t, "Access denied.", env.Error["message"])
}

func TestDashboardHandlerHRWithoutMetaMiddleware(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{})
	c, w := newGinContext(http.MethodGet, "/dashboard/hr", nil)
	withProfile(c, models.UserProfile{UserID: "u3", Role: models.RoleHRManager})

	handler.HR(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, middleware.ExtractMeta(c)["cache_hit"])
}
