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
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type userServiceStub struct {
	userService
	filter    models.ProfileFilter
	deleted   string
	deleteErr error
	changed   service.ChangeRoleRequest
	creator   models.UserProfile
}

func (s *userServiceStub) ListManageable(ctx context.Context, actor models.UserProfile, filter models.ProfileFilter) ([]models.UserProfile, *models.Pagination, error) {
	s.filter = filter
	return []models.UserProfile{{UserID: "t1", Role: models.RoleTeacher}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (s *userServiceStub) Delete(ctx context.Context, actor models.UserProfile, targetUserID string, meta models.RequestMeta) error {
	s.deleted = targetUserID
	return s.deleteErr
}

func (s *userServiceStub) ChangeRole(ctx context.Context, actor models.UserProfile, targetUserID string, req service.ChangeRoleRequest, meta models.RequestMeta) (*models.UserProfile, error) {
	s.changed = req
	return &models.UserProfile{UserID: targetUserID, Role: models.Role(req.Role)}, nil
}

func (s *userServiceStub) CreateStaff(ctx context.Context, actor models.UserProfile, req service.CreateStaffRequest, meta models.RequestMeta) (*models.UserProfile, error) {
	s.creator = actor
	return &models.UserProfile{UserID: "u-" + req.Username, Role: models.Role(req.Role)}, nil
}

var directorProfile = models.UserProfile{UserID: "d1", Role: models.RoleDirector}

func TestUserHandlerListParsesRole(t *testing.T) {
	stub := &userServiceStub{}
	handler := NewUserHandler(stub)
	c, w := newGinContext(http.MethodGet, "/users?role=Teacher&search=jo", nil)
	withProfile(c, directorProfile)

	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, stub.filter.Role)
	assert.Equal(t, models.RoleTeacher, *stub.filter.Role)
	assert.Equal(t, "jo", stub.filter.Search)
}

func TestUserHandlerListRejectsUnknownRole(t *testing.T) {
	handler := NewUserHandler(&userServiceStub{})
	c, w := newGinContext(http.MethodGet, "/users?role=janitor", nil)
	withProfile(c, directorProfile)

	handler.List(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrUnknownRole.Code, decodeEnvelope(t, w).Error["code"])
}

func TestUserHandlerDeleteDeniedRedirectsToManageUsers(t *testing.T) {
	denied := response.WithRedirect(appErrors.Clone(appErrors.ErrPermissionDenied, "You do not have permission to delete this user."), service.RedirectManageUsers)
	stub := &userServiceStub{deleteErr: denied}
	handler := NewUserHandler(stub)
	c, w := newGinContext(http.MethodDelete, "/users/d2", nil)
	c.Params = gin.Params{{Key: "id", Value: "d2"}}
	withProfile(c, directorProfile)

	handler.Delete(c)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "d2", stub.deleted)
	assert.Equal(t, service.RedirectManageUsers, decodeEnvelope(t, w).Meta["redirect"])
}

func TestUserHandlerDelete(t *testing.T) {
	handler := NewUserHandler(&userServiceStub{})
	c, w := newGinContext(http.MethodDelete, "/users/t1", nil)
	c.Params = gin.Params{{Key: "id", Value: "t1"}}
	withProfile(c, directorProfile)

	handler.Delete(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Empty(t, w.Body.String())
}

func TestUserHandlerChangeRole(t *testing.T) {
	stub := &userServiceStub{}
	handler := NewUserHandler(stub)
	c, w := newGinContext(http.MethodPut, "/users/t1/role", []byte(`{"role":"security"}`))
	c.Params = gin.Params{{Key: "id", Value: "t1"}}
	withProfile(c, directorProfile)

	handler.ChangeRole(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "security", stub.changed.Role)
}

func TestUserHandlerCreatePassesActorProfile(t *testing.T) {
	stub := &userServiceStub{}
	handler := NewUserHandler(stub)
	c, w := newGinContext(http.MethodPost, "/users", []byte(`{"username":"sec1","password":"supersecret","first_name":"S","last_name":"G","role":"security"}`))
	withProfile(c, directorProfile)

	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, directorProfile.UserID, stub.creator.UserID)
	assert.Equal(t, models.RoleDirector, stub.creator.Role)
}
