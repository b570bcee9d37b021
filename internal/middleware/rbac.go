package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/service"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

// RequireProfile allows the request when the stored profile belongs to a
// superuser or satisfies allow. Denials carry a redirect to the dashboard.
func RequireProfile(allow func(models.UserProfile) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := ProfileFromContext(c)
		if !ok {
			response.Error(c, response.WithRedirect(appErrors.Clone(appErrors.ErrProfileNotFound, ""), service.RedirectDashboard))
			c.Abort()
			return
		}
		if profile.IsSuperuser || allow(*profile) {
			c.Next()
			return
		}
		response.Error(c, response.WithRedirect(appErrors.Clone(appErrors.ErrPermissionDenied, ""), service.RedirectDashboard))
		c.Abort()
	}
}

// RequireProfileRoles restricts a route to the listed roles.
func RequireProfileRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return RequireProfile(func(p models.UserProfile) bool {
		_, ok := allowed[p.Role]
		return ok
	})
}

func RequireDirector() gin.HandlerFunc {
	return RequireProfileRoles(models.RoleAdmin, models.RoleDirector)
}

func RequireTeacher() gin.HandlerFunc {
	return RequireProfileRoles(models.RoleAdmin, models.RoleDirector, models.RoleTeacher)
}

func RequireSecurity() gin.HandlerFunc {
	return RequireProfileRoles(models.RoleAdmin, models.RoleDirector, models.RoleSecurity)
}

func RequireAccountant() gin.HandlerFunc {
	return RequireProfileRoles(models.RoleAdmin, models.RoleDirector, models.RoleAccountant)
}

// RequireFeeManager follows Role.CanManageFees so bursars pass as well.
func RequireFeeManager() gin.HandlerFunc {
	return RequireProfile(func(p models.UserProfile) bool { return p.Role.CanManageFees() })
}

func RequireEmployeeManager() gin.HandlerFunc {
	return RequireProfile(func(p models.UserProfile) bool { return p.Role.CanManageEmployees() })
}

func RequireReportViewer() gin.HandlerFunc {
	return RequireProfile(func(p models.UserProfile) bool { return p.Role.CanViewReports() })
}
