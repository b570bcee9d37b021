package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

// ContextProfileKey is the gin context key storing the caller's profile.
const ContextProfileKey = "currentProfile"

type profileLoader interface {
	EnsureProfile(ctx context.Context, userID string) (*models.UserProfile, bool, error)
}

// LoadProfile resolves the profile of the authenticated user, creating a
// default one on first visit. It must run after JWT.
func LoadProfile(loader profileLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		profile, _, err := loader.EnsureProfile(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(ContextProfileKey, profile)
		c.Next()
	}
}

// ProfileFromContext returns the profile stored by LoadProfile.
func ProfileFromContext(c *gin.Context) (*models.UserProfile, bool) {
	value, ok := c.Get(ContextProfileKey)
	if !ok {
		return nil, false
	}
	profile, ok := value.(*models.UserProfile)
	return profile, ok && profile != nil
}
