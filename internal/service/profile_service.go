package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/pkg/database"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

// Client routes used as redirect hints on permission failures.
const (
	RedirectDashboard   = "/dashboard"
	RedirectManageUsers = "/users/manage"
)

const profileUserConstraint = "user_profiles_user_id_key"

type profileRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.UserProfile, error)
	FindByID(ctx context.Context, id string) (*models.UserProfile, error)
	NextEmployeeNumber(ctx context.Context) (int64, error)
	Create(ctx context.Context, profile *models.UserProfile) error
	Update(ctx context.Context, profile *models.UserProfile) error
}

type profileUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// UpdateProfileRequest edits the caller's own account and profile.
type UpdateProfileRequest struct {
	Email     string `json:"email" validate:"omitempty,email"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	Phone     string `json:"phone" validate:"max=20"`
	Address   string `json:"address"`
}

// ProfileService manages user profiles, including lazy creation.
type ProfileService struct {
	profiles  profileRepository
	users     profileUserStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs the service.
func NewProfileService(profiles profileRepository, users profileUserStore, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{profiles: profiles, users: users, validator: validate, logger: logger}
}

// FormatEmployeeNumber renders a sequence value as an employee number.
func FormatEmployeeNumber(n int64) string {
	return fmt.Sprintf("EMP%04d", n)
}

// Get returns the profile of userID or PROFILE_NOT_FOUND with a dashboard
// redirect hint.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, response.WithRedirect(appErrors.ErrProfileNotFound, RedirectDashboard)
		}
		return nil, appErrors.Internal(err, "failed to load profile")
	}
	return profile, nil
}

// EnsureProfile returns the profile of userID, creating it on first use with
// role admin for superusers and staff otherwise. The boolean reports creation.
func (s *ProfileService) EnsureProfile(ctx context.Context, userID string) (*models.UserProfile, bool, error) {
	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err == nil {
		return profile, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, appErrors.Internal(err, "failed to load profile")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrUnauthorized, "user no longer exists")
		}
		return nil, false, appErrors.Internal(err, "failed to load user")
	}

	role := models.RoleStaff
	if user.IsSuperuser {
		role = models.RoleAdmin
	}
	created, err := s.createProfile(ctx, user.ID, role, nil)
	if err != nil {
		if database.IsUniqueViolation(err, profileUserConstraint) {
			existing, findErr := s.profiles.FindByUserID(ctx, userID)
			if findErr != nil {
				return nil, false, appErrors.Internal(findErr, "failed to load profile")
			}
			return existing, false, nil
		}
		return nil, false, appErrors.Internal(err, "failed to create profile")
	}
	s.logger.Info("profile created on first visit", zap.String("user_id", userID), zap.String("role", string(role)), zap.String("employee_id", created.EmployeeID))
	return created, true, nil
}

// UpdateOwn edits the caller's account and contact fields.
func (s *ProfileService) UpdateOwn(ctx context.Context, userID string, req UpdateProfileRequest) (*models.UserProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid profile payload")
	}
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load user")
	}
	user.Email = strings.TrimSpace(req.Email)
	user.FirstName = strings.TrimSpace(req.FirstName)
	user.LastName = strings.TrimSpace(req.LastName)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, appErrors.Internal(err, "failed to update user")
	}
	profile.Phone = strings.TrimSpace(req.Phone)
	profile.Address = req.Address
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, appErrors.Internal(err, "failed to update profile")
	}
	return s.Get(ctx, userID)
}

// createProfile allocates an employee number and inserts the profile, then
// reloads it with the joined account fields.
func (s *ProfileService) createProfile(ctx context.Context, userID string, role models.Role, className *string) (*models.UserProfile, error) {
	next, err := s.profiles.NextEmployeeNumber(ctx)
	if err != nil {
		return nil, err
	}
	profile := &models.UserProfile{
		UserID:           userID,
		EmployeeID:       FormatEmployeeNumber(next),
		Role:             role,
		IsActiveEmployee: true,
		ClassName:        className,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, err
	}
	reloaded, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return reloaded, nil
}
