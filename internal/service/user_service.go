package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type manageableProfileRepository interface {
	profileRepository
	UpdateRole(ctx context.Context, id string, role models.Role) error
	ListManageable(ctx context.Context, scope models.ManageableScope, filter models.ProfileFilter) ([]models.UserProfile, int, error)
}

// CreateStaffRequest creates a login account together with its profile.
type CreateStaffRequest struct {
	Username    string `json:"username" validate:"required,max=150"`
	Email       string `json:"email" validate:"omitempty,email"`
	Password    string `json:"password" validate:"required,min=8"`
	FirstName   string `json:"first_name" validate:"required,max=150"`
	LastName    string `json:"last_name" validate:"required,max=150"`
	Role        string `json:"role" validate:"required"`
	ClassName   string `json:"class_name" validate:"max=50"`
	IsSuperuser bool   `json:"is_superuser"`
}

// ChangeRoleRequest carries the requested role.
type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// RoleOptions lists the roles an actor may assign to a target.
type RoleOptions struct {
	Target         models.UserProfile `json:"target"`
	AvailableRoles []models.Role      `json:"available_roles"`
}

// UserService implements user management on top of the permission rules.
type UserService struct {
	users     userRepository
	profiles  manageableProfileRepository
	creator   *ProfileService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(users userRepository, profiles manageableProfileRepository, creator *ProfileService, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{users: users, profiles: profiles, creator: creator, validator: validate, logger: logger}
}

// ListManageable returns the profiles actor may manage.
func (s *UserService) ListManageable(ctx context.Context, actor models.UserProfile, filter models.ProfileFilter) ([]models.UserProfile, *models.Pagination, error) {
	if !CanManageUsers(actor) {
		return nil, nil, response.WithRedirect(appErrors.Clone(appErrors.ErrPermissionDenied, "You do not have permission to manage users."), RedirectDashboard)
	}
	profiles, total, err := s.profiles.ListManageable(ctx, ManageableScopeFor(actor), filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list users")
	}
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	return profiles, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Delete removes the target account. Actors may never delete themselves.
func (s *UserService) Delete(ctx context.Context, actor models.UserProfile, targetUserID string, meta models.RequestMeta) error {
	target, err := s.loadTarget(ctx, targetUserID)
	if err != nil {
		return err
	}
	if !CanDeleteUser(actor, *target) {
		return response.WithRedirect(appErrors.Clone(appErrors.ErrPermissionDenied, "You do not have permission to delete this user."), RedirectManageUsers)
	}
	if target.UserID == actor.UserID {
		return response.WithRedirect(appErrors.Clone(appErrors.ErrPermissionDenied, "You cannot delete your own account."), RedirectManageUsers)
	}
	if err := s.users.Delete(ctx, target.UserID); err != nil {
		return appErrors.Internal(err, "failed to delete user")
	}
	s.audit(ctx, actor.UserID, models.AuditActionUserDelete, target.UserID, target, nil, meta)
	s.logger.Info("user deleted", zap.String("actor", actor.UserID), zap.String("target", target.UserID), zap.String("username", target.Username))
	return nil
}

// RoleOptions returns the role choices for the change-role form.
func (s *UserService) RoleOptions(ctx context.Context, actor models.UserProfile, targetUserID string) (*RoleOptions, error) {
	target, err := s.loadTarget(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	return &RoleOptions{Target: *target, AvailableRoles: AvailableRoles(actor, *target)}, nil
}

// ChangeRole moves the target to a new role when the rules allow it.
func (s *UserService) ChangeRole(ctx context.Context, actor models.UserProfile, targetUserID string, req ChangeRoleRequest, meta models.RequestMeta) (*models.UserProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid role payload")
	}
	newRole, err := models.ParseRole(req.Role)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnknownRole.Code, appErrors.ErrUnknownRole.Status, "unknown role "+req.Role)
	}
	target, err := s.loadTarget(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	if !CanChangeRole(actor, *target, newRole) {
		return nil, response.WithRedirect(appErrors.Clone(appErrors.ErrPermissionDenied, "You do not have permission to change this user to that role."), RedirectManageUsers)
	}
	previous := target.Role
	if err := s.profiles.UpdateRole(ctx, target.ID, newRole); err != nil {
		return nil, appErrors.Internal(err, "failed to change role")
	}
	target.Role = newRole
	s.audit(ctx, actor.UserID, models.AuditActionRoleChange, target.UserID, map[string]models.Role{"role": previous}, map[string]models.Role{"role": newRole}, meta)
	return target, nil
}

// CreateStaff creates an account and its profile in one call. Only a
// superuser may create another superuser, and the role must be one actor
// could also assign through ChangeRole.
func (s *UserService) CreateStaff(ctx context.Context, actor models.UserProfile, req CreateStaffRequest, meta models.RequestMeta) (*models.UserProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid staff payload")
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnknownRole.Code, appErrors.ErrUnknownRole.Status, "unknown role "+req.Role)
	}
	if req.IsSuperuser && !actor.IsSuperuser {
		return nil, response.WithRedirect(appErrors.Clone(appErrors.ErrPermissionDenied, "Only a superuser can create superuser accounts."), RedirectManageUsers)
	}
	if !CanAssignRole(actor, role) {
		return nil, response.WithRedirect(appErrors.Clone(appErrors.ErrPermissionDenied, "You do not have permission to create a user with that role."), RedirectManageUsers)
	}
	username := strings.TrimSpace(req.Username)
	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check username")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already taken")
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:     username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		IsSuperuser:  req.IsSuperuser,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Internal(err, "failed to create user")
	}
	var className *string
	if c := strings.TrimSpace(req.ClassName); c != "" {
		className = &c
	}
	profile, err := s.creator.createProfile(ctx, user.ID, role, className)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create profile")
	}
	s.audit(ctx, actor.UserID, models.AuditActionUserCreate, user.ID, nil, map[string]string{"username": username, "role": string(role)}, meta)
	return profile, nil
}

func (s *UserService) loadTarget(ctx context.Context, userID string) (*models.UserProfile, error) {
	target, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, response.WithRedirect(appErrors.Clone(appErrors.ErrNotFound, "Target user profile not found."), RedirectManageUsers)
		}
		return nil, appErrors.Internal(err, "failed to load target profile")
	}
	return target, nil
}

func (s *UserService) audit(ctx context.Context, actorID, action, resourceID string, oldValues, newValues interface{}, meta models.RequestMeta) {
	entry := &models.AuditLog{Action: action, Resource: "user", ResourceID: &resourceID, IPAddress: meta.IP, UserAgent: meta.UserAgent}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if oldValues != nil {
		entry.OldValues, _ = json.Marshal(oldValues)
	}
	if newValues != nil {
		entry.NewValues, _ = json.Marshal(newValues)
	}
	if err := s.users.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}
